// Package server websocket快照推送
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message 推送给websocket客户端的消息
type Message struct {
	Type      string         `json:"type"` // 目前只有 "snapshot"
	Timestamp string         `json:"timestamp"`
	Data      *core.Snapshot `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client 一个websocket连接
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub 管理所有websocket客户端并广播快照
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	bufferSize int
	logger     *slog.Logger

	mu    sync.RWMutex // 保护clients的读取计数
	count int
}

// NewHub 创建websocket中心
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Run 处理注册、注销和广播，直到ctx结束
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.Debug("websocket客户端已连接", "client", c.id, "total", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.remove(c)
				h.logger.Debug("websocket客户端已断开", "client", c.id, "total", len(h.clients))
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// 客户端跟不上，断开
					h.logger.Warn("websocket客户端发送缓冲区已满，断开", "client", c.id)
					h.remove(c)
				}
			}
		}
	}
}

// remove 删除客户端并关闭它的发送通道
func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Clients 返回当前连接的客户端数
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Forward 把快照序列化后广播，直到snaps关闭或ctx结束
func (h *Hub) Forward(ctx context.Context, snaps <-chan *core.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(Message{
				Type:      "snapshot",
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Data:      snap,
			})
			if err != nil {
				h.logger.Error("快照序列化失败", "err", err)
				continue
			}
			select {
			case h.broadcast <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleWebSocket 升级连接并注册客户端
func (h *Hub) handleWebSocket(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket升级失败", "err", err)
			return
		}

		cl := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, h.bufferSize),
			hub:  h,
		}

		select {
		case h.register <- cl:
		case <-ctx.Done():
			conn.Close()
			return
		}

		go cl.writePump()
		go cl.readPump(ctx)
	}
}

// readPump 读取并丢弃客户端消息，用于检测断开和处理pong
func (c *client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket读取错误", "client", c.id, "err", err)
			}
			return
		}
	}
}

// writePump 把广播消息写到连接，并定期发送ping
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 中心关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
