// Package server 提供HTTP控制接口和websocket快照推送
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// Controller 服务器操作的宿主调度器接口
type Controller interface {
	Snapshot(ctx context.Context, dst *core.Snapshot) error
	EngineConfig(ctx context.Context) (sta.Config, error)
	Clear(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetWindow(ctx context.Context, left, right float64) error
	SetDetector(ctx context.Context, detector sta.DetectorConfig) error
	SetPeriod(ctx context.Context, dt float64) error
	Subscribe() (<-chan *core.Snapshot, func())
}

// windowRequest PUT /api/window 请求体，单位秒
type windowRequest struct {
	Left  *float64 `json:"left" binding:"required"`
	Right *float64 `json:"right" binding:"required"`
}

// periodRequest PUT /api/period 请求体，单位秒
type periodRequest struct {
	DT *float64 `json:"dt" binding:"required"`
}

// detectorRequest PUT /api/detector 请求体，interval单位秒
type detectorRequest struct {
	Kind      core.DetectorKind `json:"kind" binding:"required"`
	Threshold float64           `json:"threshold"`
	Interval  float64           `json:"interval"`
}

// configResponse GET /api/config 响应，时间单位秒
type configResponse struct {
	Left      float64           `json:"left"`
	Right     float64           `json:"right"`
	DT        float64           `json:"dt"`
	Detector  core.DetectorKind `json:"detector"`
	Threshold float64           `json:"threshold"`
	Interval  float64           `json:"interval"`
}

// Server HTTP服务器
type Server struct {
	config *Config
	ctrl   Controller
	router *gin.Engine
	hub    *Hub
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer 创建HTTP服务器
func NewServer(ctrl Controller, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config: config,
		ctrl:   ctrl,
		logger: config.logger().With("component", "http"),
	}
	s.hub = NewHub(config.ClientBuffer, s.logger)
	return s, nil
}

// Handler 返回路由，ctx结束时websocket相关的goroutine退出
func (s *Server) Handler(ctx context.Context) http.Handler {
	if s.router == nil {
		s.router = s.routes(ctx)
	}
	return s.router
}

// routes 注册所有路由
func (s *Server) routes(ctx context.Context) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.NoRoute(func(c *gin.Context) {
		respondWithError(c, http.StatusNotFound, ErrCodeNotFound, "路由不存在")
	})

	api := router.Group("/api")
	{
		api.GET("/snapshot", s.getSnapshot)
		api.GET("/average", s.getAverage)
		api.GET("/config", s.getConfig)
		api.POST("/clear", s.postClear)
		api.POST("/pause", s.postPause)
		api.POST("/resume", s.postResume)
		api.PUT("/window", s.putWindow)
		api.PUT("/detector", s.putDetector)
		api.PUT("/period", s.putPeriod)
	}

	router.GET("/ws", s.hub.handleWebSocket(ctx))

	if s.config.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.config.gatherer(), promhttp.HandlerOpts{})))
	}

	return router
}

// requestLogger 用slog记录每个请求
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http请求",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// Start 开始监听并在后台提供服务，同时把快照转发给websocket客户端
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.httpServer = &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.startHub(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", "err", err)
		}
	}()

	s.logger.Info("HTTP服务已启动", "addr", listener.Addr().String())
	return nil
}

// startHub 启动websocket中心并订阅快照
func (s *Server) startHub(ctx context.Context) {
	snaps, unsubscribe := s.ctrl.Subscribe()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		s.hub.Forward(ctx, snaps)
	}()
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop 优雅关闭HTTP服务和websocket中心
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.wg.Wait()
	s.logger.Info("HTTP服务已停止")
	return err
}

// respondError 把调度器返回的错误映射为HTTP状态
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sta.ErrInvalidConfig):
		respondWithError(c, http.StatusUnprocessableEntity, ErrCodeInvalidConfig, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondWithError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		respondWithError(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

func (s *Server) getSnapshot(c *gin.Context) {
	var snap core.Snapshot
	if err := s.ctrl.Snapshot(c.Request.Context(), &snap); err != nil {
		respondError(c, err)
		return
	}
	respondWithEncoded(c, http.StatusOK, &snap, "")
}

// getAverage 以导出文件相同的两列文本格式返回平均值
func (s *Server) getAverage(c *gin.Context) {
	var snap core.Snapshot
	if err := s.ctrl.Snapshot(c.Request.Context(), &snap); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := sta.WriteText(c.Writer, &snap); err != nil {
		s.logger.Warn("写出平均值失败", "err", err)
	}
}

func (s *Server) getConfig(c *gin.Context) {
	config, err := s.ctrl.EngineConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, configResponse{
		Left:      config.LeftWinTime,
		Right:     config.RightWinTime,
		DT:        config.DT,
		Detector:  config.Detector.Kind,
		Threshold: config.Detector.Threshold,
		Interval:  config.Detector.Interval.Seconds(),
	}, "")
}

func (s *Server) postClear(c *gin.Context) {
	if err := s.ctrl.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "平均结果已清除")
}

func (s *Server) postPause(c *gin.Context) {
	if err := s.ctrl.Pause(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "已暂停")
}

func (s *Server) postResume(c *gin.Context) {
	if err := s.ctrl.Resume(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "已恢复")
}

func (s *Server) putWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SetWindow(c.Request.Context(), *req.Left, *req.Right); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "窗口已重新配置")
}

func (s *Server) putDetector(c *gin.Context) {
	var req detectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	detector := sta.DetectorConfig{
		Kind:      req.Kind,
		Threshold: req.Threshold,
		Interval:  time.Duration(req.Interval * float64(time.Second)),
	}
	if err := s.ctrl.SetDetector(c.Request.Context(), detector); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "检测器已更新")
}

// putPeriod 修改采样周期，数据源和引擎同时生效，平均结果被清零
func (s *Server) putPeriod(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SetPeriod(c.Request.Context(), *req.DT); err != nil {
		respondError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, nil, "采样周期已修改")
}
