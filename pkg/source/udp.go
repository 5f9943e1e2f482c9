// Package source UDP采集实现
package source

import (
	"encoding/binary"
	"errors"
	"math"
	"net"
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"golang.org/x/net/ipv4"
)

const (
	pairSize      = 16                     // 一对小端float64：信号 + 触发
	maxDatagram   = 65507                  // UDP/IPv4 最大负载
	udpBatchSize  = 16                     // 每次批量读取的数据报数
	udpPollPeriod = 100 * time.Millisecond // 检查停止信号的读取超时
)

// udpSource 从UDP数据报读取采样，每个数据报包含若干对小端float64
// 不完整的尾部字节被忽略
type udpSource struct {
	*baseSource
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

// newUDPSource 创建UDP数据源并绑定监听地址
func newUDPSource(config *Config) (*udpSource, error) {
	addr, err := net.ResolveUDPAddr("udp4", config.Addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}

	return &udpSource{
		baseSource: newBaseSource(config),
		conn:       conn,
		pc:         ipv4.NewPacketConn(conn),
	}, nil
}

// LocalAddr 返回实际监听的地址（端口为0时由系统分配）
func (u *udpSource) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Start 实现core.DataSource接口
func (u *udpSource) Start() {
	u.setRunning(true)
	u.wg.Add(1)
	go u.receive()
}

// receive 批量读取数据报并拆分成Tick
func (u *udpSource) receive() {
	defer u.wg.Done()

	msgs := make([]ipv4.Message, udpBatchSize)
	for i := range msgs {
		msgs[i].Buffers = [][]byte{make([]byte, maxDatagram)}
	}

	for {
		select {
		case <-u.stopChan:
			return
		default:
		}

		if err := u.conn.SetReadDeadline(time.Now().Add(udpPollPeriod)); err != nil {
			u.closeData()
			return
		}
		n, err := u.pc.ReadBatch(msgs, 0)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// 连接已关闭或读取失败
			u.closeData()
			return
		}

		arrival := time.Now()
		for _, msg := range msgs[:n] {
			if !u.emit(msg.Buffers[0][:msg.N], arrival) {
				return
			}
		}
	}
}

// emit 解码一个数据报，同一数据报内的采样按采样周期递增时间戳
// 含NaN或±Inf的采样对被丢弃并计入Dropped
func (u *udpSource) emit(payload []byte, arrival time.Time) bool {
	interval := u.Interval()
	for i := 0; i+pairSize <= len(payload); i += pairSize {
		tick := core.Tick{
			Signal:  math.Float64frombits(binary.LittleEndian.Uint64(payload[i:])),
			Trigger: math.Float64frombits(binary.LittleEndian.Uint64(payload[i+8:])),
			Now:     arrival.Add(time.Duration(i/pairSize) * interval),
		}
		if !finite(tick.Signal) || !finite(tick.Trigger) {
			u.dropped.Add(1)
			continue
		}
		if !u.sendTick(tick) {
			return false
		}
	}
	return true
}

// Stop 停止接收并关闭套接字
func (u *udpSource) Stop() {
	u.baseSource.Stop()
	u.conn.Close()
}

// EncodePairs 把 (信号, 触发) 对编码为UDP数据报负载
func EncodePairs(dst []byte, pairs ...[2]float64) []byte {
	for _, p := range pairs {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(p[0]))
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(p[1]))
	}
	return dst
}
