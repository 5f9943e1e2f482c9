// Package runner 是平均引擎的宿主调度器
// 唯一的调度goroutine从数据源接收tick并投递给引擎，外部命令（重新配置、清除、暂停、
// 快照）通过命令通道送入同一个goroutine，在两个tick之间执行，因此不会与tick重叠
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/rt"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

var (
	// ErrStopped 调度器已停止
	ErrStopped = errors.New("调度器已停止")

	// ErrFixedRate 数据源不支持修改采样周期
	ErrFixedRate = errors.New("数据源不支持修改采样周期")
)

// dropCounter 能报告丢弃采样数的数据源
type dropCounter interface {
	Dropped() int64
}

// command 在调度goroutine中执行的命令
type command struct {
	fn    func() error
	reply chan error
}

// Runner 宿主调度器
type Runner struct {
	config  *Config
	source  core.DataSource
	logger  *slog.Logger
	metrics *Metrics

	// 以下状态只在调度goroutine中访问；未运行时由持有idleMu的调用者访问
	engine       *sta.Engine
	engineConfig sta.Config
	paused       bool
	reported     int64 // 已计入指标的数据源丢弃数

	cmds       chan command
	stopChan   chan struct{}
	finished   chan struct{} // 数据流结束时关闭
	finishOnce sync.Once
	wg         sync.WaitGroup

	mu      sync.RWMutex // 保护running/stopped，命令提交期间持有读锁
	running bool
	stopped bool
	idleMu  sync.Mutex // 未运行时串行执行命令

	subsMu  sync.Mutex
	subs    map[uint64]chan *core.Snapshot
	nextSub uint64
	closed  bool
}

// NewRunner 创建宿主调度器，engine中的DT应当等于数据源的采样周期
func NewRunner(source core.DataSource, engine *sta.Config, config *Config) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e, err := sta.NewEngine(engine)
	if err != nil {
		return nil, err
	}

	logger := config.logger()
	if config.Session != "" {
		logger = logger.With("session", config.Session)
	}

	return &Runner{
		config:       config,
		source:       source,
		logger:       logger,
		metrics:      newMetrics(config.Registerer, config.Session),
		engine:       e,
		engineConfig: *engine,
		cmds:         make(chan command),
		stopChan:     make(chan struct{}),
		finished:     make(chan struct{}),
		subs:         make(map[uint64]chan *core.Snapshot),
	}, nil
}

// Session 返回会话标识
func (r *Runner) Session() string {
	return r.config.Session
}

// Finished 返回一个在数据流结束（例如文件回放完毕）时关闭的通道
func (r *Runner) Finished() <-chan struct{} {
	return r.finished
}

// Start 启动数据源和调度goroutine
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("调度器已经在运行")
	}
	if r.stopped {
		return ErrStopped
	}

	if r.config.RT.LockMemory {
		if err := rt.LockMemory(); err != nil {
			r.logger.Warn("内存锁定失败，继续运行", "err", err)
		}
	}

	r.running = true
	r.source.Start()
	r.wg.Add(1)
	go r.loop()

	w := r.engine.Window()
	r.logger.Info("调度器已启动", "n", w.N, "dt", w.DT, "detector", r.engine.DetectorKind())
	return nil
}

// Stop 停止调度goroutine和数据源，关闭所有订阅通道
// 可以重复调用
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true

	if r.running {
		r.running = false
		close(r.stopChan)
		r.wg.Wait()
		r.logger.Info("调度器已停止", "ticks", r.engine.Ticks(), "events", r.engine.EventCount())
	}

	r.source.Stop()
	r.closeSubscribers()
}

// loop 调度goroutine
func (r *Runner) loop() {
	defer r.wg.Done()

	if r.config.RT.CPU >= 0 {
		unpin, err := rt.PinThread(r.config.RT.CPU)
		if err != nil {
			r.logger.Warn("CPU绑定失败，继续运行", "cpu", r.config.RT.CPU, "err", err)
		} else {
			defer unpin()
		}
	}

	refresh := time.NewTicker(r.config.RefreshInterval)
	defer refresh.Stop()

	stream := r.source.DataStream()
	for {
		select {
		case <-r.stopChan:
			return
		case tick, ok := <-stream:
			if !ok {
				// 数据源结束，继续服务命令直到Stop
				stream = nil
				r.finishOnce.Do(func() { close(r.finished) })
				r.logger.Info("数据流已结束", "ticks", r.engine.Ticks(), "events", r.engine.EventCount())
				r.publish()
				continue
			}
			r.process(tick)
		case cmd := <-r.cmds:
			cmd.reply <- cmd.fn()
		case <-refresh.C:
			r.publish()
		}
	}
}

// process 投递一个tick，暂停期间丢弃并计数
func (r *Runner) process(tick core.Tick) {
	if r.paused {
		r.metrics.pausedTicks.Inc()
		return
	}
	r.engine.Tick(tick)
	r.metrics.ticks.Inc()
	if !tick.Now.IsZero() {
		r.metrics.latency.Observe(time.Since(tick.Now).Seconds())
	}
}

// do 把命令送入调度goroutine执行并等待结果；未运行时直接执行
func (r *Runner) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.CommandTimeout)
		defer cancel()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		r.idleMu.Lock()
		defer r.idleMu.Unlock()
		return fn()
	}

	reply := make(chan error, 1)
	select {
	case r.cmds <- command{fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconfigure 应用新的引擎配置，失败时保留之前的状态
// DT改变时先修改数据源的采样周期，保证tick的节拍与引擎一致
func (r *Runner) reconfigure(config sta.Config) error {
	if _, err := config.Window(); err != nil {
		r.logger.Warn("重新配置被拒绝", "err", err)
		return err
	}

	previous := r.engineConfig.DT
	retimed := false
	if config.DT != previous {
		if err := r.retime(config.DT); err != nil {
			r.logger.Warn("重新配置被拒绝", "dt", config.DT, "err", err)
			return err
		}
		retimed = true
	}

	if err := r.engine.Configure(&config); err != nil {
		if retimed {
			if rerr := r.retime(previous); rerr != nil {
				r.logger.Error("恢复数据源采样周期失败", "dt", previous, "err", rerr)
			}
		}
		r.logger.Warn("重新配置被拒绝", "err", err)
		return err
	}
	r.engineConfig = config

	w := r.engine.Window()
	r.logger.Info("引擎已重新配置",
		"left", w.LeftWin, "right", w.RightWin, "n", w.N, "dt", w.DT,
		"detector", config.Detector.Kind)
	r.publish()
	return nil
}

// retime 把数据源的采样周期改为dt(s)
func (r *Runner) retime(dt float64) error {
	retimer, ok := r.source.(core.Retimer)
	if !ok {
		return fmt.Errorf("%w: %w", sta.ErrInvalidConfig, ErrFixedRate)
	}
	interval := time.Duration(math.Round(dt * float64(time.Second)))
	if err := retimer.SetInterval(interval); err != nil {
		return fmt.Errorf("%w: %w", sta.ErrInvalidConfig, err)
	}
	return nil
}

// Configure 替换整个引擎配置并清零所有状态
// config.DT为0时沿用当前的采样周期
func (r *Runner) Configure(ctx context.Context, config sta.Config) error {
	return r.do(ctx, func() error {
		if config.DT == 0 {
			config.DT = r.engineConfig.DT
		}
		return r.reconfigure(config)
	})
}

// SetWindow 修改事件前后窗口(s)
func (r *Runner) SetWindow(ctx context.Context, left, right float64) error {
	return r.do(ctx, func() error {
		config := r.engineConfig
		config.LeftWinTime = left
		config.RightWinTime = right
		return r.reconfigure(config)
	})
}

// SetDetector 替换事件检测器
func (r *Runner) SetDetector(ctx context.Context, detector sta.DetectorConfig) error {
	return r.do(ctx, func() error {
		config := r.engineConfig
		config.Detector = detector
		return r.reconfigure(config)
	})
}

// SetPeriod 修改采样周期(s)：数据源按新周期产生tick，引擎按新的DT重新配置
func (r *Runner) SetPeriod(ctx context.Context, dt float64) error {
	return r.do(ctx, func() error {
		config := r.engineConfig
		config.DT = dt
		return r.reconfigure(config)
	})
}

// EngineConfig 返回当前的引擎配置
func (r *Runner) EngineConfig(ctx context.Context) (sta.Config, error) {
	var config sta.Config
	err := r.do(ctx, func() error {
		config = r.engineConfig
		return nil
	})
	return config, err
}

// Clear 清除平均结果，保留窗口配置
func (r *Runner) Clear(ctx context.Context) error {
	return r.do(ctx, func() error {
		r.engine.Clear()
		r.logger.Info("平均结果已清除")
		r.publish()
		return nil
	})
}

// Pause 暂停tick投递，暂停期间收到的tick被丢弃
func (r *Runner) Pause(ctx context.Context) error {
	return r.do(ctx, func() error {
		r.setPaused(true)
		return nil
	})
}

// Resume 恢复tick投递，不清除已有结果
func (r *Runner) Resume(ctx context.Context) error {
	return r.do(ctx, func() error {
		r.setPaused(false)
		return nil
	})
}

// TogglePause 切换暂停状态并返回新的状态
func (r *Runner) TogglePause(ctx context.Context) (bool, error) {
	var paused bool
	err := r.do(ctx, func() error {
		r.setPaused(!r.paused)
		paused = r.paused
		return nil
	})
	return paused, err
}

// setPaused 修改暂停状态
func (r *Runner) setPaused(paused bool) {
	if r.paused == paused {
		return
	}
	r.paused = paused
	r.metrics.setPaused(paused)
	r.logger.Info("暂停状态改变", "paused", paused)
	r.publish()
}

// Snapshot 把当前结果复制到dst
func (r *Runner) Snapshot(ctx context.Context, dst *core.Snapshot) error {
	return r.do(ctx, func() error {
		r.fill(dst)
		return nil
	})
}

// Export 把当前平均结果按两列文本写入文件
// 文件I/O在调度goroutine之外进行，不阻塞tick
func (r *Runner) Export(ctx context.Context, path string, mode sta.ExportMode) error {
	var snap core.Snapshot
	if err := r.Snapshot(ctx, &snap); err != nil {
		return err
	}
	if err := sta.ExportFile(path, mode, &snap); err != nil {
		return err
	}
	r.logger.Info("平均结果已导出", "path", path, "mode", mode, "events", snap.EventCount)
	return nil
}

// fill 用引擎状态填充快照
func (r *Runner) fill(dst *core.Snapshot) {
	r.engine.Snapshot(dst)
	dst.Session = r.config.Session
	dst.Paused = r.paused
}

// Subscribe 订阅周期发布的快照
// 快照被所有订阅者共享，只读；订阅者跟不上时旧快照被新的替换
// 返回的函数取消订阅；Stop之后通道被关闭
func (r *Runner) Subscribe() (<-chan *core.Snapshot, func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	ch := make(chan *core.Snapshot, r.config.SubscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	return ch, func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

// publish 更新指标并向所有订阅者发布快照
func (r *Runner) publish() {
	r.updateMetrics()

	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	if len(r.subs) == 0 {
		return
	}

	snap := &core.Snapshot{}
	r.fill(snap)
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			// 丢弃最旧的快照换成最新的
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// updateMetrics 同步引擎计数和数据源丢弃数
func (r *Runner) updateMetrics() {
	r.metrics.events.Set(float64(r.engine.EventCount()))
	r.metrics.completed.Set(float64(r.engine.Completed()))

	if dc, ok := r.source.(dropCounter); ok {
		dropped := dc.Dropped()
		if delta := dropped - r.reported; delta > 0 {
			r.metrics.dropped.Add(float64(delta))
			r.reported = dropped
		}
	}
}

// closeSubscribers 关闭所有订阅通道
func (r *Runner) closeSubscribers() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.closed = true
}
