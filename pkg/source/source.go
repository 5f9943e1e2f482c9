// Package source 实现了core.DataSource接口，按采样周期产生Tick
// 根据配置选择合成信号、文件回放或UDP采集
package source

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// SampleReader 逐个读取 (信号, 触发) 采样对
// 数据读完时返回io.EOF
type SampleReader interface {
	ReadSample() (signal, trigger float64, err error)
}

// rewinder 支持从头重新读取的采样读取器
type rewinder interface {
	Rewind() error
}

// intervalSetter 依赖采样周期产生数据的读取器（例如合成信号）
type intervalSetter interface {
	SetInterval(interval time.Duration)
}

// baseSource 定义了所有数据源实现的基本结构
type baseSource struct {
	config    *Config
	dataChan  chan core.Tick // 数据输出通道
	stopChan  chan struct{}  // 停止信号通道
	wg        sync.WaitGroup // 等待组，用于优雅关闭
	running   bool           // 运行状态
	runningMu sync.RWMutex   // 保护running状态的锁
	closeOnce sync.Once      // 数据通道只关闭一次
	dropped   atomic.Int64   // 通道已满时丢弃的采样数
	interval  atomic.Int64   // 当前采样周期(ns)，可在运行中修改
	retime    chan struct{}  // 采样周期变化通知
}

// newBaseSource 创建基础数据源结构
func newBaseSource(config *Config) *baseSource {
	bs := &baseSource{
		config:   config,
		dataChan: make(chan core.Tick, config.BufferSize),
		stopChan: make(chan struct{}),
		retime:   make(chan struct{}, 1),
	}
	bs.interval.Store(int64(config.Interval))
	return bs
}

// DataStream 实现core.DataSource接口
func (bs *baseSource) DataStream() <-chan core.Tick {
	return bs.dataChan
}

// Stop 实现core.DataSource接口
func (bs *baseSource) Stop() {
	bs.runningMu.Lock()
	if !bs.running {
		bs.runningMu.Unlock()
		bs.closeData()
		return
	}
	bs.running = false
	bs.runningMu.Unlock()

	// 发送停止信号
	close(bs.stopChan)

	// 等待所有goroutine结束
	bs.wg.Wait()

	bs.closeData()
}

// Dropped 返回因通道已满而丢弃的采样数
func (bs *baseSource) Dropped() int64 {
	return bs.dropped.Load()
}

// Interval 返回当前采样周期
func (bs *baseSource) Interval() time.Duration {
	return time.Duration(bs.interval.Load())
}

// SetInterval 实现core.Retimer接口，运行中修改立即生效
func (bs *baseSource) SetInterval(interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("采样周期不能小于%v", MinInterval)
	}
	bs.interval.Store(int64(interval))
	select {
	case bs.retime <- struct{}{}:
	default:
		// 已有未处理的通知，run会读取最新的值
	}
	return nil
}

// closeData 关闭数据通道，可以被生产者和Stop重复调用
func (bs *baseSource) closeData() {
	bs.closeOnce.Do(func() {
		close(bs.dataChan)
	})
}

// isRunning 检查是否正在运行
func (bs *baseSource) isRunning() bool {
	bs.runningMu.RLock()
	defer bs.runningMu.RUnlock()
	return bs.running
}

// setRunning 设置运行状态
func (bs *baseSource) setRunning(running bool) {
	bs.runningMu.Lock()
	defer bs.runningMu.Unlock()
	bs.running = running
}

// sendTick 发送一个Tick到数据通道
// 返回false表示已收到停止信号
func (bs *baseSource) sendTick(tick core.Tick) bool {
	select {
	case bs.dataChan <- tick:
		return true
	case <-bs.stopChan:
		return false
	default:
		// 通道满了，丢弃这个采样并计数
		bs.dropped.Add(1)
		return true
	}
}

// pacedSource 按采样周期从SampleReader读取数据
type pacedSource struct {
	*baseSource
	reader SampleReader
	closer io.Closer
}

// newPacedSource 创建按周期节拍读取的数据源
func newPacedSource(config *Config, reader SampleReader) *pacedSource {
	p := &pacedSource{
		baseSource: newBaseSource(config),
		reader:     reader,
	}
	if c, ok := reader.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// Start 实现core.DataSource接口
func (p *pacedSource) Start() {
	p.setRunning(true)
	p.wg.Add(1)
	go p.run()
}

// run 按采样周期读取并发送采样
func (p *pacedSource) run() {
	defer p.wg.Done()
	if p.closer != nil {
		defer p.closer.Close()
	}

	interval := p.Interval()
	p.applyInterval(interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-p.retime:
			interval = p.Interval()
			p.applyInterval(interval)
			ticker.Reset(interval)
		case now := <-ticker.C:
			signal, trigger, err := p.readSample()
			if err != nil {
				// 数据读完或读取失败，关闭通道通知消费者
				p.closeData()
				return
			}
			if !p.sendTick(core.Tick{Signal: signal, Trigger: trigger, Now: now}) {
				return
			}
		}
	}
}

// applyInterval 把采样周期同步给依赖它的读取器，只在run中调用
func (p *pacedSource) applyInterval(interval time.Duration) {
	if r, ok := p.reader.(intervalSetter); ok {
		r.SetInterval(interval)
	}
}

// readSample 读取一个采样，需要时从头循环
func (p *pacedSource) readSample() (float64, float64, error) {
	signal, trigger, err := p.reader.ReadSample()
	if errors.Is(err, io.EOF) && p.config.Loop {
		r, ok := p.reader.(rewinder)
		if !ok {
			return 0, 0, err
		}
		if err := r.Rewind(); err != nil {
			return 0, 0, err
		}
		return p.reader.ReadSample()
	}
	return signal, trigger, err
}

// OpenReader 按配置打开采样读取器（udp除外）
// 离线模式直接使用它，不经过节拍
func OpenReader(config *Config) (SampleReader, error) {
	switch config.Kind {
	case KindSynthetic:
		return NewSyntheticReader(config.Synthetic, config.Interval), nil
	case KindWAV:
		r, err := OpenWAVReader(config.Path)
		if err != nil {
			return nil, err
		}
		return r, nil
	case KindText:
		r, err := OpenTextReader(config.Path)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, errors.New("数据源 '" + string(config.Kind) + "' 不支持直接读取")
	}
}

// NewSource 创建新的数据源实例
func NewSource(config *Config) (core.DataSource, error) {
	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Kind == KindUDP {
		u, err := newUDPSource(config)
		if err != nil {
			return nil, err
		}
		return u, nil
	}

	reader, err := OpenReader(config)
	if err != nil {
		return nil, err
	}
	return newPacedSource(config, reader), nil
}
