// Package sta 窗口平均状态机
package sta

import (
	"gonum.org/v1/gonum/floats"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// Engine 事件触发平均引擎
// 引擎本身不是并发安全的：Tick、Configure、Clear必须在同一个调用上下文中串行执行，
// 宿主负责在重新配置期间暂停tick的投递
type Engine struct {
	window   WindowConfig
	detector Detector

	signal  *Ring[float64] // 回看缓冲区，容量为window.N
	sum     []float64      // 每个窗口位置的累加和
	average []float64      // sum / eventCount
	time    []float64      // 时间轴

	eventCount int // 已接受的事件数（包括正在采集的窗口）
	completed  int // 已完成累加的窗口数
	trig       TriggerState

	count   int64   // tick计数
	sysTime float64 // count * DT
}

// NewEngine 按配置创建引擎
func NewEngine(config *Config) (*Engine, error) {
	e := &Engine{signal: &Ring[float64]{}}
	if err := e.Configure(config); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithOptions 使用选项模式创建引擎
func NewEngineWithOptions(opts ...Option) (*Engine, error) {
	return NewEngine(NewConfigWithOptions(opts...))
}

// Configure 重新计算窗口长度并把所有状态清零
// 出错时保留之前的有效状态
func (e *Engine) Configure(config *Config) error {
	window, err := config.Window()
	if err != nil {
		return err
	}
	detector, err := config.Detector.NewDetector()
	if err != nil {
		return err
	}

	e.window = window
	e.detector = detector

	e.signal.Resize(window.N)
	e.sum = resize(e.sum, window.N)
	e.average = resize(e.average, window.N)
	e.time = window.TimeAxis(e.time)

	e.eventCount = 0
	e.completed = 0
	e.trig.reset()
	e.count = 0
	e.sysTime = 0
	return nil
}

// resize 把切片调整为长度n并清零，容量足够时复用
func resize(s []float64, n int) []float64 {
	if cap(s) >= n {
		s = s[:n]
	} else {
		s = make([]float64, n)
	}
	clear(s)
	return s
}

// Clear 清除累加结果和触发状态，保留当前窗口配置
func (e *Engine) Clear() {
	clear(e.sum)
	clear(e.average)
	e.signal.Reset()
	e.eventCount = 0
	e.completed = 0
	e.trig.reset()
}

// Tick 处理一个采样周期的输入
// 稳态下不分配内存；窗口完成的那个tick做一次O(n)的累加
func (e *Engine) Tick(in core.Tick) {
	e.sysTime = float64(e.count) * e.window.DT
	// 总是缓冲，事件发生前的历史必须完整
	e.signal.Push(in.Signal)

	if e.trig.Triggered {
		e.trig.WinCount++
		if e.trig.WinCount == e.window.RightWin {
			e.fold()
		} else if e.trig.WinCount > e.window.RightWin {
			// 完成后的下一个tick才回到空闲
			e.trig.WinCount = 0
			e.trig.Triggered = false
		}
	} else if e.detector.Detect(in, &e.trig) {
		e.trig.Triggered = true
		e.trig.WinCount = 0
		e.eventCount++
		if e.window.RightWin == 0 {
			// 没有事件后窗口：触发的这个tick缓冲区里已经是完整窗口
			e.fold()
		}
	}

	e.count++
}

// fold 把缓冲区当前内容累加到sum并重新计算平均值
// 此时缓冲区正好是 [event-LeftWin, event+RightWin] 这n个采样
func (e *Engine) fold() {
	older, newer := e.signal.Segments()
	floats.Add(e.sum[:len(older)], older)
	floats.Add(e.sum[len(older):], newer)

	count := float64(e.eventCount)
	for i := range e.average {
		e.average[i] = e.sum[i] / count
	}
	e.completed++
}

// Window 返回当前窗口配置
func (e *Engine) Window() WindowConfig {
	return e.window
}

// DetectorKind 返回当前检测器类型
func (e *Engine) DetectorKind() core.DetectorKind {
	return e.detector.Kind()
}

// EventCount 返回已接受的事件数
func (e *Engine) EventCount() int {
	return e.eventCount
}

// Completed 返回已完成累加的窗口数
func (e *Engine) Completed() int {
	return e.completed
}

// SysTime 返回引擎时间(s)
func (e *Engine) SysTime() float64 {
	return e.sysTime
}

// Ticks 返回自上次Configure以来处理的tick数
func (e *Engine) Ticks() int64 {
	return e.count
}

// TriggerState 返回触发状态的副本
func (e *Engine) TriggerState() TriggerState {
	return e.trig
}

// Snapshot 把当前结果复制到dst，dst的切片容量足够时不分配内存
// eventCount为0时平均值全为零
func (e *Engine) Snapshot(dst *core.Snapshot) {
	dst.EventCount = e.eventCount
	dst.SysTime = e.sysTime
	dst.DT = e.window.DT
	dst.LeftWinTime = e.window.LeftWinTime
	dst.RightWinTime = e.window.RightWinTime
	dst.Detector = e.detector.Kind()
	dst.Triggered = e.trig.Triggered
	dst.Time = append(dst.Time[:0], e.time...)
	dst.Average = append(dst.Average[:0], e.average...)
}
