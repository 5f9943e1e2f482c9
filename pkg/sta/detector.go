// Package sta 事件检测策略
package sta

import (
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// TriggerState 触发状态，只在tick中被检测器和窗口状态机修改
type TriggerState struct {
	Triggered     bool      // 是否处于采集窗口中
	WinCount      int       // 触发后经过的tick数
	LastEventTime time.Time // 最近一次被接受事件的时间，零值表示没有
}

// reset 恢复到初始状态 {false, 0, 0}
func (s *TriggerState) reset() {
	*s = TriggerState{}
}

// Detector 事件检测策略
// Detect 在空闲状态下每个tick被调用一次，返回是否接受一个新事件
// 策略可以在接受事件时更新st中与自身有关的字段
type Detector interface {
	Detect(in core.Tick, st *TriggerState) bool
	Kind() core.DetectorKind
}

// LevelDetector 触发通道恰好等于1时触发，没有不应期
type LevelDetector struct{}

// Detect 实现Detector接口
func (LevelDetector) Detect(in core.Tick, st *TriggerState) bool {
	return !st.Triggered && in.Trigger == 1
}

// Kind 实现Detector接口
func (LevelDetector) Kind() core.DetectorKind {
	return core.DetectorLevel
}

// ThresholdDetector 触发通道达到阈值且距离上次事件超过Interval时触发
type ThresholdDetector struct {
	Threshold float64
	Interval  time.Duration
}

// Detect 实现Detector接口
func (d *ThresholdDetector) Detect(in core.Tick, st *TriggerState) bool {
	if st.Triggered || in.Trigger < d.Threshold {
		return false
	}
	// 零值LastEventTime时Sub会饱和到最大Duration，第一次越过阈值总是被接受
	if in.Now.Sub(st.LastEventTime) <= d.Interval {
		return false
	}
	st.LastEventTime = in.Now
	return true
}

// Kind 实现Detector接口
func (d *ThresholdDetector) Kind() core.DetectorKind {
	return core.DetectorThreshold
}
