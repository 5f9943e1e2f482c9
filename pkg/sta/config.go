// Package sta 配置定义
package sta

import (
	"math"
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// MaxWindowSamples 单个窗口允许的最大采样点数，防止极端配置占满内存
const MaxWindowSamples = 1 << 22

// tickEpsilon 时间换算为采样点数时容忍的相对误差
// 例如 0.05/0.0001 在浮点下得到 499.99999999999994
const tickEpsilon = 1e-9

// DetectorConfig 事件检测器配置
type DetectorConfig struct {
	Kind      core.DetectorKind `yaml:"kind" json:"kind"`           // level 或 threshold
	Threshold float64           `yaml:"threshold" json:"threshold"` // 阈值（信号单位），仅threshold使用
	Interval  time.Duration     `yaml:"interval" json:"interval"`   // 两次事件之间的最小间隔，仅threshold使用
}

// Config 引擎配置
type Config struct {
	LeftWinTime  float64        `yaml:"left" json:"left"`   // 事件前窗口(s)
	RightWinTime float64        `yaml:"right" json:"right"` // 事件后窗口(s)
	DT           float64        `yaml:"-" json:"dt"`        // 采样周期(s)，由宿主提供
	Detector     DetectorConfig `yaml:"detector" json:"detector"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LeftWinTime:  0.050, // 默认事件前50ms
		RightWinTime: 0.050, // 默认事件后50ms
		DT:           0.001, // 默认1kHz采样
		Detector: DetectorConfig{
			Kind:      core.DetectorLevel,
			Threshold: 1,                      // 默认阈值1
			Interval:  500 * time.Millisecond, // 默认不应期0.5s
		},
	}
}

// WindowConfig 由时间参数和采样周期推导出的窗口长度
type WindowConfig struct {
	LeftWinTime  float64
	RightWinTime float64
	DT           float64
	LeftWin      int // 事件前采样点数
	RightWin     int // 事件后采样点数
	N            int // 窗口总长度 = LeftWin + RightWin + 1
}

// Window 校验配置并推导窗口长度
func (c *Config) Window() (WindowConfig, error) {
	if err := c.Validate(); err != nil {
		return WindowConfig{}, err
	}

	w := WindowConfig{
		LeftWinTime:  c.LeftWinTime,
		RightWinTime: c.RightWinTime,
		DT:           c.DT,
		LeftWin:      ticksFor(c.LeftWinTime, c.DT),
		RightWin:     ticksFor(c.RightWinTime, c.DT),
	}
	w.N = w.LeftWin + w.RightWin + 1

	if w.LeftWin == 0 && w.RightWin == 0 {
		return WindowConfig{}, configError("window", "左右窗口都小于一个采样周期")
	}
	if w.N > MaxWindowSamples {
		return WindowConfig{}, configError("window", "窗口采样点数超过上限")
	}
	return w, nil
}

// ticksFor 计算时间对应的采样点数：floor(ratio·(1+1e-9))，ratio = seconds/dt
// 只吸收浮点误差，比整数小超过相对1e-9的比值仍向下取整
func ticksFor(seconds, dt float64) int {
	ratio := seconds / dt
	return int(math.Floor(ratio + ratio*tickEpsilon))
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if math.IsNaN(c.DT) || math.IsInf(c.DT, 0) || c.DT <= 0 {
		return configError("dt", "采样周期必须大于0")
	}

	if math.IsNaN(c.LeftWinTime) || math.IsInf(c.LeftWinTime, 0) || c.LeftWinTime < 0 {
		return configError("left", "事件前窗口必须是非负有限值")
	}

	if math.IsNaN(c.RightWinTime) || math.IsInf(c.RightWinTime, 0) || c.RightWinTime < 0 {
		return configError("right", "事件后窗口必须是非负有限值")
	}

	if c.LeftWinTime/c.DT+c.RightWinTime/c.DT >= MaxWindowSamples {
		return configError("window", "窗口采样点数超过上限")
	}

	return c.Detector.Validate()
}

// Validate 验证检测器配置
func (d *DetectorConfig) Validate() error {
	switch d.Kind {
	case core.DetectorLevel:
		return nil
	case core.DetectorThreshold:
		if math.IsNaN(d.Threshold) {
			return configError("threshold", "阈值不能为NaN")
		}
		if d.Interval < 0 {
			return configError("interval", "事件最小间隔不能为负数")
		}
		return nil
	default:
		return configError("detector", "未知的检测器类型 '"+string(d.Kind)+"'")
	}
}

// NewDetector 根据配置创建对应的检测策略
func (d *DetectorConfig) NewDetector() (Detector, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Kind == core.DetectorThreshold {
		return &ThresholdDetector{Threshold: d.Threshold, Interval: d.Interval}, nil
	}
	return LevelDetector{}, nil
}

// TimeAxis 计算窗口的时间轴，time[i] = DT*i - LeftWinTime
func (w WindowConfig) TimeAxis(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < w.N; i++ {
		dst = append(dst, w.DT*float64(i)-w.LeftWinTime)
	}
	return dst
}
