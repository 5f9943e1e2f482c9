// Package sta 选项模式支持
package sta

import (
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// Option 配置选项函数类型
type Option func(*Config)

// WithWindow 设置事件前后窗口（秒）
func WithWindow(left, right float64) Option {
	return func(c *Config) {
		c.LeftWinTime = left
		c.RightWinTime = right
	}
}

// WithPeriod 设置采样周期（秒）
func WithPeriod(dt float64) Option {
	return func(c *Config) {
		c.DT = dt
	}
}

// WithLevelDetector 使用电平触发
func WithLevelDetector() Option {
	return func(c *Config) {
		c.Detector.Kind = core.DetectorLevel
	}
}

// WithThresholdDetector 使用阈值 + 不应期触发
func WithThresholdDetector(threshold float64, interval time.Duration) Option {
	return func(c *Config) {
		c.Detector = DetectorConfig{
			Kind:      core.DetectorThreshold,
			Threshold: threshold,
			Interval:  interval,
		}
	}
}

// NewConfigWithOptions 使用选项模式创建配置
func NewConfigWithOptions(opts ...Option) *Config {
	config := DefaultConfig()

	// 应用所有选项
	for _, opt := range opts {
		opt(config)
	}

	return config
}
