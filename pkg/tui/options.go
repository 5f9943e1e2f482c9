// Package tui 选项模式支持
package tui

import (
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// Option TUI配置选项函数类型
type Option func(*Config)

// WithRefreshInterval 设置UI刷新间隔
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.RefreshInterval = interval
	}
}

// WithChartSize 设置图表尺寸
func WithChartSize(width, height int) Option {
	return func(c *Config) {
		c.MinChartWidth = width
		c.MinChartHeight = height
	}
}

// WithYRange 设置固定的Y轴范围，都为0时自动缩放
func WithYRange(min, max float64) Option {
	return func(c *Config) {
		c.YMin = min
		c.YMax = max
	}
}

// WithValueBufferRatio 设置值缓冲比例
func WithValueBufferRatio(ratio float64) Option {
	return func(c *Config) {
		c.ValueBufferRatio = ratio
	}
}

// WithExport 设置按s键保存的文件和写入模式
func WithExport(path string, mode sta.ExportMode) Option {
	return func(c *Config) {
		c.ExportPath = path
		c.ExportMode = mode.String()
	}
}

// NewConfigWithOptions 使用选项模式创建TUI配置
func NewConfigWithOptions(opts ...Option) *Config {
	config := DefaultConfig()

	// 应用所有选项
	for _, opt := range opts {
		opt(config)
	}

	return config
}
