// Package source 选项模式支持
package source

import (
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// Option 配置选项函数类型
type Option func(*Config)

// WithKind 设置数据源类型
func WithKind(kind Kind) Option {
	return func(c *Config) {
		c.Kind = kind
	}
}

// WithPath 设置回放文件路径
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithAddr 设置UDP监听地址
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithInterval 设置采样周期
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithBufferSize 设置缓冲区大小
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// WithLoop 设置文件回放是否循环
func WithLoop(loop bool) Option {
	return func(c *Config) {
		c.Loop = loop
	}
}

// WithSynthetic 设置合成信号参数
func WithSynthetic(synthetic SyntheticConfig) Option {
	return func(c *Config) {
		c.Synthetic = synthetic
	}
}

// NewSourceWithOptions 使用选项模式创建数据源
func NewSourceWithOptions(opts ...Option) (core.DataSource, error) {
	config := DefaultConfig()

	// 应用所有选项
	for _, opt := range opts {
		opt(config)
	}

	return NewSource(config)
}
