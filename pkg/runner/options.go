// Package runner 选项模式支持
package runner

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// Option 配置选项函数类型
type Option func(*Config)

// WithRefreshInterval 设置快照发布间隔
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.RefreshInterval = interval
	}
}

// WithSubscriberBuffer 设置订阅通道缓冲区大小
func WithSubscriberBuffer(size int) Option {
	return func(c *Config) {
		c.SubscriberBuffer = size
	}
}

// WithCommandTimeout 设置命令超时
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.CommandTimeout = timeout
	}
}

// WithRealtime 设置内存锁定和CPU绑定，cpu为-1表示不绑定
func WithRealtime(lockMemory bool, cpu int) Option {
	return func(c *Config) {
		c.RT.LockMemory = lockMemory
		c.RT.CPU = cpu
	}
}

// WithSession 设置会话标识
func WithSession(session string) Option {
	return func(c *Config) {
		c.Session = session
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRegisterer 设置指标注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// NewRunnerWithOptions 使用选项模式创建宿主调度器
func NewRunnerWithOptions(source core.DataSource, engine *sta.Config, opts ...Option) (*Runner, error) {
	config := DefaultConfig()

	// 应用所有选项
	for _, opt := range opts {
		opt(config)
	}

	return NewRunner(source, engine, config)
}
