// Package runner 配置定义
package runner

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kevin-Rudy/gosta/pkg/rt"
)

// Config 宿主调度配置
type Config struct {
	RefreshInterval  time.Duration `yaml:"refresh"`     // 向订阅者发布快照的间隔
	SubscriberBuffer int           `yaml:"subscriber"`  // 每个订阅通道的缓冲区大小
	CommandTimeout   time.Duration `yaml:"cmd_timeout"` // 外部命令等待执行的最长时间
	RT               rt.Config     `yaml:"rt"`          // 实时调优

	Session    string                `yaml:"-"` // 会话标识，写入快照和指标
	Logger     *slog.Logger          `yaml:"-"` // 为nil时使用slog.Default()
	Registerer prometheus.Registerer `yaml:"-"` // 为nil时不注册指标
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  200 * time.Millisecond, // 默认200ms刷新
		SubscriberBuffer: 1,                      // 只保留最新的一个快照
		CommandTimeout:   2 * time.Second,        // 默认2秒
		RT:               *rt.DefaultConfig(),
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return errors.New("刷新间隔必须大于0")
	}

	if c.RefreshInterval < 10*time.Millisecond {
		return errors.New("刷新间隔不能小于10ms")
	}

	if c.SubscriberBuffer <= 0 {
		return errors.New("订阅缓冲区大小必须大于0")
	}

	if c.CommandTimeout <= 0 {
		return errors.New("命令超时必须大于0")
	}

	return c.RT.Validate()
}

// logger 返回配置的日志记录器
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
