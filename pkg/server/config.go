// Package server 配置定义
package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config HTTP服务配置
type Config struct {
	Addr            string        `yaml:"addr"`             // 监听地址，例如 127.0.0.1:8080
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // 优雅关闭等待时间
	ClientBuffer    int           `yaml:"client_buffer"`    // 每个websocket客户端的发送缓冲区
	EnableMetrics   bool          `yaml:"metrics"`          // 是否提供 /metrics

	Gatherer prometheus.Gatherer `yaml:"-"` // 为nil时使用prometheus.DefaultGatherer
	Logger   *slog.Logger        `yaml:"-"` // 为nil时使用slog.Default()
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		ShutdownTimeout: 5 * time.Second,
		ClientBuffer:    16,
		EnableMetrics:   true,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("监听地址不能为空")
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("关闭超时必须大于0")
	}

	if c.ClientBuffer <= 0 {
		return errors.New("客户端缓冲区大小必须大于0")
	}

	return nil
}

// logger 返回配置的日志记录器
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// gatherer 返回配置的指标收集器
func (c *Config) gatherer() prometheus.Gatherer {
	if c.Gatherer != nil {
		return c.Gatherer
	}
	return prometheus.DefaultGatherer
}
