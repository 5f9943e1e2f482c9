// Package source 配置定义
package source

import (
	"errors"
	"fmt"
	"time"
)

// Kind 数据源类型
type Kind string

const (
	KindSynthetic Kind = "synthetic" // 合成信号：噪声 + 周期性尖峰
	KindWAV       Kind = "wav"       // 双声道WAV回放：声道0为信号，声道1为触发
	KindText      Kind = "text"      // 两列文本回放，"-" 表示标准输入
	KindUDP       Kind = "udp"       // UDP采集：每个数据报包含若干对小端float64
)

// SyntheticConfig 合成信号参数
type SyntheticConfig struct {
	Rate      float64       `yaml:"rate"`      // 平均事件频率(Hz)
	Amplitude float64       `yaml:"amplitude"` // 尖峰幅度
	Noise     float64       `yaml:"noise"`     // 高斯噪声标准差
	Width     time.Duration `yaml:"width"`     // 尖峰时间常数
	Seed      uint64        `yaml:"seed"`      // 随机种子，0表示按时间取种
}

// MinInterval 允许的最小采样周期
const MinInterval = 10 * time.Microsecond

// Config 数据源配置结构
type Config struct {
	Kind       Kind            `yaml:"kind"`
	Path       string          `yaml:"path"`     // wav/text 文件路径
	Addr       string          `yaml:"addr"`     // udp 监听地址
	Interval   time.Duration   `yaml:"interval"` // 采样周期
	BufferSize int             `yaml:"buffer"`   // 数据通道缓冲区大小
	Loop       bool            `yaml:"loop"`     // 文件读完后从头开始
	Synthetic  SyntheticConfig `yaml:"synthetic"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Kind:       KindSynthetic,
		Interval:   time.Millisecond, // 默认1kHz采样
		BufferSize: 4096,             // 默认4096缓冲区大小
		Synthetic: SyntheticConfig{
			Rate:      5,                    // 平均每秒5个事件
			Amplitude: 1,                    // 尖峰幅度1
			Noise:     0.2,                  // 噪声标准差0.2
			Width:     5 * time.Millisecond, // 5ms时间常数
		},
	}
}

// Seconds 返回采样周期(s)
func (c *Config) Seconds() float64 {
	return c.Interval.Seconds()
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("采样周期必须大于0")
	}

	if c.Interval < MinInterval {
		return fmt.Errorf("采样周期不能小于%v", MinInterval)
	}

	if c.BufferSize <= 0 {
		return errors.New("缓冲区大小必须大于0")
	}

	switch c.Kind {
	case KindSynthetic:
		if c.Synthetic.Rate < 0 {
			return errors.New("合成事件频率不能为负数")
		}
		if c.Synthetic.Noise < 0 {
			return errors.New("噪声标准差不能为负数")
		}
		if c.Synthetic.Width <= 0 {
			return errors.New("尖峰时间常数必须大于0")
		}
	case KindWAV, KindText:
		if c.Path == "" {
			return fmt.Errorf("%s数据源必须指定文件路径", c.Kind)
		}
	case KindUDP:
		if c.Addr == "" {
			return errors.New("udp数据源必须指定监听地址")
		}
	default:
		return fmt.Errorf("未知的数据源类型 '%s'", c.Kind)
	}

	return nil
}
