// Package source 合成信号
package source

import (
	"math"
	"math/rand/v2"
	"time"
)

// SyntheticReader 产生带噪声的尖峰信号，触发通道在每个尖峰起点输出1
// 尖峰形状为alpha函数 (t/τ)·e^(1-t/τ)，峰值出现在事件后τ处
type SyntheticReader struct {
	config SyntheticConfig
	dt     float64
	rng    *rand.Rand

	index     int64 // 当前采样下标
	nextEvent int64 // 下一个事件的采样下标
	lastEvent int64 // 上一个事件的采样下标，-1表示还没有
}

// NewSyntheticReader 创建合成信号读取器
func NewSyntheticReader(config SyntheticConfig, interval time.Duration) *SyntheticReader {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &SyntheticReader{
		config: config,
		dt:     interval.Seconds(),
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	s.Rewind()
	return s
}

// ReadSample 实现SampleReader接口，合成信号永远不会结束
func (s *SyntheticReader) ReadSample() (signal, trigger float64, err error) {
	if s.index == s.nextEvent {
		trigger = 1
		s.lastEvent = s.index
		s.nextEvent = s.index + s.gap()
	}

	if s.lastEvent >= 0 {
		t := float64(s.index-s.lastEvent) * s.dt
		tau := s.config.Width.Seconds()
		signal = s.config.Amplitude * (t / tau) * math.Exp(1-t/tau)
	}
	signal += s.config.Noise * s.rng.NormFloat64()

	s.index++
	return signal, trigger, nil
}

// SetInterval 修改采样周期，已抽取的下一个事件位置不变
func (s *SyntheticReader) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.dt = interval.Seconds()
	}
}

// Rewind 从头开始产生信号（随机序列继续）
func (s *SyntheticReader) Rewind() error {
	s.index = 0
	s.lastEvent = -1
	s.nextEvent = s.gap()
	return nil
}

// gap 按指数分布抽取到下一个事件的采样数，至少为1
func (s *SyntheticReader) gap() int64 {
	if s.config.Rate <= 0 {
		return math.MaxInt64
	}
	ticks := int64(s.rng.ExpFloat64() / s.config.Rate / s.dt)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}
