// Package tui 配置定义
package tui

import (
	"errors"
	"math"
	"time"

	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// Config TUI组件的配置结构
type Config struct {
	RefreshInterval  time.Duration `yaml:"refresh"`      // UI刷新间隔
	MinChartWidth    int           `yaml:"chart_width"`  // 最小图表宽度
	MinChartHeight   int           `yaml:"chart_height"` // 最小图表高度
	MaxChartSize     int           `yaml:"-"`            // 最大图表尺寸（防止极端值）
	ValueBufferRatio float64       `yaml:"-"`            // 自动缩放时上下留出的比例
	YMin             float64       `yaml:"ymin"`         // Y轴下限，与YMax都为0时自动缩放
	YMax             float64       `yaml:"ymax"`         // Y轴上限
	ExportPath       string        `yaml:"export"`       // 按s键保存的文件
	ExportMode       string        `yaml:"export_mode"`  // overwrite / append / exclusive
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  200 * time.Millisecond, // 默认200ms刷新
		MinChartWidth:    20,                     // 最小图表宽度
		MinChartHeight:   5,                      // 最小图表高度
		MaxChartSize:     1000,                   // 最大图表尺寸
		ValueBufferRatio: 0.1,                    // 10%缓冲
		ExportPath:       "sta.dat",
		ExportMode:       sta.ExportOverwrite.String(),
	}
}

// autoScale Y轴是否自动缩放
func (c *Config) autoScale() bool {
	return c.YMin == 0 && c.YMax == 0
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return errors.New("UI刷新间隔必须大于0")
	}

	if c.RefreshInterval < 10*time.Millisecond {
		return errors.New("UI刷新间隔不能小于10ms")
	}

	if c.MinChartWidth <= 0 {
		return errors.New("最小图表宽度必须大于0")
	}

	if c.MinChartHeight <= 0 {
		return errors.New("最小图表高度必须大于0")
	}

	if c.MaxChartSize <= 0 {
		return errors.New("最大图表尺寸必须大于0")
	}

	if c.ValueBufferRatio < 0 {
		return errors.New("值缓冲比例不能为负数")
	}

	if math.IsNaN(c.YMin) || math.IsInf(c.YMin, 0) || math.IsNaN(c.YMax) || math.IsInf(c.YMax, 0) {
		return errors.New("Y轴范围必须是有限值")
	}

	if !c.autoScale() && c.YMin >= c.YMax {
		return errors.New("Y轴下限必须小于上限")
	}

	if c.ExportPath == "" {
		return errors.New("导出文件路径不能为空")
	}

	if _, err := sta.ParseExportMode(c.ExportMode); err != nil {
		return err
	}

	return nil
}
