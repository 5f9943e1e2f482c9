// Package tui 工具函数和辅助类型
package tui

import (
	"fmt"
	"math"
)

const (
	seriesColor   = "[green]"
	baselineColor = "[gray]"
)

// formatValue 格式化平均波形的幅值
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.4g", v)
}

// formatOffset 提供自适应的时间偏移格式化，输入单位为秒
func formatOffset(seconds float64) string {
	if math.IsNaN(seconds) {
		return "N/A"
	}

	if math.Abs(seconds) < 1.0 {
		// 小于1s，显示为毫秒
		return fmt.Sprintf("%.4gms", seconds*1000)
	}
	return fmt.Sprintf("%.4gs", seconds)
}

// abs 返回整数的绝对值
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
