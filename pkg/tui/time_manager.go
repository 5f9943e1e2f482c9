// Package tui 时间轴映射模块
package tui

// timeWindow 返回快照时间轴的起止偏移(s)
func timeWindow(time []float64) (start, end float64) {
	if len(time) == 0 {
		return 0, 0
	}
	return time[0], time[len(time)-1]
}

// offsetToX 将相对事件的时间偏移转换为X坐标
func offsetToX(offset, windowStart, windowEnd float64, chartWidth int) int {
	windowDuration := windowEnd - windowStart
	if windowDuration <= 0 {
		return 0
	}

	ratio := (offset - windowStart) / windowDuration
	if ratio < 0 {
		return 0
	}
	x := int(ratio * float64(chartWidth-1))
	if x >= chartWidth {
		x = chartWidth - 1
	}
	return x
}
