// Package tui 图表渲染模块
package tui

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// brailleCell 定义盲文字符的cell结构
type brailleCell struct {
	char  int
	color string
}

// brailleDotMap 盲文点阵的映射关系 (2x4 grid)
var brailleDotMap = [4][2]int{
	{0b00000001, 0b00001000}, // (y:0, x:0), (y:0, x:1)
	{0b00000010, 0b00010000}, // (y:1, x:0), (y:1, x:1)
	{0b00000100, 0b00100000}, // (y:2, x:0), (y:2, x:1)
	{0b01000000, 0b10000000}, // (y:3, x:0), (y:3, x:1)
}

// validateChartSize 验证图表尺寸是否合理
func (t *TUI) validateChartSize(width, height int) string {
	if height < t.tuiConfig.MinChartHeight || width < t.tuiConfig.MinChartWidth {
		return "终端尺寸过小"
	}
	if width > t.tuiConfig.MaxChartSize || height > t.tuiConfig.MaxChartSize {
		return "终端尺寸过大"
	}
	return ""
}

// calculateValueRange 计算Y轴的值范围
func (t *TUI) calculateValueRange(values []float64) (minVal, maxVal, valueRange float64, errMsg string) {
	if len(values) == 0 {
		return 0, 0, 0, "没有有效数据"
	}

	if t.tuiConfig.autoScale() {
		minVal, maxVal = floats.Min(values), floats.Max(values)
		if math.IsNaN(minVal) || math.IsInf(minVal, 0) || math.IsNaN(maxVal) || math.IsInf(maxVal, 0) {
			return 0, 0, 0, "平均值包含无效数据"
		}

		// 如果所有值都一样，特殊处理
		if maxVal == minVal {
			maxVal++
			minVal--
		}

		// 上下各留出缓冲
		pad := (maxVal - minVal) * t.tuiConfig.ValueBufferRatio
		maxVal += pad
		minVal -= pad
	} else {
		minVal, maxVal = t.tuiConfig.YMin, t.tuiConfig.YMax
	}

	// 围绕中心缩放
	if t.zoom > 0 && t.zoom != 1 {
		center := (maxVal + minVal) / 2
		half := (maxVal - minVal) / 2 / t.zoom
		minVal, maxVal = center-half, center+half
	}

	valueRange = maxVal - minVal
	if valueRange <= 0 {
		valueRange = 1
	}

	return minVal, maxVal, valueRange, ""
}

// valueToY 将幅值转换为高分辨率Y坐标
func valueToY(value, minVal, valueRange float64, pixelHeight int) int {
	normalized := (value - minVal) / valueRange
	if math.IsNaN(normalized) {
		return 0
	}
	y := int(math.Round((1.0 - normalized) * float64(pixelHeight-1)))
	if y < 0 {
		return 0
	}
	if y >= pixelHeight {
		return pixelHeight - 1
	}
	return y
}

// drawAverageChart 绘制平均波形图，X轴为相对事件的时间偏移
func (t *TUI) drawAverageChart(snap *core.Snapshot, width, height int) string {
	// 检查图表尺寸是否合理
	if sizeErr := t.validateChartSize(width, height); sizeErr != "" {
		return sizeErr
	}

	if snap.EventCount == 0 || len(snap.Average) == 0 || len(snap.Time) != len(snap.Average) {
		return "[yellow]等待第一个事件...[white]"
	}

	minVal, maxVal, valueRange, errMsg := t.calculateValueRange(snap.Average)
	if errMsg != "" {
		return errMsg
	}

	// 动态计算Y轴标签宽度
	topLabel := formatValue(maxVal)
	bottomLabel := formatValue(minVal)
	maxLabelLen := len(topLabel)
	if len(bottomLabel) > maxLabelLen {
		maxLabelLen = len(bottomLabel)
	}
	yAxisLabelWidth := maxLabelLen + 2 // +2 为│分隔符和右侧空格留出缓冲

	// 准备画布尺寸
	chartBodyHeight := height - 2 // 为X轴和时间刻度留出2行空间
	chartWidth := width - yAxisLabelWidth
	if chartBodyHeight <= 0 || chartWidth <= 0 {
		return "可绘制区域过小"
	}

	canvas := make([][]brailleCell, chartWidth)
	for i := range canvas {
		canvas[i] = make([]brailleCell, chartBodyHeight)
	}

	pixelWidth, pixelHeight := chartWidth*2, chartBodyHeight*4
	windowStart, windowEnd := timeWindow(snap.Time)

	// 零线和事件时刻标记
	if minVal <= 0 && maxVal >= 0 {
		zeroY := valueToY(0, minVal, valueRange, pixelHeight)
		t.drawBrailleLine(canvas, 0, zeroY, pixelWidth-1, zeroY, pixelHeight, pixelWidth, baselineColor)
	}
	if windowStart <= 0 && windowEnd >= 0 {
		eventX := offsetToX(0, windowStart, windowEnd, pixelWidth)
		t.drawBrailleLine(canvas, eventX, 0, eventX, pixelHeight-1, pixelHeight, pixelWidth, baselineColor)
	}

	// 平均波形
	lastX, lastY := -1, -1
	for i, value := range snap.Average {
		currX := offsetToX(snap.Time[i], windowStart, windowEnd, pixelWidth)
		currY := valueToY(value, minVal, valueRange, pixelHeight)

		if lastX == -1 {
			t.drawBrailleLine(canvas, currX, currY, currX, currY, pixelHeight, pixelWidth, seriesColor)
		} else {
			t.drawBrailleLine(canvas, lastX, lastY, currX, currY, pixelHeight, pixelWidth, seriesColor)
		}
		lastX, lastY = currX, currY
	}

	// 构建输出字符串
	lines := make([]string, 0, height)

	yAxisLabelCount := 5
	if chartBodyHeight < yAxisLabelCount {
		yAxisLabelCount = chartBodyHeight
	}

	// 预先计算所有Y轴标签及其对应的行号
	yAxisLabels := make(map[int]string)
	if yAxisLabelCount > 1 {
		for i := 0; i < yAxisLabelCount; i++ {
			normalized := float64(i) / float64(yAxisLabelCount-1)
			value := maxVal - normalized*valueRange
			pixelRow := int(normalized * float64(chartBodyHeight-1))
			yAxisLabels[pixelRow] = formatValue(value)
		}
	}

	for i := 0; i < chartBodyHeight; i++ {
		var line strings.Builder
		fmt.Fprintf(&line, "[gray]%*s[white] [gray]│[white]", yAxisLabelWidth-2, yAxisLabels[i])

		for j := 0; j < chartWidth; j++ {
			cell := canvas[j][i]
			if cell.char == 0 {
				line.WriteByte(' ')
			} else {
				line.WriteString(cell.color + string(rune(0x2800+cell.char)) + "[white]")
			}
		}
		lines = append(lines, line.String())
	}

	// X轴
	xAxisLine := fmt.Sprintf("%-*s└%s", yAxisLabelWidth-1, "", strings.Repeat("─", chartWidth))
	lines = append(lines, "[gray]"+xAxisLine+"[white]")

	// X轴刻度：窗口的起止偏移
	startStr := formatOffset(windowStart)
	endStr := formatOffset(windowEnd)
	spaceCount := chartWidth - len(startStr) - len(endStr)
	if spaceCount < 1 {
		spaceCount = 1
	}
	timeLine := fmt.Sprintf("%-*s%s%*s%s", yAxisLabelWidth, "", startStr, spaceCount, "", endStr)
	lines = append(lines, "[gray]"+timeLine+"[white]")

	// 确保输出不会超过可用高度，保证X轴总是可见
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// drawBrailleLine 使用布雷森汉姆算法在盲文画布上绘制线段
func (t *TUI) drawBrailleLine(canvas [][]brailleCell, x1, y1, x2, y2, maxHeight, pixelWidth int, color string) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	x, y := x1, y1
	for {
		if y >= 0 && y < maxHeight && x >= 0 && x < pixelWidth {
			// 每个盲文字符覆盖2x4个子像素
			canvasX := x / 2
			canvasY := y / 4
			if canvasX < len(canvas) && canvasY < len(canvas[canvasX]) {
				canvas[canvasX][canvasY].char |= brailleDotMap[y%4][x%2]
				canvas[canvasX][canvasY].color = color
			}
		}

		if x == x2 && y == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}
