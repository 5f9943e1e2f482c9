// Package tui 布局管理模块
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpText = "[gray]p[white] 暂停/继续  [gray]c[white] 清除  [gray]s[white] 保存  [gray]↑/↓[white] 缩放  [gray]a[white] 自动缩放  [gray]q[white] 退出"

// setupUI 设置用户界面布局
func (t *TUI) setupUI() {
	// 设置图表属性
	t.chart.SetWordWrap(false)
	t.chart.SetDynamicColors(true)
	t.chart.SetText("[yellow]正在初始化，等待数据...[white]")

	t.message.SetDynamicColors(true)
	t.message.SetText(helpText)

	// 创建主垂直布局
	t.flex = tview.NewFlex()
	t.flex.SetDirection(tview.FlexRow)

	// 添加初始的等待信息行
	waitingInfo := tview.NewTextView()
	waitingInfo.SetText("[green]gosta 已启动[white] - [yellow]等待第一个快照...[white]")
	waitingInfo.SetDynamicColors(true)
	waitingInfo.SetTextAlign(tview.AlignCenter)

	// 立即添加等待信息和图表到布局中
	t.flex.AddItem(waitingInfo, 1, 0, false)
	t.flex.AddItem(t.chart, 0, 1, false)
	t.flex.AddItem(t.message, 1, 0, false)

	t.app.SetRoot(t.flex, true)
}

// rebuildUI 重建状态面板和图表布局
func (t *TUI) rebuildUI() {
	latest, summary, notice := t.snapshotState()

	// 清空主布局
	t.flex.Clear()
	t.rowFlexes = t.rowFlexes[:0]

	if latest == nil {
		// 没有数据时，显示等待界面
		waitingInfo := tview.NewTextView()
		waitingInfo.SetText("[green]gosta 已启动[white] - [yellow]等待第一个快照...[white]")
		waitingInfo.SetDynamicColors(true)
		waitingInfo.SetTextAlign(tview.AlignCenter)

		t.flex.AddItem(waitingInfo, 1, 0, false)
		t.flex.AddItem(t.chart, 0, 1, false)
		t.flex.AddItem(t.message, 1, 0, false)
		return
	}

	// 创建表头行和数据行
	headerFlex := t.createHeaderRow(summaryOrder)
	t.flex.AddItem(headerFlex, 1, 0, false)
	t.rowFlexes = append(t.rowFlexes, headerFlex)

	rowFlex := t.createDataRow(latest.Session, summary, summaryOrder)
	t.flex.AddItem(rowFlex, 1, 0, false)
	t.rowFlexes = append(t.rowFlexes, rowFlex)

	// 图表占据所有剩余空间
	t.flex.AddItem(t.chart, 0, 1, false)

	if notice == "" {
		notice = helpText
	}
	t.message.SetText(notice)
	t.flex.AddItem(t.message, 1, 0, false)
}

// createHeaderRow 创建表头行
func (t *TUI) createHeaderRow(summaryKeys []string) *tview.Flex {
	headerFlex := tview.NewFlex()
	headerFlex.SetDirection(tview.FlexColumn)

	// 会话列
	sessionHeader := tview.NewTextView()
	sessionHeader.SetText(fmt.Sprintf("[yellow]%-10s[white]", "会话"))
	sessionHeader.SetDynamicColors(true)
	sessionHeader.SetTextAlign(tview.AlignLeft)
	headerFlex.AddItem(sessionHeader, 0, 1, false)

	// 添加表头的数据列
	for _, header := range summaryKeys {
		headerText := tview.NewTextView()
		headerText.SetText(fmt.Sprintf("[yellow]%8s[white]", header))
		headerText.SetDynamicColors(true)
		headerText.SetTextAlign(tview.AlignCenter)
		headerFlex.AddItem(headerText, 0, columnWeight(header), false)
	}

	return headerFlex
}

// createDataRow 创建数据行
func (t *TUI) createDataRow(session string, summary map[string]string, summaryKeys []string) *tview.Flex {
	rowFlex := tview.NewFlex()
	rowFlex.SetDirection(tview.FlexColumn)

	// 会话标识只显示前8位
	if len(session) > 8 {
		session = session[:8]
	}
	sessionText := tview.NewTextView()
	sessionText.SetText(fmt.Sprintf("[green]%-10s[white]", session))
	sessionText.SetDynamicColors(true)
	sessionText.SetTextAlign(tview.AlignLeft)
	rowFlex.AddItem(sessionText, 0, 1, false)

	// 其他列：严格按照summaryKeys顺序填充数据
	for _, key := range summaryKeys {
		value := "N/A" // 默认值
		if val, exists := summary[key]; exists && val != "" {
			value = val
		}

		dataText := tview.NewTextView()
		dataText.SetText(fmt.Sprintf("%8s", value))
		dataText.SetTextAlign(tview.AlignCenter)
		dataText.SetTextColor(tcell.ColorWhite)
		if key == "状态" && value == "暂停" {
			dataText.SetBackgroundColor(tcell.ColorDarkRed)
		}
		rowFlex.AddItem(dataText, 0, columnWeight(key), false)
	}

	return rowFlex
}

// columnWeight 带时间标注的列更宽
func columnWeight(key string) int {
	switch key {
	case "窗口", "峰值", "谷值":
		return 2
	default:
		return 1
	}
}

// updateChart 更新图表显示
func (t *TUI) updateChart() {
	if t.testMode || t.chart == nil {
		return
	}

	latest, _, _ := t.snapshotState()
	if latest == nil {
		t.chart.SetText("没有数据")
		return
	}

	// 获取图表视图的实际可绘制尺寸
	_, _, width, height := t.chart.GetInnerRect()

	// 确保有合理的最小尺寸
	if width < 20 {
		width = 80
	}
	if height < 10 {
		height = 15
	}

	t.chart.SetText(t.drawAverageChart(latest, width, height))
}

// safeUIUpdate 安全地执行UI更新操作
func (t *TUI) safeUIUpdate(updateFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			// 如果应用已经停止，忽略panic
		}
	}()
	t.app.QueueUpdateDraw(updateFunc)
}
