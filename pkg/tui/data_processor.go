// Package tui 数据处理模块
package tui

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// summaryOrder 状态面板各列的显示顺序
var summaryOrder = []string{"状态", "事件", "时间", "窗口", "检测器", "峰值", "谷值", "均值", "标准差"}

// updateSnapshot 保存最新快照并更新汇总
func (t *TUI) updateSnapshot(snap *core.Snapshot) {
	summary := buildSummary(snap)

	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.latest = snap
	t.summary = summary
}

// buildSummary 计算状态面板的汇总信息
func buildSummary(snap *core.Snapshot) map[string]string {
	summary := make(map[string]string, len(summaryOrder))

	switch {
	case snap.Paused:
		summary["状态"] = "暂停"
	case snap.Triggered:
		summary["状态"] = "采集中"
	default:
		summary["状态"] = "等待"
	}

	summary["事件"] = fmt.Sprintf("%d", snap.EventCount)
	summary["时间"] = fmt.Sprintf("%.3fs", snap.SysTime)
	summary["窗口"] = fmt.Sprintf("%s~%s", formatOffset(-snap.LeftWinTime), formatOffset(snap.RightWinTime))
	summary["检测器"] = string(snap.Detector)

	if snap.EventCount == 0 || len(snap.Average) == 0 {
		summary["峰值"] = "N/A"
		summary["谷值"] = "N/A"
		summary["均值"] = "N/A"
		summary["标准差"] = "N/A"
		return summary
	}

	maxIdx := floats.MaxIdx(snap.Average)
	minIdx := floats.MinIdx(snap.Average)
	summary["峰值"] = fmt.Sprintf("%s@%s", formatValue(snap.Average[maxIdx]), formatOffset(snap.Time[maxIdx]))
	summary["谷值"] = fmt.Sprintf("%s@%s", formatValue(snap.Average[minIdx]), formatOffset(snap.Time[minIdx]))

	mean, std := stat.MeanStdDev(snap.Average, nil)
	summary["均值"] = formatValue(mean)
	if math.IsNaN(std) {
		// 只有一个采样点
		summary["标准差"] = "N/A"
	} else {
		summary["标准差"] = formatValue(std)
	}

	return summary
}

// snapshotState 在锁内读取最新快照和汇总
func (t *TUI) snapshotState() (*core.Snapshot, map[string]string, string) {
	t.statsMu.RLock()
	defer t.statsMu.RUnlock()
	return t.latest, t.summary, t.notice
}

// setNotice 更新提示信息
func (t *TUI) setNotice(notice string) {
	t.statsMu.Lock()
	t.notice = notice
	t.statsMu.Unlock()

	if !t.testMode && t.app != nil && t.message != nil {
		t.safeUIUpdate(func() {
			t.message.SetText(notice)
		})
	}
}
