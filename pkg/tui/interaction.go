// Package tui 交互控制模块
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

const (
	minZoom = 1.0 / 64
	maxZoom = 64.0

	actionTimeout = 2 * time.Second
)

// keyThrottle 缩放按键的频率控制，连续触发threshold次后休息rest
// 只在界面事件循环中使用
type keyThrottle struct {
	counter   int
	threshold int
	rest      time.Duration
	resting   bool
	last      time.Time
}

// newKeyThrottle 创建默认的频率控制：5次事件后休息100ms
func newKeyThrottle() keyThrottle {
	return keyThrottle{
		threshold: 5,
		rest:      100 * time.Millisecond,
	}
}

// allow 判断是否应该处理事件，允许时同时记录本次事件
func (k *keyThrottle) allow(now time.Time) bool {
	// 如果正在休息中，检查是否休息够了
	if k.resting {
		if now.Sub(k.last) < k.rest {
			return false
		}
		k.resting = false
		k.counter = 0
	}

	k.counter++
	k.last = now
	if k.counter >= k.threshold {
		k.resting = true
	}
	return true
}

// setupKeyBindings 设置键盘绑定
func (t *TUI) setupKeyBindings() {
	t.app.SetInputCapture(t.handleKey)
}

// handleKey 处理单个按键事件，返回nil表示事件已被消费
func (t *TUI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlC:
		t.Stop()
		return nil
	case tcell.KeyUp:
		if t.throttle.allow(time.Now()) {
			t.setZoom(t.zoom * 2)
		}
		return nil
	case tcell.KeyDown:
		if t.throttle.allow(time.Now()) {
			t.setZoom(t.zoom / 2)
		}
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			t.Stop()
			return nil
		case 'p', 'P':
			t.runAsync(t.togglePause)
			return nil
		case 'c', 'C':
			t.runAsync(t.clear)
			return nil
		case 's', 'S':
			t.runAsync(t.export)
			return nil
		case 'a', 'A':
			t.setZoom(1)
			return nil
		}
	}
	return event
}

// runAsync 在后台执行调度器操作，避免阻塞界面事件循环
func (t *TUI) runAsync(action func()) {
	if t.testMode {
		action()
		return
	}
	go action()
}

// setZoom 设置Y轴缩放倍数
func (t *TUI) setZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	} else if zoom > maxZoom {
		zoom = maxZoom
	}
	t.zoom = zoom

	if !t.testMode {
		t.updateChart()
	}
}

// togglePause 切换暂停状态
func (t *TUI) togglePause() {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	paused, err := t.ctrl.TogglePause(ctx)
	switch {
	case err != nil:
		t.setNotice(fmt.Sprintf("[red]暂停失败: %v[white]", err))
	case paused:
		t.setNotice("[yellow]已暂停[white]")
	default:
		t.setNotice("[green]已继续[white]")
	}
}

// clear 清除平均结果
func (t *TUI) clear() {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := t.ctrl.Clear(ctx); err != nil {
		t.setNotice(fmt.Sprintf("[red]清除失败: %v[white]", err))
		return
	}
	t.setNotice("[green]已清除[white]")
}

// export 将当前平均结果写入配置的文件
func (t *TUI) export() {
	mode, err := sta.ParseExportMode(t.tuiConfig.ExportMode)
	if err != nil {
		t.setNotice(fmt.Sprintf("[red]保存失败: %v[white]", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := t.ctrl.Export(ctx, t.tuiConfig.ExportPath, mode); err != nil {
		t.setNotice(fmt.Sprintf("[red]保存失败: %v[white]", err))
		return
	}
	t.setNotice(fmt.Sprintf("[green]已保存到 %s[white]", t.tuiConfig.ExportPath))
}
