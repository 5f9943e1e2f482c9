// Package tui 提供终端用户界面：平均波形图、状态面板和键盘控制
package tui

import (
	"context"
	"sync"
	"time"

	"github.com/rivo/tview"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// Controller 界面操作的宿主调度器接口
type Controller interface {
	Subscribe() (<-chan *core.Snapshot, func())
	Clear(ctx context.Context) error
	TogglePause(ctx context.Context) (bool, error)
	Export(ctx context.Context, path string, mode sta.ExportMode) error
}

// TUI 主界面结构
type TUI struct {
	app       *tview.Application
	rowFlexes []*tview.Flex
	chart     *tview.TextView
	message   *tview.TextView
	flex      *tview.Flex
	ctrl      Controller

	// 配置信息
	tuiConfig *Config

	// 数据存储
	latest  *core.Snapshot    // 最新快照，只读
	summary map[string]string // 状态面板的汇总信息
	notice  string            // 最近一次操作的提示
	statsMu sync.RWMutex

	// 界面状态
	zoom     float64 // Y轴缩放倍数，1表示不缩放
	throttle keyThrottle

	// 控制
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	// 测试模式标志
	testMode bool
}

// NewTUI 创建新的TUI实例
func NewTUI(ctrl Controller, tuiConfig *Config) *TUI {
	tui := &TUI{
		app:       tview.NewApplication(),
		chart:     tview.NewTextView(),
		message:   tview.NewTextView(),
		ctrl:      ctrl,
		tuiConfig: tuiConfig,
		summary:   make(map[string]string),
		zoom:      1,
		throttle:  newKeyThrottle(),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		testMode:  false,
	}

	tui.setupUI()
	tui.setupKeyBindings()

	return tui
}

// NewTUIForTest 创建用于测试的TUI实例（不初始化图形组件）
func NewTUIForTest(ctrl Controller, tuiConfig *Config) *TUI {
	return &TUI{
		app:       tview.NewApplication(), // 创建一个应用实例，但不会运行
		ctrl:      ctrl,
		tuiConfig: tuiConfig,
		summary:   make(map[string]string),
		zoom:      1,
		throttle:  newKeyThrottle(),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
		testMode:  true,
	}
}

// Run 启动TUI界面，阻塞直到用户退出
func (t *TUI) Run() error {
	snaps, unsubscribe := t.ctrl.Subscribe()
	defer unsubscribe()

	// 启动数据处理goroutine
	go t.processData(snaps)

	// 运行应用
	err := t.app.Run()

	// 应用可能因为错误退出，确保processData也退出
	t.signalStop()
	<-t.doneChan

	return err
}

// Stop 停止TUI界面
func (t *TUI) Stop() {
	t.signalStop()

	// 停止应用
	t.app.Stop()
}

// signalStop 关闭停止通道，可以重复调用
func (t *TUI) signalStop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

// processData 接收快照并按刷新间隔重绘
func (t *TUI) processData(snaps <-chan *core.Snapshot) {
	defer close(t.doneChan)

	uiTicker := time.NewTicker(t.tuiConfig.RefreshInterval)
	defer uiTicker.Stop()

	// 初始UI刷新
	t.forceInitialDraw()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				// 调度器已停止，保留最后的画面直到用户退出
				snaps = nil
				t.setNotice("[yellow]采集已停止[white]")
				continue
			}
			t.handleDataUpdate(snap)

		case <-uiTicker.C:
			t.handleUIRefresh()

		case <-t.stopChan:
			return
		}
	}
}

// forceInitialDraw 强制初始绘制
func (t *TUI) forceInitialDraw() {
	if !t.testMode && t.app != nil {
		t.app.QueueUpdateDraw(func() {
			// 强制初始绘制
		})
	}
}

// handleDataUpdate 处理数据更新
func (t *TUI) handleDataUpdate(snap *core.Snapshot) {
	t.updateSnapshot(snap)
}

// handleUIRefresh 处理UI刷新
func (t *TUI) handleUIRefresh() {
	if !t.testMode && t.app != nil {
		t.safeUIUpdate(func() {
			t.rebuildUI()
			t.updateChart()
		})
	}
}
