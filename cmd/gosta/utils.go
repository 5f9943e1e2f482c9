package main

import (
	"fmt"
	"runtime"
)

// 程序信息常量
const (
	AppName    = "gosta"
	AppVersion = "0.1.0"
	AppDesc    = "在线事件触发平均（spike-triggered average）工具"
)

// realtimeSupport 返回当前平台的实时调优支持情况
func realtimeSupport() string {
	if runtime.GOOS == "linux" {
		return "支持 (mlock, CPU绑定)"
	}
	return "不支持"
}

// showSystemInfo 显示系统环境信息
func showSystemInfo() {
	fmt.Println("\n系统信息:")
	fmt.Printf("  操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  CPU数量: %d\n", runtime.NumCPU())
	fmt.Printf("  实时调优: %s\n", realtimeSupport())
}

// printUsageInstructions 显示TUI操作说明
func printUsageInstructions() {
	fmt.Println("操作说明:")
	fmt.Println("  p           - 暂停/继续")
	fmt.Println("  c           - 清除平均结果")
	fmt.Println("  s           - 保存平均结果")
	fmt.Println("  ↑/↓ 方向键  - 缩放Y轴")
	fmt.Println("  a           - 恢复自动缩放")
	fmt.Println("  q 或 Ctrl+C - 退出程序")
	fmt.Println("========================================")
}
