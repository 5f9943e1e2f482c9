package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/runner"
	"github.com/Kevin-Rudy/gosta/pkg/server"
	"github.com/Kevin-Rudy/gosta/pkg/source"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
	"github.com/Kevin-Rudy/gosta/pkg/tui"
)

// runApp 主要应用逻辑处理函数
func runApp(c *cli.Context) error {
	if c.Args().Len() > 0 {
		return cli.Exit(fmt.Sprintf("错误: 未知参数 %v\n使用方法: gosta [选项]", c.Args().Slice()), 1)
	}

	// 构建配置
	appConfig, err := buildConfigFromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("配置加载失败: %v", err), 1)
	}

	// 验证配置
	if err := validateConfig(appConfig); err != nil {
		return cli.Exit(fmt.Sprintf("配置验证失败: %v", err), 1)
	}

	level, _ := parseLogLevel(appConfig.LogLevel)
	logger, closer, err := newLogger(level, appConfig.LogFile, !appConfig.Headless)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closer.Close()

	session := uuid.NewString()
	logger = logger.With("session", session)
	slog.SetDefault(logger)

	// 显示运行配置
	printRunningConfig(appConfig, session)

	// 显示系统环境信息
	showSystemInfo()

	fmt.Println("\n正在初始化数据源...")

	src, err := source.NewSource(appConfig.Source)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法创建数据源: %v", err), 1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	runnerConfig := *appConfig.Runner
	runnerConfig.Session = session
	runnerConfig.Logger = logger
	runnerConfig.Registerer = registry

	sched, err := runner.NewRunner(src, appConfig.Engine, &runnerConfig)
	if err != nil {
		src.Stop()
		return cli.Exit(fmt.Sprintf("无法创建平均引擎: %v", err), 1)
	}

	if err := sched.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("无法启动调度器: %v", err), 1)
	}
	defer sched.Stop()

	fmt.Println("平均引擎初始化成功")

	// 可选的HTTP服务
	if appConfig.Serve {
		gin.SetMode(gin.ReleaseMode)

		serverConfig := *appConfig.Server
		serverConfig.Gatherer = registry
		serverConfig.Logger = logger

		srv, err := server.NewServer(sched, &serverConfig)
		if err != nil {
			return cli.Exit(fmt.Sprintf("无法创建HTTP服务: %v", err), 1)
		}
		if err := srv.Start(); err != nil {
			return cli.Exit(fmt.Sprintf("无法启动HTTP服务: %v", err), 1)
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				logger.Warn("HTTP服务关闭出错", "err", err)
			}
		}()
		fmt.Printf("HTTP服务: http://%s\n", srv.Addr())
	}

	if appConfig.Headless {
		return runHeadless(sched, appConfig, logger)
	}

	fmt.Println("\n正在启动TUI界面...")

	// 显示使用说明
	printUsageInstructions()

	// 创建并启动TUI实例
	tuiInstance := tui.NewTUI(sched, appConfig.TUI)

	// 启动TUI界面 - 这会阻塞直到用户退出
	if err := tuiInstance.Run(); err != nil {
		return cli.Exit(fmt.Sprintf("TUI运行出错: %v", err), 1)
	}

	fmt.Println("\n程序已退出")
	return nil
}

// runHeadless 无界面运行，收到退出信号或数据流结束后写出平均结果
func runHeadless(sched *runner.Runner, config *AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("无界面运行中，按 Ctrl+C 结束并保存结果")

	select {
	case <-ctx.Done():
		logger.Info("收到退出信号")
	case <-sched.Finished():
		logger.Info("数据流已结束")
	}

	mode, err := sta.ParseExportMode(config.TUI.ExportMode)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), config.Runner.CommandTimeout)
	defer cancel()

	if err := sched.Export(saveCtx, config.TUI.ExportPath, mode); err != nil {
		if errors.Is(err, sta.ErrFileExists) {
			return cli.Exit(fmt.Sprintf("保存失败: 文件 %s 已存在", config.TUI.ExportPath), 1)
		}
		return cli.Exit(fmt.Sprintf("保存失败: %v", err), 1)
	}

	var snap core.Snapshot
	if err := sched.Snapshot(saveCtx, &snap); err == nil {
		fmt.Printf("已保存 %d 个事件的平均结果到 %s\n", snap.EventCount, config.TUI.ExportPath)
	}
	return nil
}

// printRunningConfig 打印运行配置信息
func printRunningConfig(config *AppConfig, session string) {
	fmt.Printf("会话: %s\n", session)
	fmt.Printf("数据源: %s\n", describeSource(config.Source))
	fmt.Printf("采样周期: %v\n", config.Source.Interval)
	fmt.Printf("窗口: -%gs ~ +%gs\n", config.Engine.LeftWinTime, config.Engine.RightWinTime)
	if config.Engine.Detector.Kind == core.DetectorThreshold {
		fmt.Printf("检测器: 阈值 %g，不应期 %v\n", config.Engine.Detector.Threshold, config.Engine.Detector.Interval)
	} else {
		fmt.Println("检测器: 电平触发")
	}
	fmt.Printf("导出文件: %s (%s)\n", config.TUI.ExportPath, config.TUI.ExportMode)
}

// describeSource 数据源的简短描述
func describeSource(config *source.Config) string {
	switch config.Kind {
	case source.KindWAV, source.KindText:
		return fmt.Sprintf("%s %s", config.Kind, config.Path)
	case source.KindUDP:
		return fmt.Sprintf("%s %s", config.Kind, config.Addr)
	default:
		return string(config.Kind)
	}
}
