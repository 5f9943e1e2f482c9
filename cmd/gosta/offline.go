package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/source"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
)

// offlineEpoch 离线模式合成时钟的起点
var offlineEpoch = time.Unix(0, 0).UTC()

// offlineResult 离线处理的结果
type offlineResult struct {
	Snapshot core.Snapshot
	Samples  int64
}

// runOffline offline子命令：不经过节拍，尽快把文件中的所有采样送入引擎并写出结果
func runOffline(c *cli.Context) error {
	appConfig, err := buildConfigFromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("配置加载失败: %v", err), 1)
	}
	if err := validateConfig(appConfig); err != nil {
		return cli.Exit(fmt.Sprintf("配置验证失败: %v", err), 1)
	}

	level, _ := parseLogLevel(appConfig.LogLevel)
	logger, closer, err := newLogger(level, appConfig.LogFile, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closer.Close()

	session := uuid.NewString()
	logger = logger.With("session", session)

	result, err := offlineAverage(appConfig, c.Int64("samples"), logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("离线处理失败: %v", err), 1)
	}
	result.Snapshot.Session = session

	if err := writeOfflineResult(appConfig, &result.Snapshot); err != nil {
		return cli.Exit(fmt.Sprintf("保存失败: %v", err), 1)
	}

	logger.Info("离线处理完成",
		"samples", result.Samples,
		"events", result.Snapshot.EventCount,
		"output", appConfig.TUI.ExportPath)
	return nil
}

// offlineAverage 读取采样直到文件结束或达到maxSamples，返回最终快照
// maxSamples为0表示读到文件结束，合成信号必须指定上限
func offlineAverage(config *AppConfig, maxSamples int64, logger *slog.Logger) (*offlineResult, error) {
	if config.Source.Kind == source.KindSynthetic && maxSamples <= 0 {
		return nil, errors.New("合成信号永远不会结束，必须用 --samples 指定采样数")
	}

	reader, err := source.OpenReader(config.Source)
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	engine, err := sta.NewEngine(config.Engine)
	if err != nil {
		return nil, err
	}

	window := engine.Window()
	logger.Debug("离线处理开始",
		"source", config.Source.Kind,
		"dt", window.DT,
		"left_ticks", window.LeftWin,
		"right_ticks", window.RightWin)

	var n int64
	for maxSamples <= 0 || n < maxSamples {
		signal, trigger, err := reader.ReadSample()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("第%d个采样读取失败: %w", n+1, err)
		}

		engine.Tick(core.Tick{
			Signal:  signal,
			Trigger: trigger,
			Now:     offlineEpoch.Add(time.Duration(n) * config.Source.Interval),
		})
		n++
	}

	result := &offlineResult{Samples: n}
	engine.Snapshot(&result.Snapshot)
	return result, nil
}

// writeOfflineResult 把结果写入导出文件，路径为"-"时写到标准输出
func writeOfflineResult(config *AppConfig, snap *core.Snapshot) error {
	if config.TUI.ExportPath == "-" {
		return sta.WriteText(os.Stdout, snap)
	}

	mode, err := sta.ParseExportMode(config.TUI.ExportMode)
	if err != nil {
		return err
	}
	return sta.ExportFile(config.TUI.ExportPath, mode, snap)
}
