package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"
)

// createCliApp 创建CLI应用实例
func createCliApp() *cli.App {
	app := &cli.App{
		Name:    AppName,
		Version: AppVersion,
		Usage:   AppDesc,
		Flags:   createCliFlags(),
		Action:  runApp,
		Before: func(c *cli.Context) error {
			// 显示启动信息
			if c.Args().First() != "offline" {
				fmt.Printf("正在启动 %s v%s...\n", AppName, AppVersion)
			}
			return nil
		},
	}

	// 添加子命令
	app.Commands = createCommands()

	return app
}

// envVar 参数对应的环境变量名
func envVar(name string) []string {
	return []string{"GOSTA_" + name}
}

// createCliFlags 创建CLI参数定义
func createCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML配置文件，命令行参数优先",
			EnvVars: envVar("CONFIG"),
		},
		// 数据源
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Value:   "synthetic",
			Usage:   "数据源类型: synthetic / wav / text / udp",
			EnvVars: envVar("SOURCE"),
		},
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "wav/text 数据源的文件路径，text可用 - 表示标准输入",
			EnvVars: envVar("INPUT"),
		},
		&cli.StringFlag{
			Name:    "listen",
			Value:   "127.0.0.1:9000",
			Usage:   "udp 数据源的监听地址",
			EnvVars: envVar("LISTEN"),
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"n"},
			Value:   time.Millisecond,
			Usage:   "采样周期，wav默认使用文件采样率 (例如: 1ms, 100us)",
			EnvVars: envVar("INTERVAL"),
		},
		&cli.IntFlag{
			Name:    "buffer",
			Aliases: []string{"b"},
			Value:   4096,
			Usage:   "数据通道缓冲区大小",
		},
		&cli.BoolFlag{
			Name:  "loop",
			Usage: "文件读完后从头开始",
		},
		&cli.Float64Flag{
			Name:  "rate",
			Value: 5,
			Usage: "合成信号的平均事件频率 (Hz)",
		},
		&cli.Float64Flag{
			Name:  "amplitude",
			Value: 1,
			Usage: "合成信号的尖峰幅度",
		},
		&cli.Float64Flag{
			Name:  "noise",
			Value: 0.2,
			Usage: "合成信号的噪声标准差",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "合成信号的随机种子，0表示按时间取种",
		},
		// 引擎
		&cli.Float64Flag{
			Name:    "left",
			Aliases: []string{"l"},
			Value:   0.05,
			Usage:   "事件前窗口 (s)",
			EnvVars: envVar("LEFT"),
		},
		&cli.Float64Flag{
			Name:    "right",
			Aliases: []string{"r"},
			Value:   0.05,
			Usage:   "事件后窗口 (s)",
			EnvVars: envVar("RIGHT"),
		},
		&cli.StringFlag{
			Name:    "detector",
			Aliases: []string{"d"},
			Value:   "level",
			Usage:   "事件检测器: level（触发通道等于1）/ threshold（阈值 + 不应期）",
			EnvVars: envVar("DETECTOR"),
		},
		&cli.Float64Flag{
			Name:    "threshold",
			Value:   1,
			Usage:   "threshold检测器的阈值",
			EnvVars: envVar("THRESHOLD"),
		},
		&cli.DurationFlag{
			Name:    "refractory",
			Value:   500 * time.Millisecond,
			Usage:   "threshold检测器两次事件之间的最小间隔",
			EnvVars: envVar("REFRACTORY"),
		},
		// 调度器
		&cli.DurationFlag{
			Name:  "publish-rate",
			Value: 200 * time.Millisecond,
			Usage: "快照发布间隔",
		},
		&cli.BoolFlag{
			Name:    "lock-memory",
			Usage:   "锁定进程内存（仅Linux）",
			EnvVars: envVar("LOCK_MEMORY"),
		},
		&cli.IntFlag{
			Name:    "cpu",
			Value:   -1,
			Usage:   "节拍线程绑定的CPU，-1表示不绑定（仅Linux）",
			EnvVars: envVar("CPU"),
		},
		// HTTP服务
		&cli.StringFlag{
			Name:    "http",
			Usage:   "启动HTTP服务并监听该地址 (例如: 127.0.0.1:8080)",
			EnvVars: envVar("HTTP"),
		},
		&cli.BoolFlag{
			Name:  "serve",
			Usage: "使用配置中的地址启动HTTP服务",
		},
		// 界面
		&cli.DurationFlag{
			Name:  "refresh-rate",
			Value: 200 * time.Millisecond,
			Usage: "UI刷新频率 (例如: 100ms, 500ms)",
		},
		&cli.Float64Flag{
			Name:  "ymin",
			Usage: "Y轴下限，与ymax都为0时自动缩放",
		},
		&cli.Float64Flag{
			Name:  "ymax",
			Usage: "Y轴上限",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   "sta.dat",
			Usage:   "平均结果的导出文件，离线模式可用 - 表示标准输出",
			EnvVars: envVar("OUTPUT"),
		},
		&cli.StringFlag{
			Name:    "export-mode",
			Value:   "overwrite",
			Usage:   "文件已存在时: overwrite（覆盖）/ append（追加）/ exclusive（放弃）",
			EnvVars: envVar("EXPORT_MODE"),
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "不启动TUI，收到退出信号或数据流结束时保存结果",
		},
		// 日志
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "日志级别: debug / info / warn / error",
			EnvVars: envVar("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "日志文件，TUI运行时不指定则丢弃日志",
			EnvVars: envVar("LOG_FILE"),
		},
	}
}

// createCommands 创建子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "显示详细版本信息",
			Action: func(c *cli.Context) error {
				fmt.Printf("%s v%s\n", AppName, AppVersion)
				fmt.Printf("描述: %s\n", AppDesc)
				fmt.Printf("系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
				fmt.Printf("Go: %s\n", runtime.Version())
				fmt.Printf("实时调优: %s\n", realtimeSupport())
				return nil
			},
		},
		{
			Name:  "offline",
			Usage: "不经过节拍，尽快处理wav/text文件并写出平均结果",
			Flags: append(createCliFlags(), &cli.Int64Flag{
				Name:  "samples",
				Usage: "最多处理的采样数，0表示读到文件结束（合成信号必须指定）",
			}),
			Action: runOffline,
		},
	}
}
