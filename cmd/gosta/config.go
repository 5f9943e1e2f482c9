package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/runner"
	"github.com/Kevin-Rudy/gosta/pkg/server"
	"github.com/Kevin-Rudy/gosta/pkg/source"
	"github.com/Kevin-Rudy/gosta/pkg/sta"
	"github.com/Kevin-Rudy/gosta/pkg/tui"
)

// AppConfig 应用层配置聚合，也是 --config 文件的结构
type AppConfig struct {
	Source *source.Config `yaml:"source"`
	Engine *sta.Config    `yaml:"engine"`
	Runner *runner.Config `yaml:"runner"`
	Server *server.Config `yaml:"server"`
	TUI    *tui.Config    `yaml:"tui"`

	Serve    bool   `yaml:"serve"`     // 是否启动HTTP服务
	Headless bool   `yaml:"headless"`  // 不启动TUI，退出时写出平均结果
	LogLevel string `yaml:"log_level"` // debug / info / warn / error
	LogFile  string `yaml:"log_file"`  // TUI运行时的日志文件，为空则丢弃

	intervalFromFile bool // 配置文件显式设置了source.interval
}

// presentFields 记录配置文件中出现过的字段
type presentFields struct {
	Source struct {
		Interval *yaml.Node `yaml:"interval"`
	} `yaml:"source"`
}

// defaultAppConfig 返回各组件默认配置的聚合
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Source:   source.DefaultConfig(),
		Engine:   sta.DefaultConfig(),
		Runner:   runner.DefaultConfig(),
		Server:   server.DefaultConfig(),
		TUI:      tui.DefaultConfig(),
		LogLevel: "info",
	}
}

// loadConfigFile 将YAML配置文件叠加到config上，文件中未出现的字段保持原值
func loadConfigFile(path string, config *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("无法打开配置文件: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("配置文件 '%s' 解析失败: %w", path, err)
	}

	var present presentFields
	if err := yaml.Unmarshal(data, &present); err != nil {
		return fmt.Errorf("配置文件 '%s' 解析失败: %w", path, err)
	}
	config.intervalFromFile = present.Source.Interval != nil
	return nil
}

// buildConfigFromCLI 从默认值、配置文件和命令行参数构建配置
// 优先级：命令行参数/环境变量 > 配置文件 > 默认值
func buildConfigFromCLI(c *cli.Context) (*AppConfig, error) {
	config := defaultAppConfig()

	if path := c.String("config"); path != "" {
		if err := loadConfigFile(path, config); err != nil {
			return nil, err
		}
	}

	// 数据源
	src := config.Source
	if c.IsSet("source") {
		src.Kind = source.Kind(c.String("source"))
	}
	if c.IsSet("input") {
		src.Path = c.String("input")
	}
	if c.IsSet("listen") {
		src.Addr = c.String("listen")
	}
	if c.IsSet("interval") {
		src.Interval = c.Duration("interval")
	}
	if c.IsSet("buffer") {
		src.BufferSize = c.Int("buffer")
	}
	if c.IsSet("loop") {
		src.Loop = c.Bool("loop")
	}
	if c.IsSet("rate") {
		src.Synthetic.Rate = c.Float64("rate")
	}
	if c.IsSet("amplitude") {
		src.Synthetic.Amplitude = c.Float64("amplitude")
	}
	if c.IsSet("noise") {
		src.Synthetic.Noise = c.Float64("noise")
	}
	if c.IsSet("seed") {
		src.Synthetic.Seed = c.Uint64("seed")
	}

	// WAV文件未在命令行或配置文件中指定采样周期时使用文件自身的采样率
	var period float64
	if src.Kind == source.KindWAV && !c.IsSet("interval") && !config.intervalFromFile {
		p, err := useWAVInterval(src)
		if err != nil {
			return nil, err
		}
		period = p
	}

	// 引擎
	engine := config.Engine
	if c.IsSet("left") {
		engine.LeftWinTime = c.Float64("left")
	}
	if c.IsSet("right") {
		engine.RightWinTime = c.Float64("right")
	}
	if c.IsSet("detector") {
		engine.Detector.Kind = core.DetectorKind(c.String("detector"))
	}
	if c.IsSet("threshold") {
		engine.Detector.Threshold = c.Float64("threshold")
	}
	if c.IsSet("refractory") {
		engine.Detector.Interval = c.Duration("refractory")
	}
	engine.DT = src.Seconds()
	if period > 0 {
		// 44.1kHz等采样率的周期不是整数纳秒，DT直接取1/采样率
		engine.DT = period
	}

	// 调度器
	if c.IsSet("publish-rate") {
		config.Runner.RefreshInterval = c.Duration("publish-rate")
	}
	if c.IsSet("lock-memory") {
		config.Runner.RT.LockMemory = c.Bool("lock-memory")
	}
	if c.IsSet("cpu") {
		config.Runner.RT.CPU = c.Int("cpu")
	}

	// HTTP服务
	if c.IsSet("http") {
		config.Server.Addr = c.String("http")
		config.Serve = true
	}
	if c.IsSet("serve") {
		config.Serve = c.Bool("serve")
	}

	// 界面
	ui := config.TUI
	if c.IsSet("refresh-rate") {
		ui.RefreshInterval = c.Duration("refresh-rate")
	}
	if c.IsSet("ymin") {
		ui.YMin = c.Float64("ymin")
	}
	if c.IsSet("ymax") {
		ui.YMax = c.Float64("ymax")
	}
	if c.IsSet("output") {
		ui.ExportPath = c.String("output")
	}
	if c.IsSet("export-mode") {
		ui.ExportMode = c.String("export-mode")
	}

	if c.IsSet("headless") {
		config.Headless = c.Bool("headless")
	}
	if c.IsSet("log-level") {
		config.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		config.LogFile = c.String("log-file")
	}

	return config, nil
}

// useWAVInterval 读取WAV文件头，将节拍间隔设为文件的采样率，返回精确的采样周期(s)
func useWAVInterval(src *source.Config) (float64, error) {
	if src.Path == "" {
		return 0, nil
	}
	reader, err := source.OpenWAVReader(src.Path)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	if interval := reader.Interval(); interval > 0 {
		src.Interval = interval
	}
	return reader.Period(), nil
}

// validateConfig 验证配置的合理性
func validateConfig(config *AppConfig) error {
	if err := config.Source.Validate(); err != nil {
		return fmt.Errorf("数据源配置错误: %v", err)
	}

	if _, err := config.Engine.Window(); err != nil {
		return fmt.Errorf("引擎配置错误: %v", err)
	}

	if err := config.Runner.Validate(); err != nil {
		return fmt.Errorf("调度器配置错误: %v", err)
	}

	if config.Serve {
		if err := config.Server.Validate(); err != nil {
			return fmt.Errorf("HTTP服务配置错误: %v", err)
		}
	}

	if err := config.TUI.Validate(); err != nil {
		return fmt.Errorf("tui配置错误: %v", err)
	}

	if _, err := parseLogLevel(config.LogLevel); err != nil {
		return err
	}

	return nil
}
