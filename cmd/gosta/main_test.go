package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/youpy/go-wav"

	"github.com/Kevin-Rudy/gosta/pkg/core"
	"github.com/Kevin-Rudy/gosta/pkg/source"
)

// parseArgs 用真实的参数定义解析命令行并构建配置
func parseArgs(t *testing.T, args ...string) (*AppConfig, error) {
	t.Helper()

	var (
		config   *AppConfig
		buildErr error
	)
	app := &cli.App{
		Name:  AppName,
		Flags: createCliFlags(),
		Action: func(c *cli.Context) error {
			config, buildErr = buildConfigFromCLI(c)
			return nil
		},
	}
	if err := app.Run(append([]string{AppName}, args...)); err != nil {
		t.Fatalf("Failed to parse args: %v", err)
	}
	return config, buildErr
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDefaultConfig 测试默认配置可以通过验证
func TestDefaultConfig(t *testing.T) {
	config, err := parseArgs(t)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := validateConfig(config); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if config.Source.Kind != source.KindSynthetic {
		t.Errorf("Expected synthetic source, got %s", config.Source.Kind)
	}

	if config.Engine.DT != 0.001 {
		t.Errorf("Expected DT=0.001, got %v", config.Engine.DT)
	}

	if config.Serve || config.Headless {
		t.Error("HTTP and headless should be off by default")
	}
}

// TestFlagsOverride 测试命令行参数覆盖默认值
func TestFlagsOverride(t *testing.T) {
	config, err := parseArgs(t,
		"--interval", "100us",
		"--left", "0.01",
		"--right", "0.02",
		"--detector", "threshold",
		"--threshold", "0.7",
		"--refractory", "250ms",
		"--http", "127.0.0.1:0",
		"--ymin", "-1", "--ymax", "1",
		"-o", "out.dat",
		"--export-mode", "append",
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Source.Interval != 100*time.Microsecond {
		t.Errorf("Expected interval=100µs, got %v", config.Source.Interval)
	}
	if config.Engine.DT != 0.0001 {
		t.Errorf("Expected DT to follow the interval, got %v", config.Engine.DT)
	}
	if config.Engine.LeftWinTime != 0.01 || config.Engine.RightWinTime != 0.02 {
		t.Errorf("Unexpected window %v/%v", config.Engine.LeftWinTime, config.Engine.RightWinTime)
	}
	if config.Engine.Detector.Kind != core.DetectorThreshold ||
		config.Engine.Detector.Threshold != 0.7 ||
		config.Engine.Detector.Interval != 250*time.Millisecond {
		t.Errorf("Unexpected detector %+v", config.Engine.Detector)
	}
	if !config.Serve || config.Server.Addr != "127.0.0.1:0" {
		t.Errorf("Expected HTTP on 127.0.0.1:0, got serve=%v addr=%s", config.Serve, config.Server.Addr)
	}
	if config.TUI.YMin != -1 || config.TUI.YMax != 1 {
		t.Errorf("Unexpected Y range %v/%v", config.TUI.YMin, config.TUI.YMax)
	}
	if config.TUI.ExportPath != "out.dat" || config.TUI.ExportMode != "append" {
		t.Errorf("Unexpected export %s/%s", config.TUI.ExportPath, config.TUI.ExportMode)
	}

	if err := validateConfig(config); err != nil {
		t.Errorf("Config should be valid: %v", err)
	}
}

// TestEnvVars 测试GOSTA_*环境变量
func TestEnvVars(t *testing.T) {
	t.Setenv("GOSTA_RIGHT", "0.2")
	t.Setenv("GOSTA_LOG_LEVEL", "debug")

	config, err := parseArgs(t)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Engine.RightWinTime != 0.2 {
		t.Errorf("Expected right=0.2 from env, got %v", config.Engine.RightWinTime)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", config.LogLevel)
	}
}

// TestConfigFile 测试YAML配置文件叠加，命令行参数优先
func TestConfigFile(t *testing.T) {
	path := writeFile(t, "gosta.yaml", `
source:
  kind: text
  path: data.txt
  interval: 2ms
engine:
  left: 0.004
  right: 0.006
  detector:
    kind: threshold
    threshold: 0.5
    interval: 1s
tui:
  ymin: -2
  ymax: 2
serve: true
log_level: warn
`)

	config, err := parseArgs(t, "--config", path, "--right", "0.008")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Source.Kind != source.KindText || config.Source.Path != "data.txt" {
		t.Errorf("Unexpected source %s %s", config.Source.Kind, config.Source.Path)
	}
	if config.Source.Interval != 2*time.Millisecond || config.Engine.DT != 0.002 {
		t.Errorf("Unexpected interval %v / DT %v", config.Source.Interval, config.Engine.DT)
	}
	if config.Engine.LeftWinTime != 0.004 {
		t.Errorf("Expected left from file, got %v", config.Engine.LeftWinTime)
	}
	if config.Engine.RightWinTime != 0.008 {
		t.Errorf("Expected right from flag, got %v", config.Engine.RightWinTime)
	}
	if config.Engine.Detector.Interval != time.Second {
		t.Errorf("Expected refractory 1s, got %v", config.Engine.Detector.Interval)
	}
	if config.Source.BufferSize != source.DefaultConfig().BufferSize {
		t.Errorf("Fields missing from the file should keep defaults, got buffer=%d", config.Source.BufferSize)
	}
	if !config.Serve || config.LogLevel != "warn" {
		t.Errorf("Unexpected serve=%v log=%s", config.Serve, config.LogLevel)
	}
}

// writeWAV 写出一个双声道16位WAV文件
func writeWAV(t *testing.T, sampleRate uint32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	samples := []wav.Sample{{Values: [2]int{100, 0}}, {Values: [2]int{200, 16384}}}
	w := wav.NewWriter(file, uint32(len(samples)), 2, sampleRate, 16)
	if err := w.WriteSamples(samples); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestWAVSampleRate 测试WAV数据源默认使用文件的采样率，DT不受纳秒取整影响
func TestWAVSampleRate(t *testing.T) {
	path := writeWAV(t, 44100)

	config, err := parseArgs(t, "--source", "wav", "--input", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Source.Interval != 22675*time.Nanosecond {
		t.Errorf("Expected tick interval 22.675µs, got %v", config.Source.Interval)
	}
	if config.Engine.DT != 1.0/44100 {
		t.Errorf("Expected DT=1/44100, got %v", config.Engine.DT)
	}

	config, err = parseArgs(t, "--source", "wav", "--input", path, "--interval", "1ms")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Source.Interval != time.Millisecond || config.Engine.DT != 0.001 {
		t.Errorf("Expected flag interval to win, got %v / DT %v", config.Source.Interval, config.Engine.DT)
	}
}

// TestWAVIntervalFromConfigFile 测试配置文件中的采样周期不被WAV采样率覆盖
func TestWAVIntervalFromConfigFile(t *testing.T) {
	wavPath := writeWAV(t, 44100)
	path := writeFile(t, "gosta.yaml", "source:\n  kind: wav\n  path: "+wavPath+"\n  interval: 2ms\n")

	config, err := parseArgs(t, "--config", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Source.Interval != 2*time.Millisecond {
		t.Errorf("Expected interval from file, got %v", config.Source.Interval)
	}
	if config.Engine.DT != 0.002 {
		t.Errorf("Expected DT=0.002, got %v", config.Engine.DT)
	}

	// 文件没有设置interval时仍然使用WAV采样率
	path = writeFile(t, "wav.yaml", "source:\n  kind: wav\n  path: "+wavPath+"\n")
	config, err = parseArgs(t, "--config", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Engine.DT != 1.0/44100 {
		t.Errorf("Expected DT=1/44100, got %v", config.Engine.DT)
	}
}

// TestConfigFileErrors 测试配置文件错误
func TestConfigFileErrors(t *testing.T) {
	if _, err := parseArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Missing config file should fail")
	}

	path := writeFile(t, "bad.yaml", "engine:\n  lefty: 1\n")
	if _, err := parseArgs(t, "--config", path); err == nil {
		t.Error("Unknown fields should be rejected")
	}
}

// TestValidateConfig 测试配置验证
func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"negative window", func(c *AppConfig) { c.Engine.LeftWinTime = -1 }},
		{"text without path", func(c *AppConfig) { c.Source.Kind = source.KindText }},
		{"bad export mode", func(c *AppConfig) { c.TUI.ExportMode = "truncate" }},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }},
		{"empty http addr", func(c *AppConfig) { c.Serve = true; c.Server.Addr = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := defaultAppConfig()
			tc.mutate(config)
			if err := validateConfig(config); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

// TestParseLogLevel 测试日志级别解析
func TestParseLogLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLogLevel(name)
		if err != nil || got != want {
			t.Errorf("parseLogLevel(%s): expected %v, got %v (%v)", name, want, got, err)
		}
	}

	if _, err := parseLogLevel("verbose"); err == nil {
		t.Error("Unknown level should fail")
	}
}

// TestNewLogger 测试日志文件输出
func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosta.log")
	logger, closer, err := newLogger(slog.LevelInfo, path, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	logger.Info("hello", "events", 3)
	logger.Debug("hidden")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "events=3") {
		t.Errorf("Unexpected log content %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("Debug messages should be filtered at info level")
	}
}

// offlineConfig 返回读取文本文件、前后窗口各1个采样的配置
func offlineConfig(t *testing.T, content string) *AppConfig {
	t.Helper()
	config := defaultAppConfig()
	config.Source.Kind = source.KindText
	config.Source.Path = writeFile(t, "data.txt", content)
	config.Source.Interval = time.Millisecond
	config.Engine.DT = 0.001
	config.Engine.LeftWinTime = 0.001
	config.Engine.RightWinTime = 0.001
	return config
}

// TestOfflineAverage 测试离线处理
func TestOfflineAverage(t *testing.T) {
	config := offlineConfig(t, "0 0\n1 1\n2 0\n3 0\n4 1\n5 0\n")

	result, err := offlineAverage(config, 0, discardLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Samples != 6 {
		t.Errorf("Expected 6 samples, got %d", result.Samples)
	}
	if result.Snapshot.EventCount != 2 {
		t.Errorf("Expected 2 events, got %d", result.Snapshot.EventCount)
	}

	want := []float64{1.5, 2.5, 3.5}
	for i, v := range want {
		if result.Snapshot.Average[i] != v {
			t.Errorf("Average[%d]: expected %v, got %v", i, v, result.Snapshot.Average[i])
		}
	}
}

// TestOfflineSampleLimit 测试采样数上限
func TestOfflineSampleLimit(t *testing.T) {
	config := offlineConfig(t, "0 0\n1 1\n2 0\n3 0\n4 1\n5 0\n")

	result, err := offlineAverage(config, 3, discardLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Samples != 3 || result.Snapshot.EventCount != 1 {
		t.Errorf("Expected 3 samples and 1 event, got %d and %d", result.Samples, result.Snapshot.EventCount)
	}

	synthetic := defaultAppConfig()
	if _, err := offlineAverage(synthetic, 0, discardLogger()); err == nil {
		t.Error("Synthetic source without a sample limit should fail")
	}

	synthetic.Source.Synthetic.Seed = 42
	result, err = offlineAverage(synthetic, 2000, discardLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Samples != 2000 {
		t.Errorf("Expected 2000 samples, got %d", result.Samples)
	}
}

// TestOfflineBadInput 测试无法解析的输入
func TestOfflineBadInput(t *testing.T) {
	config := offlineConfig(t, "0 0\nabc 1\n")

	if _, err := offlineAverage(config, 0, discardLogger()); err == nil {
		t.Error("Bad line should fail")
	}
}

// TestWriteOfflineResult 测试离线结果写出
func TestWriteOfflineResult(t *testing.T) {
	config := offlineConfig(t, "0 0\n1 1\n2 0\n")
	config.TUI.ExportPath = filepath.Join(t.TempDir(), "sta.dat")

	result, err := offlineAverage(config, 0, discardLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := writeOfflineResult(config, &result.Snapshot); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(config.TUI.ExportPath)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if string(data) != "-0.001 0\n0 1\n0.001 2\n" {
		t.Errorf("Unexpected export %q", data)
	}

	// exclusive模式拒绝覆盖
	config.TUI.ExportMode = "exclusive"
	if err := writeOfflineResult(config, &result.Snapshot); err == nil {
		t.Error("Exclusive mode should refuse an existing file")
	}
}
