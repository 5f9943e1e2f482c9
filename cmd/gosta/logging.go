package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// parseLogLevel 解析日志级别名称
func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("未知的日志级别 '%s'，可选 debug/info/warn/error", name)
	}
	return level, nil
}

// nopCloser 标准输出和丢弃日志时不需要关闭
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger 创建tint日志处理器
// TUI占用终端时日志写入logFile，logFile为空则丢弃
func newLogger(level slog.Level, logFile string, tuiActive bool) (*slog.Logger, io.Closer, error) {
	var (
		w       io.Writer = os.Stderr
		closer  io.Closer = nopCloser{}
		noColor           = false
	)

	switch {
	case logFile != "":
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("无法打开日志文件: %w", err)
		}
		w, closer, noColor = file, file, true
	case tuiActive:
		w = io.Discard
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return slog.New(handler), closer, nil
}
