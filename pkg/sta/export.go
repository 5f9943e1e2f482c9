// Package sta 平均结果导出
package sta

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

// ExportMode 目标文件已存在时的处理方式
type ExportMode int

const (
	ExportOverwrite ExportMode = iota // 覆盖已有文件
	ExportAppend                      // 追加到已有文件末尾
	ExportExclusive                   // 文件已存在时拒绝写入
)

// String 返回模式名称
func (m ExportMode) String() string {
	switch m {
	case ExportOverwrite:
		return "overwrite"
	case ExportAppend:
		return "append"
	case ExportExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// ParseExportMode 解析模式名称
func ParseExportMode(s string) (ExportMode, error) {
	switch s {
	case "overwrite", "":
		return ExportOverwrite, nil
	case "append":
		return ExportAppend, nil
	case "exclusive":
		return ExportExclusive, nil
	default:
		return 0, errors.New("未知的导出模式 '" + s + "'，可选 overwrite/append/exclusive")
	}
}

// WriteText 以两列文本写出快照：每行 "time[i] average[i]"，无表头
func WriteText(w io.Writer, snap *core.Snapshot) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 64)

	for i := range snap.Average {
		line = line[:0]
		line = strconv.AppendFloat(line, snap.Time[i], 'g', -1, 64)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, snap.Average[i], 'g', -1, 64)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return &ExportError{Err: err}
		}
	}

	if err := bw.Flush(); err != nil {
		return &ExportError{Err: err}
	}
	return nil
}

// ExportFile 按mode把快照写入path
// 失败时返回*ExportError，快照和引擎状态都不受影响
func ExportFile(path string, mode ExportMode, snap *core.Snapshot) (err error) {
	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case ExportOverwrite:
		flags |= os.O_TRUNC
	case ExportAppend:
		flags |= os.O_APPEND
	case ExportExclusive:
		flags |= os.O_EXCL
	default:
		return &ExportError{Path: path, Err: errors.New("未知的导出模式")}
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = ErrFileExists
		}
		return &ExportError{Path: path, Err: err}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = &ExportError{Path: path, Err: closeErr}
		}
	}()

	if err := WriteText(file, snap); err != nil {
		var exportErr *ExportError
		if errors.As(err, &exportErr) {
			exportErr.Path = path
		}
		return err
	}
	return nil
}
