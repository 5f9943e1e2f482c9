// Package source 两列文本回放
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// TextReader 读取空白分隔的两列文本：信号 触发
// 空行和以#开头的行被忽略；只有一列时触发值为0
type TextReader struct {
	src     io.Reader
	scanner *bufio.Scanner
	line    int
}

// NewTextReader 从任意io.Reader读取
func NewTextReader(r io.Reader) *TextReader {
	t := &TextReader{src: r}
	t.scanner = bufio.NewScanner(r)
	return t
}

// OpenTextReader 打开文本文件，"-" 表示标准输入
func OpenTextReader(path string) (*TextReader, error) {
	if path == "-" {
		return NewTextReader(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开文本文件: %w", err)
	}
	return NewTextReader(file), nil
}

// ReadSample 实现SampleReader接口
func (t *TextReader) ReadSample() (signal, trigger float64, err error) {
	for t.scanner.Scan() {
		t.line++
		fields := strings.Fields(t.scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		signal, err = strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("第%d行: 无法解析信号值: %w", t.line, err)
		}
		if len(fields) > 1 {
			trigger, err = strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return 0, 0, fmt.Errorf("第%d行: 无法解析触发值: %w", t.line, err)
			}
		}
		if !finite(signal) || !finite(trigger) {
			return 0, 0, fmt.Errorf("第%d行: 非有限值", t.line)
		}
		return signal, trigger, nil
	}

	if err := t.scanner.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, io.EOF
}

// Rewind 实现rewinder接口，只有可Seek的输入支持
func (t *TextReader) Rewind() error {
	seeker, ok := t.src.(io.Seeker)
	if !ok || t.src == os.Stdin {
		return errors.New("输入不支持从头重新读取")
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return err
	}
	t.scanner = bufio.NewScanner(t.src)
	t.line = 0
	return nil
}

// Close 关闭底层文件（标准输入除外）
func (t *TextReader) Close() error {
	if c, ok := t.src.(io.Closer); ok && t.src != os.Stdin {
		return c.Close()
	}
	return nil
}

// finite 判断值是否为有限数，NaN和±Inf无法写进快照
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
