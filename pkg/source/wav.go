// Package source WAV文件回放
package source

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/youpy/go-wav"
)

// WAVReader 读取双声道WAV文件：声道0为信号，声道1为触发
type WAVReader struct {
	file    *os.File
	reader  *wav.Reader
	format  *wav.WavFormat
	samples []wav.Sample
	pos     int
}

// OpenWAVReader 打开WAV文件并校验声道数
func OpenWAVReader(path string) (*WAVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开WAV文件: %w", err)
	}

	w := &WAVReader{file: file}
	if err := w.reset(); err != nil {
		file.Close()
		return nil, err
	}
	if w.format.NumChannels < 2 {
		file.Close()
		return nil, fmt.Errorf("WAV文件 '%s' 只有%d个声道，需要信号和触发两个声道", path, w.format.NumChannels)
	}
	return w, nil
}

// reset 从文件开头重新建立读取器
func (w *WAVReader) reset() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w.reader = wav.NewReader(w.file)
	format, err := w.reader.Format()
	if err != nil {
		return fmt.Errorf("无法解析WAV格式: %w", err)
	}
	w.format = format
	w.samples = nil
	w.pos = 0
	return nil
}

// SampleRate 返回文件的采样率
func (w *WAVReader) SampleRate() uint32 {
	return w.format.SampleRate
}

// Period 返回精确的采样周期(s) = 1/采样率，0表示采样率未知
func (w *WAVReader) Period() float64 {
	if w.format.SampleRate == 0 {
		return 0
	}
	return 1 / float64(w.format.SampleRate)
}

// Interval 返回采样周期的节拍间隔，不能整除时向下取整到纳秒
// 引擎的DT应使用Period
func (w *WAVReader) Interval() time.Duration {
	if w.format.SampleRate == 0 {
		return 0
	}
	return time.Second / time.Duration(w.format.SampleRate)
}

// ReadSample 实现SampleReader接口
func (w *WAVReader) ReadSample() (signal, trigger float64, err error) {
	for w.pos >= len(w.samples) {
		samples, err := w.reader.ReadSamples()
		if err != nil {
			return 0, 0, err
		}
		if len(samples) == 0 {
			return 0, 0, io.EOF
		}
		w.samples = samples
		w.pos = 0
	}

	sample := w.samples[w.pos]
	w.pos++
	return w.reader.FloatValue(sample, 0), w.reader.FloatValue(sample, 1), nil
}

// Rewind 实现rewinder接口
func (w *WAVReader) Rewind() error {
	return w.reset()
}

// Close 关闭文件
func (w *WAVReader) Close() error {
	return w.file.Close()
}
