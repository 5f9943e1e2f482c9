package sta

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig 所有配置错误都可以用errors.Is匹配到它
	ErrInvalidConfig = errors.New("无效的窗口配置")

	// ErrExport 所有导出错误都可以用errors.Is匹配到它
	ErrExport = errors.New("导出平均结果失败")

	// ErrFileExists Exclusive模式下目标文件已存在
	ErrFileExists = errors.New("文件已存在")
)

// ConfigError 描述被拒绝的配置项
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// ExportError 导出过程中的I/O错误，不影响引擎状态
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrExport, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrExport, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func (e *ExportError) Is(target error) bool {
	return target == ErrExport
}
