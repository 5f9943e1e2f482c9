// Package rt 提供实时运行调优：锁定内存，把节拍goroutine所在线程绑定到指定CPU
// 只有Linux实现了这些能力，其他平台返回ErrUnsupported
package rt

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported 当前平台不支持该调优
var ErrUnsupported = errors.New("当前平台不支持实时调优")

// Config 实时调优配置
type Config struct {
	LockMemory bool `yaml:"lock_memory"` // 锁定进程内存，避免缺页
	CPU        int  `yaml:"cpu"`         // 节拍线程绑定的CPU，-1表示不绑定
}

// DefaultConfig 返回默认配置（不做任何调优）
func DefaultConfig() *Config {
	return &Config{
		LockMemory: false,
		CPU:        -1,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.CPU < -1 {
		return errors.New("CPU编号不能小于-1")
	}
	if c.CPU >= runtime.NumCPU() {
		return fmt.Errorf("CPU编号 %d 超出范围，本机共有%d个CPU", c.CPU, runtime.NumCPU())
	}
	return nil
}

// platformTuner 每个平台实现此接口提供调优能力
type platformTuner interface {
	lockMemory() error
	unlockMemory() error
	setAffinity(cpu int) error
}

// LockMemory 锁定当前和以后分配的全部内存
func LockMemory() error {
	return getPlatformTuner().lockMemory()
}

// UnlockMemory 解除内存锁定
func UnlockMemory() error {
	return getPlatformTuner().unlockMemory()
}

// PinThread 把调用者goroutine锁定到当前OS线程并把线程绑定到cpu
// 返回的函数解除线程锁定；cpu为负数时什么也不做
func PinThread(cpu int) (func(), error) {
	if cpu < 0 {
		return func() {}, nil
	}

	runtime.LockOSThread()
	if err := getPlatformTuner().setAffinity(cpu); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return runtime.UnlockOSThread, nil
}
