//go:build linux

package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// linuxTuner Linux平台调优实现
type linuxTuner struct{}

// lockMemory 使用mlockall锁定内存，需要CAP_IPC_LOCK或足够的RLIMIT_MEMLOCK
func (l *linuxTuner) lockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall失败: %w", err)
	}
	return nil
}

// unlockMemory 解除mlockall
func (l *linuxTuner) unlockMemory() error {
	return unix.Munlockall()
}

// setAffinity 把当前线程绑定到单个CPU
func (l *linuxTuner) setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("无法绑定到CPU %d: %w", cpu, err)
	}
	return nil
}

// getPlatformTuner 获取Linux平台的调优实现
func getPlatformTuner() platformTuner {
	return &linuxTuner{}
}
