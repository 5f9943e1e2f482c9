//go:build !linux

package rt

// otherTuner 不支持实时调优的平台
type otherTuner struct{}

func (o *otherTuner) lockMemory() error { return ErrUnsupported }
func (o *otherTuner) unlockMemory() error { return nil }
func (o *otherTuner) setAffinity(cpu int) error { return ErrUnsupported }

// getPlatformTuner 获取默认的调优实现
func getPlatformTuner() platformTuner {
	return &otherTuner{}
}
