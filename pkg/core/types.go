// Package core 定义了采样框架的核心接口和数据结构
// 这些接口保证了平均引擎、数据源与展示层的完全解耦
package core

import (
	"time"
)

// Tick 表示宿主在一个采样周期内提交的输入
type Tick struct {
	Signal  float64   // 主信号采样值
	Trigger float64   // 触发通道采样值
	Now     time.Time // 采样的绝对时间，用于不应期判断
}

// DetectorKind 事件检测器类型
type DetectorKind string

const (
	DetectorLevel     DetectorKind = "level"     // 触发通道等于1即触发
	DetectorThreshold DetectorKind = "threshold" // 阈值 + 不应期
)

// Snapshot 平均结果的只读快照
// 所有切片都是副本，读取方可以自由持有
type Snapshot struct {
	Session      string       `json:"session"`     // 运行会话标识
	EventCount   int          `json:"event_count"` // 已接受的事件数（包含正在采集的窗口）
	SysTime      float64      `json:"systime"`     // 引擎时间(s) = tick数 * DT
	DT           float64      `json:"dt"`          // 采样周期(s)
	LeftWinTime  float64      `json:"left"`        // 事件前窗口(s)
	RightWinTime float64      `json:"right"`       // 事件后窗口(s)
	Detector     DetectorKind `json:"detector"`    // 当前检测器
	Triggered    bool         `json:"triggered"`   // 是否处于采集窗口中
	Paused       bool         `json:"paused"`      // 宿主是否暂停了采样
	Time         []float64    `json:"time"`        // time[i] = DT*i - LeftWinTime
	Average      []float64    `json:"average"`     // 与Time按下标对齐的平均值
}

// Len 返回窗口采样点数
func (s *Snapshot) Len() int {
	return len(s.Average)
}

// CopyFrom 将src复制到s中，尽量复用已有的切片容量
func (s *Snapshot) CopyFrom(src *Snapshot) {
	timeAxis, average := s.Time, s.Average
	*s = *src
	s.Time = append(timeAxis[:0], src.Time...)
	s.Average = append(average[:0], src.Average...)
}

// DataSource 定义了采样数据源的标准接口
// 任何输入通道（合成信号、WAV回放、UDP采集卡等）都应该实现这个接口
type DataSource interface {
	// DataStream 返回一个只读通道，用于接收按采样周期产生的Tick
	// 数据源结束（例如文件读完）或Stop之后通道会被关闭
	DataStream() <-chan Tick

	// Start 启动数据收集
	// 这个方法应该是非阻塞的，实际的数据收集工作在后台goroutine中进行
	Start()

	// Stop 停止数据收集并清理资源
	// 所有相关的goroutine应该优雅地退出
	Stop()
}

// Retimer 支持运行中修改采样周期的数据源
// 宿主修改引擎DT时通过它让数据源的节拍保持一致
type Retimer interface {
	SetInterval(interval time.Duration) error
}
