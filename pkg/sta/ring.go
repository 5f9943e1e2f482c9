// Package sta 事件触发平均引擎
// 包含回看缓冲区、事件检测器、窗口累加状态机以及重新配置协议
package sta

import (
	"golang.org/x/exp/constraints"
)

// Ring 固定容量的采样环形缓冲区
// 保存最近的cap个采样，满了之后每次Push淘汰最旧的一个
type Ring[T constraints.Float] struct {
	data []T
	pos  int // 下一个写入位置，同时也是最旧采样的位置
}

// NewRing 创建容量为capacity的环形缓冲区，初始内容为capacity个零
// 预先填零保证从第一个tick起窗口对齐就成立
func NewRing[T constraints.Float](capacity int) *Ring[T] {
	r := &Ring[T]{}
	r.Resize(capacity)
	return r
}

// Push 追加一个采样，已满时覆盖最旧的采样
func (r *Ring[T]) Push(v T) {
	r.data[r.pos] = v
	r.pos++
	if r.pos == len(r.data) {
		r.pos = 0
	}
}

// At 返回第i旧的采样（0为最旧）
func (r *Ring[T]) At(i int) T {
	idx := r.pos + i
	if idx >= len(r.data) {
		idx -= len(r.data)
	}
	return r.data[idx]
}

// Len 返回当前保存的采样数，始终等于容量
func (r *Ring[T]) Len() int {
	return len(r.data)
}

// Resize 丢弃所有历史并重新初始化为newCapacity个零
func (r *Ring[T]) Resize(newCapacity int) {
	if cap(r.data) >= newCapacity {
		r.data = r.data[:newCapacity]
	} else {
		r.data = make([]T, newCapacity)
	}
	r.Reset()
}

// Reset 保持容量不变，把内容清零
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.pos = 0
}

// Segments 按从旧到新的顺序返回两段切片视图，不分配内存
// 返回的切片直接引用内部存储，下一次Push之前有效
func (r *Ring[T]) Segments() (older, newer []T) {
	return r.data[r.pos:], r.data[:r.pos]
}
