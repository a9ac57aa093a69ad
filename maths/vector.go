package maths

import (
	"fmt"
	"math"
	"strings"
)

// denseVector 稠密向量实现（直接持有底层切片）
type denseVector struct {
	data []float64
}

// NewDenseVector 创建指定长度的零向量
func NewDenseVector(length int) Vector {
	if length < 0 {
		panic("vector length must be non-negative")
	}
	return &denseVector{data: make([]float64, length)}
}

// NewDenseVectorWithData 包装现有切片创建向量（不复制数据）
func NewDenseVectorWithData(data []float64) Vector {
	return &denseVector{data: data}
}

// Length 返回向量长度
func (v *denseVector) Length() int { return len(v.data) }

// Get 获取指定位置的元素值
func (v *denseVector) Get(index int) float64 { return v.data[index] }

// Set 设置向量元素值
func (v *denseVector) Set(index int, value float64) { v.data[index] = value }

// Increment 增量设置向量元素（累加值）
func (v *denseVector) Increment(index int, value float64) { v.data[index] += value }

// Zero 清空向量，重置为零向量
func (v *denseVector) Zero() {
	for i := range v.data {
		v.data[i] = 0
	}
}

// Copy 将自身值复制到 a 向量
func (v *denseVector) Copy(a Vector) {
	switch target := a.(type) {
	case *denseVector:
		if len(target.data) != len(v.data) {
			panic("vector dimension mismatch")
		}
		copy(target.data, v.data)
	default:
		// 异类型逐个元素复制
		for i, value := range v.data {
			a.Set(i, value)
		}
	}
}

// ToDense 返回底层数据的切片引用
func (v *denseVector) ToDense() []float64 { return v.data }

// Norm2 计算欧几里得范数
func (v *denseVector) Norm2() float64 {
	var sum float64
	for _, value := range v.data {
		sum += value * value
	}
	return math.Sqrt(sum)
}

// String 返回向量的字符串表示
func (v *denseVector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, value := range v.data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.6g", value)
	}
	sb.WriteByte(']')
	return sb.String()
}

// ------------------------------ 辅助函数 ------------------------------

// Norm2 计算切片的欧几里得范数
func Norm2(data []float64) float64 {
	var sum float64
	for _, value := range data {
		sum += value * value
	}
	return math.Sqrt(sum)
}

// Dot 计算两个切片的点积
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("vector dimension mismatch")
	}
	var sum float64
	for i, value := range a {
		sum += value * b[i]
	}
	return sum
}
