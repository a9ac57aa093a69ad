// Package debug 提供收敛历史记录与可视化。
// History实现外部记录器钩子，捕获每个外层迭代的只读快照；
// Charts/Plot把记录渲染为网页曲线或PNG图片，便于诊断收敛行为。
package debug

import (
	"sync"

	"mdo/types"
)

// Sample 单次外层迭代快照
type Sample struct {
	Iter     int       // 迭代序号
	Norm     float64   // 残差范数
	Status   types.Status
	State    []float64 // 节点状态拷贝
	Residual []float64 // 节点残差拷贝
}

// History 收敛历史记录器
// 按节点路径累积迭代序列；Jacobi并发扫描时可能并行收到通知，加锁保护。
type History struct {
	mu    sync.Mutex
	order []string
	runs  map[string][]Sample
}

// NewHistory 创建空记录器
func NewHistory() *History {
	return &History{runs: map[string][]Sample{}}
}

// Record 实现记录器钩子
func (h *History) Record(path string, rec types.Record, state, residual []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.runs[path]; !ok {
		h.order = append(h.order, path)
	}
	h.runs[path] = append(h.runs[path], Sample{
		Iter:     rec.Iter,
		Norm:     rec.Norm,
		Status:   rec.Status,
		State:    state,
		Residual: residual,
	})
}

// Paths 记录过的节点路径（首次出现顺序）
func (h *History) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

// Samples 指定路径的迭代序列
// 内层的状态/残差切片一并拷贝，改写返回值不影响已存历史。
func (h *History) Samples(path string) []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]Sample(nil), h.runs[path]...)
	for i := range out {
		out[i].State = append([]float64(nil), out[i].State...)
		out[i].Residual = append([]float64(nil), out[i].Residual...)
	}
	return out
}

// Reset 清空全部记录
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.order = nil
	h.runs = map[string][]Sample{}
}
