package solver

import (
	"mdo/system"
	"mdo/types"
)

// LineSearch 线搜索：约束/缩减一个完整Newton步
// Apply在节点状态上施加步长为α的更新（原地修改），返回接受的α∈(0,1]。
type LineSearch interface {
	Name() string
	Apply(m *system.Model, id system.NodeID, dx []float64, norm0 float64) (float64, error)
}

// ------------------------------ 边界截断 ------------------------------

// BoundsEnforce 边界截断线搜索
// 把步长截到使所有有界状态仍在声明边界内的最大值，不评估残差改善。
type BoundsEnforce struct{}

// NewBoundsEnforce 创建边界截断线搜索
func NewBoundsEnforce() *BoundsEnforce { return &BoundsEnforce{} }

// Name 线搜索名称
func (s *BoundsEnforce) Name() string { return "LS: BoundsEnforce" }

// Apply 截断并施加更新
func (s *BoundsEnforce) Apply(m *system.Model, id system.NodeID, dx []float64, norm0 float64) (float64, error) {
	alpha := boundsAlpha(m, id, dx)
	state := m.StateSlice(id)
	for i := range state {
		state[i] += alpha * dx[i]
	}
	return alpha, nil
}

// boundsAlpha 保持边界的最大标量步长
func boundsAlpha(m *system.Model, id system.NodeID, dx []float64) float64 {
	state := m.StateSlice(id)
	lower, upper := m.Bounds(id)
	alpha := 1.0
	for i := range state {
		if dx[i] == 0 {
			continue
		}
		t := state[i] + dx[i]
		var a float64
		switch {
		case t < lower[i]:
			a = (lower[i] - state[i]) / dx[i]
		case t > upper[i]:
			a = (upper[i] - state[i]) / dx[i]
		default:
			continue
		}
		if a < alpha {
			alpha = a
		}
	}
	if alpha < 0 {
		alpha = 0
	}
	return alpha
}

// ------------------------------ Armijo-Goldstein ------------------------------

// ArmijoGoldstein 充分下降回溯线搜索
// 从边界允许的最大步长出发按Rho几何收缩，直到试探点残差范数
// 满足 ‖r(α)‖ < (1 - C1·α)·‖r₀‖ 或回溯次数耗尽（保留最后试探点）。
type ArmijoGoldstein struct {
	Options types.LSOptions
}

// NewArmijoGoldstein 创建充分下降回溯线搜索
func NewArmijoGoldstein() *ArmijoGoldstein {
	return &ArmijoGoldstein{Options: types.NewLSOptions()}
}

// Name 线搜索名称
func (s *ArmijoGoldstein) Name() string { return "LS: AG" }

// Apply 回溯搜索并施加更新
func (s *ArmijoGoldstein) Apply(m *system.Model, id system.NodeID, dx []float64, norm0 float64) (float64, error) {
	state := m.StateSlice(id)
	base := append([]float64(nil), state...)
	alpha := boundsAlpha(m, id, dx)
	if alpha == 0 {
		return 0, nil
	}
	for k := 0; ; k++ {
		for i := range state {
			state[i] = base[i] + alpha*dx[i]
		}
		norm := m.EvalResiduals(id)
		if norm < (1-s.Options.C1*alpha)*norm0 || k >= s.Options.MaxIter {
			return alpha, nil
		}
		alpha *= s.Options.Rho
	}
}
