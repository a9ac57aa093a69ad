package solver

import (
	"mdo/maths"
	"mdo/system"
	"mdo/types"
)

// GaussSeidel 块Gauss-Seidel非线性求解器
// 每轮按声明顺序执行子系统，前面子系统的新输出立即传给后面的子系统；
// 可选Aitken松弛：按相邻两轮状态增量的相关性动态缩放更新步长。
type GaussSeidel struct {
	Options types.Options

	theta     float64   // 当前松弛因子
	deltaPrev []float64 // 上一轮状态增量
	uPrev     []float64 // 轮前状态快照
}

// NewGaussSeidel 创建块Gauss-Seidel求解器
func NewGaussSeidel() *GaussSeidel {
	return &GaussSeidel{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *GaussSeidel) Name() string { return "NL: NLBGS" }

// Solve 迭代至节点残差满足容差
func (s *GaussSeidel) Solve(m *system.Model, id system.NodeID) (types.Record, error) {
	opt := s.Options
	state := m.StateSlice(id)
	if opt.UseAitken {
		s.theta = 1
		if len(s.uPrev) != len(state) {
			s.uPrev = make([]float64, len(state))
			s.deltaPrev = make([]float64, len(state))
		}
	}
	return iterate(m, id, s.Name(), opt, func(iter int) (int, error) {
		if opt.UseAitken {
			copy(s.uPrev, state)
		}
		fails := 0
		for _, c := range m.Children(id) {
			m.TransferInto(c, m.U)
			crec, err := m.SolveSubsystem(c)
			f, err := countFail(crec, err)
			if err != nil {
				return fails, err
			}
			fails += f
		}
		if opt.UseAitken {
			s.relax(state, iter)
		}
		return fails, nil
	})
}

// relax Aitken松弛：θ ← θ·(1 - Δᵀ(Δ-Δ₋₁)/‖Δ-Δ₋₁‖²)，截断到[Min,Max]
func (s *GaussSeidel) relax(state []float64, iter int) {
	n := len(state)
	delta := make([]float64, n)
	for i := range state {
		delta[i] = state[i] - s.uPrev[i]
	}
	if iter > 1 {
		num, den := 0.0, 0.0
		for i := range delta {
			d := delta[i] - s.deltaPrev[i]
			num += delta[i] * d
			den += d * d
		}
		if den > maths.Epsilon {
			s.theta *= 1 - num/den
		}
		if s.theta < s.Options.AitkenMin {
			s.theta = s.Options.AitkenMin
		}
		if s.theta > s.Options.AitkenMax {
			s.theta = s.Options.AitkenMax
		}
	}
	for i := range state {
		state[i] = s.uPrev[i] + s.theta*delta[i]
	}
	copy(s.deltaPrev, delta)
}
