package solver

import (
	"errors"

	"mdo/system"
	"mdo/types"
)

// Newton Newton法非线性求解器
// 每轮在当前状态点线性化，调用节点的线性求解器解 J·Δx = -r，
// 经线搜索批准后施加Δx；可选SolveSubsystems先让子系统各自收敛再修正。
type Newton struct {
	Options    types.Options
	LineSearch LineSearch // 为空时施加全步

	rhs, dx []float64
}

// NewNewton 创建Newton求解器
func NewNewton() *Newton {
	return &Newton{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *Newton) Name() string { return "NL: Newton" }

// Solve 迭代至节点残差满足容差
func (s *Newton) Solve(m *system.Model, id system.NodeID) (types.Record, error) {
	opt := s.Options
	ln := m.Linear(id)
	if ln == nil {
		return types.Record{Solver: s.Name(), Path: m.Path(id)},
			&types.ConfigError{Path: m.Path(id), Detail: "Newton求解器需要配置线性求解器"}
	}
	dim := m.Dim(id)
	if len(s.rhs) != dim {
		s.rhs = make([]float64, dim)
		s.dx = make([]float64, dim)
	}
	return iterate(m, id, s.Name(), opt, func(iter int) (int, error) {
		fails := 0
		if opt.SolveSubsystems {
			for _, c := range m.Children(id) {
				m.TransferInto(c, m.U)
				crec, err := m.SolveSubsystem(c)
				f, err := countFail(crec, err)
				if err != nil {
					return fails, err
				}
				fails += f
			}
		}
		norm0 := m.EvalResiduals(id)
		if err := m.Linearize(id); err != nil {
			return fails, err
		}
		res := m.ResidualSlice(id)
		for i := range s.rhs {
			s.rhs[i] = -res[i]
			s.dx[i] = 0
		}
		lrec, err := ln.Solve(m, id, types.ModeForward, s.rhs, s.dx)
		if err != nil {
			if errors.Is(err, types.ErrSingular) {
				return fails, err
			}
			var se *types.SolveError
			if !errors.As(err, &se) {
				return fails, err
			}
			// 线性解未收敛：带着近似方向继续，计入下层失败
			fails++
		} else if !lrec.Converged() {
			fails++
		}
		if s.LineSearch != nil {
			_, err := s.LineSearch.Apply(m, id, s.dx, norm0)
			return fails, err
		}
		state := m.StateSlice(id)
		for i := range state {
			state[i] += s.dx[i]
		}
		return fails, nil
	})
}
