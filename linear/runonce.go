package linear

import (
	"mdo/system"
	"mdo/types"
)

// RunOnce 单遍线性求解器
// 对无环无隐式的线性系统做一次块扫描即得精确解：
// 前向按声明顺序（下游在上游之后），反向按逆序传播伴随量。
type RunOnce struct {
	Options types.Options

	gs BlockGS
}

// NewRunOnce 创建单遍线性求解器
func NewRunOnce() *RunOnce {
	return &RunOnce{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *RunOnce) Name() string { return "LN: RunOnce" }

// IsSinglePass 单遍标记
func (s *RunOnce) IsSinglePass() bool { return true }

// Solve 单次块扫描
func (s *RunOnce) Solve(m *system.Model, id system.NodeID, mode types.Mode, rhs, x []float64) (types.Record, error) {
	rec := types.Record{Solver: s.Name(), Path: m.Path(id), Iter: 1}
	children := m.Children(id)
	if mode == types.ModeReverse {
		for i := len(children) - 1; i >= 0; i-- {
			if err := s.gs.childSweep(m, id, children[i], mode, rhs, x); err != nil {
				return rec, err
			}
		}
	} else {
		for _, c := range children {
			if err := s.gs.childSweep(m, id, c, mode, rhs, x); err != nil {
				return rec, err
			}
		}
	}
	rec.Status = types.StatusConverged
	return rec, nil
}
