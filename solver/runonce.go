package solver

import (
	"mdo/system"
	"mdo/types"
)

// RunOnce 单遍非线性求解器
// 按声明顺序执行每个子系统恰好一次，不检查残差；
// 仅适用于无环且无隐式状态的节点，Setup阶段强制校验。
type RunOnce struct {
	Options types.Options
}

// NewRunOnce 创建单遍求解器
func NewRunOnce() *RunOnce {
	return &RunOnce{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *RunOnce) Name() string { return "NL: RunOnce" }

// IsSinglePass 单遍标记
func (s *RunOnce) IsSinglePass() bool { return true }

// Solve 顺序执行各子系统一次
func (s *RunOnce) Solve(m *system.Model, id system.NodeID) (types.Record, error) {
	rec := types.Record{Solver: s.Name(), Path: m.Path(id), Iter: 1}
	for _, c := range m.Children(id) {
		m.TransferInto(c, m.U)
		crec, err := m.SolveSubsystem(c)
		fails, err := countFail(crec, err)
		if err != nil {
			rec.Status = types.StatusDiverged
			return rec, &types.SolveError{Record: rec, Err: err}
		}
		rec.Children += fails
	}
	norm := m.EvalResiduals(id)
	rec.Norm0, rec.Norm = norm, norm
	rec.Status = types.StatusConverged
	m.PrintIter(id, s.Name(), 1, norm, norm, s.Options.Iprint)
	m.Notify(id, rec)
	return rec, nil
}
