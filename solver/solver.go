// Package solver 实现非线性求解器族：
// 单遍执行(RunOnce)、块松弛(GaussSeidel/Jacobi)、Newton修正与Broyden割线法。
// 各求解器通过统一的外层迭代循环驱动，共享收敛/发散/上限判定逻辑。
package solver

import (
	"errors"
	"math"

	"mdo/system"
	"mdo/types"
)

// sweep 单次外层迭代的扫描动作
// 返回的fails计入记录的下层失败数，err表示不可继续的硬错误。
type sweep func(iter int) (fails int, err error)

// iterate 外层迭代循环骨架
// INIT → ITERATING → {CONVERGED, MAX_ITER, DIVERGED}；
// 发散与迭代上限默认以记录形式返回，仅在ErrOnNonConverge时升级为错误。
func iterate(m *system.Model, id system.NodeID, name string, opt types.Options, fn sweep) (types.Record, error) {
	rec := types.Record{Solver: name, Path: m.Path(id)}
	norm0 := m.EvalResiduals(id)
	rec.Norm0, rec.Norm = norm0, norm0
	m.PrintIter(id, name, 0, norm0, norm0, opt.Iprint)
	if norm0 <= opt.Atol {
		rec.Status = types.StatusConverged
		m.Notify(id, rec)
		return rec, nil
	}
	for iter := 1; iter <= opt.MaxIter; iter++ {
		fails, err := fn(iter)
		if err != nil {
			rec.Status = types.StatusDiverged
			return rec, &types.SolveError{Record: rec, Err: err}
		}
		rec.Children += fails
		norm := m.EvalResiduals(id)
		rec.Iter, rec.Norm = iter, norm
		switch {
		case norm <= opt.Atol || (norm0 > 0 && norm/norm0 < opt.Rtol):
			rec.Status = types.StatusConverged
		case math.IsNaN(norm) || math.IsInf(norm, 0) ||
			(norm0 > 0 && norm/norm0 > opt.DivergeRtol):
			rec.Status = types.StatusDiverged
		default:
			rec.Status = types.StatusMaxIter
		}
		m.PrintIter(id, name, iter, norm0, norm, opt.Iprint)
		m.Notify(id, rec)
		if rec.Status == types.StatusConverged {
			return rec, nil
		}
		if rec.Status == types.StatusDiverged {
			if opt.ErrOnNonConverge {
				return rec, &types.SolveError{Record: rec, Err: errors.New("残差发散")}
			}
			return rec, nil
		}
	}
	if opt.ErrOnNonConverge {
		return rec, &types.SolveError{Record: rec, Err: errors.New("达到迭代上限未收敛")}
	}
	return rec, nil
}

// countFail 子求解记录转下层失败计数
func countFail(rec types.Record, err error) (int, error) {
	if err != nil {
		var se *types.SolveError
		if errors.As(err, &se) {
			// 下层非收敛作为本层的失败计数传播，不立即中断
			return 1, nil
		}
		return 1, err
	}
	if !rec.Converged() {
		return 1, nil
	}
	return 0, nil
}
