// Package linear 实现线性求解器族：
// 直接法(LU)、重启GMRES、线性块松弛(Gauss-Seidel/Jacobi)与单遍扫描。
// 统一契约为对节点算子求解 J·x = b（前向）或 Jᵗ·x = b（反向），
// 块松弛的子块对角解委托子节点的线性求解器或缓存LU。
package linear

import (
	"errors"

	"mdo/maths"
	"mdo/system"
	"mdo/types"
)

// residual 线性残差 r = b - J·x 及其范数
func residual(m *system.Model, id system.NodeID, mode types.Mode, rhs, x, r []float64) float64 {
	m.ApplyJac(id, mode, x, r)
	for i := range r {
		r[i] = rhs[i] - r[i]
	}
	return maths.Norm2(r)
}

// finish 按容差判定收敛状态并生成记录
func finish(rec types.Record, opt types.Options) (types.Record, error) {
	switch {
	case rec.Norm <= opt.Atol || (rec.Norm0 > 0 && rec.Norm/rec.Norm0 < opt.Rtol):
		rec.Status = types.StatusConverged
	case rec.Norm0 > 0 && rec.Norm/rec.Norm0 > opt.DivergeRtol:
		rec.Status = types.StatusDiverged
	default:
		rec.Status = types.StatusMaxIter
	}
	if rec.Status != types.StatusConverged && opt.ErrOnNonConverge {
		return rec, &types.SolveError{Record: rec, Err: errors.New("线性求解未收敛")}
	}
	return rec, nil
}
