package linear

import (
	"mdo/system"
	"mdo/types"
)

// BlockJacobi 线性块Jacobi求解器
// 每轮所有子块一律基于上一轮的x计算耦合项，轮边界统一替换；
// 同轮子块无数据依赖，是线性侧的并行化设计点。
type BlockJacobi struct {
	Options types.Options
}

// NewBlockJacobi 创建线性块Jacobi求解器
// 收缩率低于Gauss-Seidel，迭代上限放宽，不沿用外层非线性默认值。
func NewBlockJacobi() *BlockJacobi {
	opt := types.NewOptions()
	opt.MaxIter = 100
	return &BlockJacobi{Options: opt}
}

// Name 求解器名称
func (s *BlockJacobi) Name() string { return "LN: LNBJ" }

// Solve 块松弛迭代
func (s *BlockJacobi) Solve(m *system.Model, id system.NodeID, mode types.Mode, rhs, x []float64) (types.Record, error) {
	opt := s.Options
	rec := types.Record{Solver: s.Name(), Path: m.Path(id)}
	dim := m.Dim(id)
	r := make([]float64, dim)
	y := make([]float64, dim)
	xNext := make([]float64, dim)
	diag := make([]float64, dim)
	rec.Norm0 = residual(m, id, mode, rhs, x, r)
	rec.Norm = rec.Norm0
	if rec.Norm0 <= opt.Atol {
		rec.Status = types.StatusConverged
		return rec, nil
	}
	plo, _ := m.Range(id)
	children := m.Children(id)
	for iter := 1; iter <= opt.MaxIter; iter++ {
		// 耦合项整轮固定在上一轮的x上
		m.ApplyJac(id, mode, x, y)
		for _, c := range children {
			clo, chi := m.Range(c)
			cdim := chi - clo
			xc := x[clo-plo : chi-plo]
			m.ApplyJac(c, mode, xc, diag[:cdim])
			for i := 0; i < cdim; i++ {
				diag[i] = rhs[clo-plo+i] - y[clo-plo+i] + diag[i]
			}
			out := xNext[clo-plo : chi-plo]
			for i := range out {
				out[i] = 0
			}
			if err := m.SolveChildDiag(c, mode, diag[:cdim], out); err != nil {
				return rec, err
			}
		}
		copy(x, xNext)
		rec.Iter = iter
		rec.Norm = residual(m, id, mode, rhs, x, r)
		if rec.Norm <= opt.Atol || (rec.Norm0 > 0 && rec.Norm/rec.Norm0 < opt.Rtol) {
			rec.Status = types.StatusConverged
			return rec, nil
		}
		if rec.Norm0 > 0 && rec.Norm/rec.Norm0 > opt.DivergeRtol {
			break
		}
	}
	return finish(rec, opt)
}
