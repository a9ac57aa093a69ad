package linear

import (
	"math"

	"mdo/maths"
	"mdo/system"
	"mdo/types"
)

// GMRES 重启广义极小残差求解器
// 只依赖算子的apply/apply_transpose，不组装矩阵，适配无矩阵组件；
// Givens旋转增量维护最小二乘问题，Restart步后重启；
// 可选左预条件子Pre（任意线性求解器，常用线性块松弛扫描）。
type GMRES struct {
	Options types.Options
	Pre     system.LinearSolver // 左预条件子（可为空）
}

// NewGMRES 创建GMRES求解器
// 迭代上限按Krylov法惯例放宽，不沿用外层非线性默认值。
func NewGMRES() *GMRES {
	opt := types.NewOptions()
	opt.MaxIter = 100
	return &GMRES{Options: opt}
}

// Name 求解器名称
func (s *GMRES) Name() string { return "LN: GMRES" }

// Solve 重启GMRES迭代
func (s *GMRES) Solve(m *system.Model, id system.NodeID, mode types.Mode, rhs, x []float64) (types.Record, error) {
	opt := s.Options
	dim := m.Dim(id)
	rec := types.Record{Solver: s.Name(), Path: m.Path(id)}

	restart := opt.Restart
	if restart <= 0 || restart > dim {
		restart = dim
	}
	r := make([]float64, dim)
	w := make([]float64, dim)
	z := make([]float64, dim)
	// Krylov基与Hessenberg矩阵（列优先存储旋转后的上三角）
	v := make([][]float64, restart+1)
	for i := range v {
		v[i] = make([]float64, dim)
	}
	h := make([][]float64, restart+1)
	for i := range h {
		h[i] = make([]float64, restart)
	}
	cs := make([]float64, restart)
	sn := make([]float64, restart)
	g := make([]float64, restart+1)
	y := make([]float64, restart)

	rec.Norm0 = residual(m, id, mode, rhs, x, r)
	rec.Norm = rec.Norm0
	if rec.Norm0 <= opt.Atol {
		rec.Status = types.StatusConverged
		return rec, nil
	}
	target := math.Max(opt.Atol, opt.Rtol*rec.Norm0)

	total := 0
	for total < opt.MaxIter {
		residual(m, id, mode, rhs, x, r)
		if err := s.precond(m, id, mode, r, v[0]); err != nil {
			return rec, err
		}
		beta := maths.Norm2(v[0])
		if beta < maths.Epsilon {
			rec.Status = types.StatusConverged
			rec.Norm = maths.Norm2(r)
			return rec, nil
		}
		inv := 1 / beta
		for i := range v[0] {
			v[0][i] *= inv
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta

		k := 0
		for ; k < restart && total < opt.MaxIter; k++ {
			total++
			rec.Iter = total
			// Arnoldi扩展：w = M⁻¹·J·v_k
			m.ApplyJac(id, mode, v[k], w)
			if err := s.precond(m, id, mode, w, z); err != nil {
				return rec, err
			}
			for j := 0; j <= k; j++ {
				h[j][k] = maths.Dot(z, v[j])
				for i := range z {
					z[i] -= h[j][k] * v[j][i]
				}
			}
			h[k+1][k] = maths.Norm2(z)
			if h[k+1][k] > maths.Epsilon {
				inv := 1 / h[k+1][k]
				for i := range z {
					v[k+1][i] = z[i] * inv
				}
			}
			// 既有Givens旋转作用到新列，再消去次对角元
			for j := 0; j < k; j++ {
				t := cs[j]*h[j][k] + sn[j]*h[j+1][k]
				h[j+1][k] = -sn[j]*h[j][k] + cs[j]*h[j+1][k]
				h[j][k] = t
			}
			cs[k], sn[k] = givens(h[k][k], h[k+1][k])
			h[k][k] = cs[k]*h[k][k] + sn[k]*h[k+1][k]
			h[k+1][k] = 0
			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]

			rec.Norm = math.Abs(g[k+1])
			if rec.Norm <= target {
				k++
				break
			}
		}
		// 回代最小二乘解并更新x
		for i := k - 1; i >= 0; i-- {
			y[i] = g[i]
			for j := i + 1; j < k; j++ {
				y[i] -= h[i][j] * y[j]
			}
			y[i] /= h[i][i]
		}
		for j := 0; j < k; j++ {
			for i := range x {
				x[i] += y[j] * v[j][i]
			}
		}
		rec.Norm = residual(m, id, mode, rhs, x, r)
		if rec.Norm <= target {
			rec.Status = types.StatusConverged
			return rec, nil
		}
	}
	return finish(rec, opt)
}

// precond 左预条件 z = M⁻¹·r（无预条件子时恒等）
func (s *GMRES) precond(m *system.Model, id system.NodeID, mode types.Mode, r, z []float64) error {
	if s.Pre == nil {
		copy(z, r)
		return nil
	}
	for i := range z {
		z[i] = 0
	}
	_, err := s.Pre.Solve(m, id, mode, r, z)
	return err
}

// givens 构造消去(a,b)中b的旋转系数
func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if math.Abs(b) > math.Abs(a) {
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		return s * t, s
	}
	t := b / a
	c = 1 / math.Sqrt(1+t*t)
	return c, c * t
}
