package solver

import (
	"mdo/maths"
	"mdo/system"
	"mdo/types"
)

// Broyden 割线法非线性求解器
// 维护逆雅可比近似G ≈ J⁻¹并按"好Broyden"秩一公式增量更新，
// 避免每轮重新线性化；初始G由线性求解器逐列求出，
// 未配置线性求解器时退化为-I（适配 r = f(u) - u 形式的残差）。
type Broyden struct {
	Options types.Options

	g      []float64 // 逆雅可比近似（行优先 n×n）
	f      []float64 // 上一轮残差
	dx, df []float64
}

// NewBroyden 创建Broyden求解器
func NewBroyden() *Broyden {
	return &Broyden{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *Broyden) Name() string { return "NL: Broyden" }

// Solve 迭代至节点残差满足容差
func (s *Broyden) Solve(m *system.Model, id system.NodeID) (types.Record, error) {
	opt := s.Options
	dim := m.Dim(id)
	if len(s.f) != dim {
		s.f = make([]float64, dim)
		s.dx = make([]float64, dim)
		s.df = make([]float64, dim)
	}
	m.EvalResiduals(id)
	copy(s.f, m.ResidualSlice(id))
	if err := s.initInverse(m, id, dim); err != nil {
		return types.Record{Solver: s.Name(), Path: m.Path(id)}, err
	}
	return iterate(m, id, s.Name(), opt, func(iter int) (int, error) {
		// Δx = -G·f
		for i := 0; i < dim; i++ {
			sum := 0.0
			for j := 0; j < dim; j++ {
				sum -= s.g[i*dim+j] * s.f[j]
			}
			s.dx[i] = sum
		}
		state := m.StateSlice(id)
		for i := range state {
			state[i] += s.dx[i]
		}
		m.EvalResiduals(id)
		res := m.ResidualSlice(id)
		for i := range s.df {
			s.df[i] = res[i] - s.f[i]
		}
		s.update(dim)
		copy(s.f, res)
		return 0, nil
	})
}

// initInverse 构造初始逆雅可比
func (s *Broyden) initInverse(m *system.Model, id system.NodeID, dim int) error {
	if len(s.g) != dim*dim {
		s.g = make([]float64, dim*dim)
	}
	ln := m.Linear(id)
	if ln == nil {
		for i := range s.g {
			s.g[i] = 0
		}
		for i := 0; i < dim; i++ {
			s.g[i*dim+i] = -1
		}
		return nil
	}
	if err := m.Linearize(id); err != nil {
		return err
	}
	e := make([]float64, dim)
	col := make([]float64, dim)
	for j := 0; j < dim; j++ {
		for i := range e {
			e[i] = 0
			col[i] = 0
		}
		e[j] = 1
		if _, err := ln.Solve(m, id, types.ModeForward, e, col); err != nil {
			return err
		}
		for i := 0; i < dim; i++ {
			s.g[i*dim+j] = col[i]
		}
	}
	return nil
}

// update 好Broyden逆更新：G ← G + (Δx - G·Δf)·(ΔxᵀG) / (ΔxᵀG·Δf)
func (s *Broyden) update(dim int) {
	gdf := make([]float64, dim) // G·Δf
	xg := make([]float64, dim)  // ΔxᵀG
	for i := 0; i < dim; i++ {
		sum := 0.0
		for j := 0; j < dim; j++ {
			sum += s.g[i*dim+j] * s.df[j]
		}
		gdf[i] = sum
	}
	for j := 0; j < dim; j++ {
		sum := 0.0
		for i := 0; i < dim; i++ {
			sum += s.dx[i] * s.g[i*dim+j]
		}
		xg[j] = sum
	}
	den := maths.Dot(s.dx, gdf)
	if den > -maths.Epsilon && den < maths.Epsilon {
		return
	}
	for i := 0; i < dim; i++ {
		c := (s.dx[i] - gdf[i]) / den
		for j := 0; j < dim; j++ {
			s.g[i*dim+j] += c * xg[j]
		}
	}
}
