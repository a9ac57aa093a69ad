package linear

import (
	"fmt"

	"mdo/maths"
	"mdo/system"
	"mdo/types"
)

// Direct 直接线性求解器
// 把节点算子物化为显式矩阵并做LU分解，前向/转置均走回代；
// 分解以线性化代数为失效判据缓存，子孙节点的线性求解器被忽略
// （组装矩阵已包含其全部贡献）。
type Direct struct {
	Options types.Options

	lu  maths.LU
	gen int
	dim int
}

// NewDirect 创建直接法求解器
func NewDirect() *Direct {
	return &Direct{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *Direct) Name() string { return "LN: Direct" }

// Solve 分解并回代
func (s *Direct) Solve(m *system.Model, id system.NodeID, mode types.Mode, rhs, x []float64) (types.Record, error) {
	rec := types.Record{Solver: s.Name(), Path: m.Path(id), Iter: 1}
	dim := m.Dim(id)
	if s.lu == nil || s.gen != m.Generation() || s.dim != dim {
		J, err := m.AssembleJacobian(id, s.Options.AssembleSparse)
		if err != nil {
			return rec, err
		}
		var lu maths.LU
		if s.Options.AssembleSparse {
			lu, err = maths.NewLUSparse(dim)
		} else {
			lu, err = maths.NewLU(dim)
		}
		if err != nil {
			return rec, err
		}
		if err := lu.Decompose(J); err != nil {
			return rec, fmt.Errorf("%w: %v", types.ErrSingular, err)
		}
		s.lu, s.gen, s.dim = lu, m.Generation(), dim
	}
	b := maths.NewDenseVectorWithData(rhs)
	v := maths.NewDenseVectorWithData(x)
	var err error
	if mode == types.ModeReverse {
		err = s.lu.SolveTransposeReuse(b, v)
	} else {
		err = s.lu.SolveReuse(b, v)
	}
	if err != nil {
		return rec, fmt.Errorf("%w: %v", types.ErrSingular, err)
	}
	rec.Status = types.StatusConverged
	return rec, nil
}
