package system

import (
	"mdo/maths"
	"mdo/types"
)

// 节点线性算子：以线性化状态定义的 J = ∂R/∂U 限制在节点状态区间上。
// 跨界输入在节点的线性求解中视为常量，对应列不进入算子。

// ------------------------------ 无矩阵乘 ------------------------------

// ApplyJac 计算 y = J·x（前向）或 y = Jᵗ·x（反向）
// x、y为节点局部向量；偏导块走块乘，无矩阵叶子走ApplyLinear。
func (m *Model) ApplyJac(id NodeID, mode types.Mode, x, y []float64) {
	nd := m.node(id)
	for i := range y {
		y[i] = 0
	}
	m.eachSubtreeLeaf(id, func(leaf *node) {
		if leaf.matfree {
			m.applyMatrixFree(nd, leaf, mode, x, y)
			return
		}
		for _, b := range leaf.blocks {
			if b.col0 < nd.lo || b.col0 >= nd.hi {
				continue
			}
			r0, c0 := b.row0-nd.lo, b.col0-nd.lo
			if mode == types.ModeReverse {
				for r := 0; r < b.nr; r++ {
					xr := x[r0+r]
					if xr == 0 {
						continue
					}
					for c := 0; c < b.nc; c++ {
						y[c0+c] += b.data[r*b.nc+c] * xr
					}
				}
			} else {
				for r := 0; r < b.nr; r++ {
					s := 0.0
					for c := 0; c < b.nc; c++ {
						s += b.data[r*b.nc+c] * x[c0+c]
					}
					y[r0+r] += s
				}
			}
		}
	})
}

// applyMatrixFree 无矩阵叶子的算子乘
// 前向：填din/dout，读dres累加到y；反向：填dres，读din/dout散布到y。
func (m *Model) applyMatrixFree(nd, leaf *node, mode types.Mode, x, y []float64) {
	zero(leaf.dIn)
	zero(leaf.dOut)
	zero(leaf.dRes)
	lr0 := leaf.lo - nd.lo
	ldim := leaf.hi - leaf.lo

	if mode == types.ModeReverse {
		copy(leaf.dRes, x[lr0:lr0+ldim])
	} else {
		copy(leaf.dOut, x[lr0:lr0+ldim])
		for _, in := range leaf.inputs {
			if in.src >= nd.lo && in.src < nd.hi {
				copy(leaf.dIn[in.off:in.off+in.n], x[in.src-nd.lo:in.src-nd.lo+in.n])
			}
		}
	}

	in, out, _ := m.leafViews(leaf)
	din := View{data: leaf.dIn, idx: leaf.inIdx}
	dout := View{data: leaf.dOut, idx: leaf.outIdx}
	dres := View{data: leaf.dRes, idx: leaf.outIdx}
	leaf.provider.(MatrixFree).ApplyLinear(mode, in, out, din, dout, dres)

	if mode == types.ModeReverse {
		for i := 0; i < ldim; i++ {
			y[lr0+i] += leaf.dOut[i]
		}
		for _, in := range leaf.inputs {
			if in.src >= nd.lo && in.src < nd.hi {
				for i := 0; i < in.n; i++ {
					y[in.src-nd.lo+i] += leaf.dIn[in.off+i]
				}
			}
		}
	} else {
		for i := 0; i < ldim; i++ {
			y[lr0+i] += leaf.dRes[i]
		}
	}
}

// ------------------------------ 矩阵组装 ------------------------------

// AssembleJacobian 把节点算子物化为显式矩阵（直接法使用）
// 子树含无矩阵叶子时无法组装，报配置错误。
func (m *Model) AssembleJacobian(id NodeID, sparse bool) (maths.Matrix, error) {
	nd := m.node(id)
	dim := nd.hi - nd.lo
	var bad *node
	m.eachSubtreeLeaf(id, func(leaf *node) {
		if leaf.matfree && bad == nil {
			bad = leaf
		}
	})
	if bad != nil {
		return nil, &types.ConfigError{Path: bad.path, Detail: "无矩阵组件不支持雅可比组装，请改用Krylov求解器"}
	}
	var J maths.Matrix
	if sparse {
		J = maths.NewSparseMatrix(dim, dim)
	} else {
		J = maths.NewDenseMatrix(dim, dim)
	}
	m.eachSubtreeLeaf(id, func(leaf *node) {
		for _, b := range leaf.blocks {
			if b.col0 < nd.lo || b.col0 >= nd.hi {
				continue
			}
			for r := 0; r < b.nr; r++ {
				for c := 0; c < b.nc; c++ {
					if v := b.data[r*b.nc+c]; v != 0 {
						J.Increment(b.row0-nd.lo+r, b.col0-nd.lo+c, v)
					}
				}
			}
		}
	})
	return J, nil
}

// ------------------------------ 对角块直接解 ------------------------------

// SolveChildDiag 求解子节点对角块 J_cc·x = b（或转置）
// 子节点配有线性求解器时委托之，否则用缓存LU直接求解；
// 缓存以线性化代数为失效判据，同一线性化状态下重复求解零成本分解。
func (m *Model) SolveChildDiag(id NodeID, mode types.Mode, rhs, x []float64) error {
	nd := m.node(id)
	if nd.ln != nil {
		_, err := nd.ln.Solve(m, id, mode, rhs, x)
		return err
	}
	if nd.dlu == nil || nd.dluGen != m.gen {
		dim := nd.hi - nd.lo
		J, err := m.AssembleJacobian(id, false)
		if err != nil {
			return err
		}
		lu, err := maths.NewLU(dim)
		if err != nil {
			return err
		}
		if err := lu.Decompose(J); err != nil {
			return err
		}
		nd.dlu = lu
		nd.dluGen = m.gen
	}
	b := maths.NewDenseVectorWithData(rhs)
	v := maths.NewDenseVectorWithData(x)
	if mode == types.ModeReverse {
		return nd.dlu.SolveTransposeReuse(b, v)
	}
	return nd.dlu.SolveReuse(b, v)
}

// zero 清零切片
func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
