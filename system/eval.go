package system

import (
	"fmt"

	"mdo/maths"
	"mdo/types"
)

// ------------------------------ 数据传输 ------------------------------

// gatherInternal 刷新子树内叶子的内部连接输入
// 仅拷贝源落在节点自身区间内的连接，跨界输入保持上次传输值；
// 这一作用域划分使块Gauss-Seidel与块Jacobi的语义差异只体现在传输时机上。
func (m *Model) gatherInternal(id NodeID) {
	nd := m.node(id)
	m.eachSubtreeLeaf(id, func(leaf *node) {
		for _, in := range leaf.inputs {
			if in.src >= nd.lo && in.src < nd.hi {
				copy(leaf.inBuf[in.off:in.off+in.n], m.U[in.src:in.src+in.n])
			}
		}
	})
}

// TransferInto 刷新子节点的跨界输入
// 传输作用域限定在直接父节点区间内：父节点只搬运自己辖区内的数据，
// 更外层的来源由祖先在向父节点传输时送达。src为全局长度的数据源：
// Gauss-Seidel传当前U（吸收本轮已更新的兄弟），Jacobi传轮前快照；
// 作用域限定保证并发Jacobi扫描时各子节点只读写自己父辖区内的归属数据。
func (m *Model) TransferInto(id NodeID, src []float64) {
	nd := m.node(id)
	plo, phi := 0, len(m.U)
	if nd.parent >= 0 {
		p := m.node(nd.parent)
		plo, phi = p.lo, p.hi
	}
	m.eachSubtreeLeaf(id, func(leaf *node) {
		for _, in := range leaf.inputs {
			if in.src < plo || in.src >= phi {
				continue
			}
			if in.src < nd.lo || in.src >= nd.hi {
				copy(leaf.inBuf[in.off:in.off+in.n], src[in.src:in.src+in.n])
			}
		}
	})
}

// ------------------------------ 残差求值 ------------------------------

// leafViews 构造叶子的输入/状态/残差命名视图
func (m *Model) leafViews(leaf *node) (in, out, res View) {
	in = View{data: leaf.inBuf, idx: leaf.inIdx}
	out = View{data: m.U[leaf.lo:leaf.hi], idx: leaf.outIdx}
	res = View{data: m.R[leaf.lo:leaf.hi], idx: leaf.outIdx}
	return
}

// EvalResiduals 求值节点残差：先刷新内部连接，再逐叶子计算
// 写入R的节点区间，返回该区间的L2范数。
func (m *Model) EvalResiduals(id NodeID) float64 {
	m.gatherInternal(id)
	m.eachSubtreeLeaf(id, func(leaf *node) {
		in, out, res := m.leafViews(leaf)
		leaf.provider.ApplyNonlinear(in, out, res)
	})
	nd := m.node(id)
	return maths.Norm2(m.R[nd.lo:nd.hi])
}

// SolveSubsystem 求解子节点（块迭代求解器的子步派发）
// 有求解器走求解器；显式叶子直接计算；隐式叶子仅允许出现在
// 某个祖先迭代求解器之下（Setup已校验），此处只刷新残差。
func (m *Model) SolveSubsystem(id NodeID) (types.Record, error) {
	nd := m.node(id)
	if nd.nl != nil {
		rec, err := nd.nl.Solve(m, id)
		nd.lastRec = rec
		return rec, err
	}
	if nd.provider == nil {
		return types.Record{}, &types.ConfigError{Path: nd.path, Detail: "组节点缺少非线性求解器"}
	}
	if sv, ok := nd.provider.(Solvable); ok {
		m.gatherInternal(id)
		in, out, _ := m.leafViews(nd)
		sv.SolveNonlinear(in, out)
		return types.Record{Solver: "direct", Path: nd.path, Status: types.StatusConverged}, nil
	}
	norm := m.EvalResiduals(id)
	return types.Record{Solver: "none", Path: nd.path, Norm0: norm, Norm: norm}, nil
}

// ------------------------------ 迭代打印 ------------------------------

// PrintIter 按Iprint等级打印一次外层迭代
func (m *Model) PrintIter(id NodeID, solver string, iter int, norm0, norm float64, iprint int) {
	if iprint <= 0 {
		return
	}
	rel := 1.0
	if norm0 > 0 {
		rel = norm / norm0
	}
	path := m.node(id).path
	if path == "" {
		path = "(root)"
	}
	fmt.Fprintf(m.LogWriter(), "%s %s: iter=%d abs=%.6e rel=%.6e\n", path, solver, iter, norm, rel)
}
