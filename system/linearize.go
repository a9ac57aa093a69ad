package system

import (
	"fmt"

	"mdo/approx"
)

// Partials 局部偏导写入器
// 组件在Linearize中按(残差名, 变量名)写入稠密块，
// 变量名可指自身状态或任一输入，核心负责换算为全局行列区间。
type Partials struct {
	leaf *node
}

// Set 写入一个偏导块 ∂res(of)/∂(wrt)
// vals为行优先 nr×nc；对未连接输入的偏导不影响任何状态，直接丢弃。
func (p *Partials) Set(of, wrt string, vals ...float64) {
	leaf := p.leaf
	rs, ok := leaf.outIdx[of]
	if !ok {
		panic(fmt.Sprintf("%s: partial of unknown residual %q", leaf.path, of))
	}
	var col0, nc int
	if cs, ok := leaf.outIdx[wrt]; ok {
		col0, nc = leaf.lo+cs.off, cs.n
	} else if cs, ok := leaf.inIdx[wrt]; ok {
		nc = cs.n
		src := -1
		for _, in := range leaf.inputs {
			if in.name == wrt {
				src = in.src
			}
		}
		if src < 0 {
			return
		}
		col0 = src
	} else {
		panic(fmt.Sprintf("%s: partial wrt unknown variable %q", leaf.path, wrt))
	}
	if len(vals) != rs.n*nc {
		panic(fmt.Sprintf("%s: partial (%s,%s) expects %d values, got %d",
			leaf.path, of, wrt, rs.n*nc, len(vals)))
	}
	leaf.blocks = append(leaf.blocks, jacBlock{
		row0: leaf.lo + rs.off, nr: rs.n,
		col0: col0, nc: nc,
		data: append([]float64(nil), vals...),
	})
}

// ------------------------------ 线性化 ------------------------------

// Linearize 在当前状态点重建子树内全部叶子的偏导块
// 代数递增使依赖旧线性化的算子缓存（对角块分解等）自动失效。
// 无矩阵叶子不物化块，解析叶子调用Linearize，其余走有限差分。
func (m *Model) Linearize(id NodeID) error {
	m.gen++
	m.gatherInternal(id)
	var err error
	m.eachSubtreeLeaf(id, func(leaf *node) {
		if err != nil {
			return
		}
		leaf.blocks = leaf.blocks[:0]
		if leaf.matfree {
			return
		}
		if lz, ok := leaf.provider.(Linearizer); ok {
			in, out, _ := m.leafViews(leaf)
			lz.Linearize(in, out, &Partials{leaf: leaf})
			return
		}
		err = m.fdLinearize(leaf)
	})
	return err
}

// fdLinearize 对未提供解析偏导的叶子做有限差分
// 扰动空间为[已连接输入..., 自身状态]，残差对其余量的偏导恒为零。
func (m *Model) fdLinearize(leaf *node) error {
	dim := leaf.hi - leaf.lo
	// 列分组：每个已连接输入一组，自身状态一组
	type colGroup struct {
		col0 int // 全局列起点
		xo   int // 在扰动向量中的偏移
		n    int
	}
	var groups []colGroup
	xn := 0
	for _, in := range leaf.inputs {
		if in.src < 0 {
			continue
		}
		groups = append(groups, colGroup{col0: in.src, xo: xn, n: in.n})
		xn += in.n
	}
	groups = append(groups, colGroup{col0: leaf.lo, xo: xn, n: dim})
	xn += dim

	if len(leaf.fdX) != xn {
		leaf.fdX = make([]float64, xn)
		leaf.fdJac = make([]float64, dim*xn)
	}
	pack := func(x []float64) {
		o := 0
		for _, in := range leaf.inputs {
			if in.src < 0 {
				continue
			}
			copy(x[o:o+in.n], leaf.inBuf[in.off:in.off+in.n])
			o += in.n
		}
		copy(x[o:o+dim], m.U[leaf.lo:leaf.hi])
	}
	unpack := func(x []float64) {
		o := 0
		for _, in := range leaf.inputs {
			if in.src < 0 {
				continue
			}
			copy(leaf.inBuf[in.off:in.off+in.n], x[o:o+in.n])
			o += in.n
		}
		copy(m.U[leaf.lo:leaf.hi], x[o:o+dim])
	}
	pack(leaf.fdX)

	if leaf.fd == nil {
		leaf.fd = &approx.Spec{Method: approx.Forward}
	}
	leaf.fd.N, leaf.fd.M = xn, dim
	leaf.fd.Object = func(x, y []float64) {
		unpack(x)
		in := View{data: leaf.inBuf, idx: leaf.inIdx}
		out := View{data: m.U[leaf.lo:leaf.hi], idx: leaf.outIdx}
		res := View{data: y, idx: leaf.outIdx}
		leaf.provider.ApplyNonlinear(in, out, res)
	}
	if err := leaf.fd.Jacobian(leaf.fdX, leaf.fdJac); err != nil {
		return fmt.Errorf("%s: finite difference failed: %w", leaf.path, err)
	}
	// 最后一次扰动求值残留在缓冲中，按原点复原
	unpack(leaf.fdX)

	for _, g := range groups {
		data := make([]float64, dim*g.n)
		for r := 0; r < dim; r++ {
			copy(data[r*g.n:(r+1)*g.n], leaf.fdJac[r*xn+g.xo:r*xn+g.xo+g.n])
		}
		leaf.blocks = append(leaf.blocks, jacBlock{
			row0: leaf.lo, nr: dim,
			col0: g.col0, nc: g.n,
			data: data,
		})
	}
	return nil
}
