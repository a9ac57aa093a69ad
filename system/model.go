package system

import (
	"fmt"
	"io"
	"strings"

	"mdo/types"
)

// Model 层级模型
// 以arena保存全部节点，状态向量U与残差向量R为全局平行数组，
// 每个条目由声明它的叶子唯一拥有，节点只持有自己区间的视图。
type Model struct {
	nodes []*node
	U     []float64 // 全局状态向量
	R     []float64 // 全局残差向量
	lower []float64 // 状态下界
	upper []float64 // 状态上界

	conns  map[string]string // 输入绝对路径 → 源输出绝对路径（Setup前暂存）
	varOff map[string]span   // 输出变量绝对路径 → 全局区间

	gen       int // 线性化代数（算子缓存失效判定）
	cursor    int // Setup时的区间分配游标
	setupDone bool

	// Recorder 外层迭代快照钩子（可为空）
	Recorder Recorder
	// Log 迭代打印输出（为空时静默）
	Log io.Writer

	// 默认求解器工厂：Setup时为未配置求解器的组填充，
	// iterative指示该组含环或未托管隐式状态、需要迭代收敛能力
	DefaultNonlinear func(iterative bool) NonlinearSolver
	DefaultLinear    func(iterative bool) LinearSolver
}

// NewModel 创建仅含根组节点的空模型
func NewModel() *Model {
	m := &Model{
		conns:  map[string]string{},
		varOff: map[string]span{},
	}
	m.nodes = append(m.nodes, &node{id: Root, parent: -1})
	return m
}

// ------------------------------ 模型构建 ------------------------------

// AddGroup 在parent下追加组节点，返回新节点索引
func (m *Model) AddGroup(parent NodeID, name string) NodeID {
	return m.addNode(parent, name, nil)
}

// AddComponent 在parent下追加组件叶子，返回新节点索引
func (m *Model) AddComponent(parent NodeID, name string, p Provider) NodeID {
	if p == nil {
		panic("AddComponent: provider must not be nil")
	}
	return m.addNode(parent, name, p)
}

// addNode 追加节点到arena
func (m *Model) addNode(parent NodeID, name string, p Provider) NodeID {
	if m.setupDone {
		panic("model structure is frozen after Setup")
	}
	pn := m.node(parent)
	if pn.provider != nil {
		panic(fmt.Sprintf("cannot add child under component %q", pn.path))
	}
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("invalid node name %q", name))
	}
	path := name
	if pn.path != "" {
		path = pn.path + "." + name
	}
	id := NodeID(len(m.nodes))
	m.nodes = append(m.nodes, &node{
		id:       id,
		parent:   parent,
		name:     name,
		path:     path,
		provider: p,
	})
	pn.children = append(pn.children, id)
	return id
}

// Connect 声明连接：把源输出送入目标输入
// 两端均为绝对路径（"组路径.组件名.变量名"），Setup时统一解析校验。
func (m *Model) Connect(src, tgt string) {
	if m.setupDone {
		panic("model structure is frozen after Setup")
	}
	if old, ok := m.conns[tgt]; ok {
		panic(fmt.Sprintf("input %q already connected to %q", tgt, old))
	}
	m.conns[tgt] = src
}

// SetNonlinear 为节点指派非线性求解器
func (m *Model) SetNonlinear(id NodeID, s NonlinearSolver) { m.node(id).nl = s }

// SetLinear 为节点指派线性求解器
func (m *Model) SetLinear(id NodeID, s LinearSolver) { m.node(id).ln = s }

// ------------------------------ Setup ------------------------------

// Setup 冻结模型结构：分配全局区间、解析连接、校验求解器拓扑兼容性
// 所有配置错误在此处立即报告，不推迟到求解失败。
func (m *Model) Setup() error {
	if m.setupDone {
		return nil
	}
	// 1. 深度优先分配状态/残差区间（子区间按声明顺序拼接）
	if err := m.assignOffsets(Root); err != nil {
		return err
	}
	n := m.node(Root).hi
	m.U = make([]float64, n)
	m.R = make([]float64, n)
	m.lower = make([]float64, n)
	m.upper = make([]float64, n)
	m.initValues(Root)

	// 2. 解析连接
	if err := m.resolveConnections(); err != nil {
		return err
	}

	// 3. 拓扑标记与求解器校验（自底向上）
	m.markTopology(Root)
	if err := m.validateSolvers(Root); err != nil {
		return err
	}
	m.setupDone = true
	return nil
}

// assignOffsets 深度优先分配区间并登记输出变量
func (m *Model) assignOffsets(id NodeID) error {
	nd := m.node(id)
	nd.lo = m.cursor
	if nd.provider != nil {
		spec := nd.provider.Setup()
		if len(spec.Outputs) == 0 {
			return &types.ConfigError{Path: nd.path, Detail: "组件必须至少声明一个状态/残差对"}
		}
		nd.outIdx = map[string]span{}
		off := 0
		for _, v := range spec.Outputs {
			if err := checkVar(nd.path, v); err != nil {
				return err
			}
			if _, ok := nd.outIdx[v.Name]; ok {
				return &types.ConfigError{Path: nd.path, Detail: fmt.Sprintf("输出 %q 重复声明", v.Name)}
			}
			nd.outIdx[v.Name] = span{off: off, n: size(v)}
			m.varOff[nd.path+"."+v.Name] = span{off: nd.lo + off, n: size(v)}
			off += size(v)
		}
		nd.inIdx = map[string]span{}
		inOff := 0
		for _, v := range spec.Inputs {
			if err := checkVar(nd.path, v); err != nil {
				return err
			}
			if _, ok := nd.inIdx[v.Name]; ok {
				return &types.ConfigError{Path: nd.path, Detail: fmt.Sprintf("输入 %q 重复声明", v.Name)}
			}
			nd.inIdx[v.Name] = span{off: inOff, n: size(v)}
			nd.inputs = append(nd.inputs, inputConn{name: v.Name, off: inOff, n: size(v), src: -1})
			inOff += size(v)
		}
		nd.inBuf = make([]float64, inOff)
		nd.dIn = make([]float64, inOff)
		nd.dOut = make([]float64, off)
		nd.dRes = make([]float64, off)
		nd.spec = spec
		_, solvable := nd.provider.(Solvable)
		nd.implicit = !solvable
		_, nd.matfree = nd.provider.(MatrixFree)
		m.cursor += off
	} else {
		for _, c := range nd.children {
			if err := m.assignOffsets(c); err != nil {
				return err
			}
		}
	}
	nd.hi = m.cursor
	if id == Root && nd.hi == nd.lo {
		return &types.ConfigError{Path: "", Detail: "模型不含任何状态变量"}
	}
	return nil
}

// initValues 写入初值与边界
func (m *Model) initValues(id NodeID) {
	nd := m.node(id)
	if nd.provider == nil {
		for _, c := range nd.children {
			m.initValues(c)
		}
		return
	}
	for _, v := range nd.spec.Outputs {
		s := nd.outIdx[v.Name]
		for i := 0; i < s.n; i++ {
			if v.Value != nil {
				m.U[nd.lo+s.off+i] = v.Value[i]
			}
			m.lower[nd.lo+s.off+i] = v.Lower
			m.upper[nd.lo+s.off+i] = v.Upper
		}
	}
	for _, v := range nd.spec.Inputs {
		s := nd.inIdx[v.Name]
		if v.Value != nil {
			copy(nd.inBuf[s.off:s.off+s.n], v.Value)
		}
	}
}

// resolveConnections 把声明的连接解析为叶子输入的源偏移
func (m *Model) resolveConnections() error {
	for tgt, src := range m.conns {
		dot := strings.LastIndex(tgt, ".")
		if dot < 0 {
			return &types.ConfigError{Path: tgt, Detail: "连接目标必须是 组件路径.变量名"}
		}
		compPath, varName := tgt[:dot], tgt[dot+1:]
		nd := m.findByPath(compPath)
		if nd == nil || nd.provider == nil {
			return &types.ConfigError{Path: tgt, Detail: "连接目标组件不存在"}
		}
		srcSpan, ok := m.varOff[src]
		if !ok {
			return &types.ConfigError{Path: tgt, Detail: fmt.Sprintf("连接源 %q 不存在", src)}
		}
		found := false
		for i := range nd.inputs {
			if nd.inputs[i].name != varName {
				continue
			}
			if nd.inputs[i].n != srcSpan.n {
				return &types.ConfigError{Path: tgt,
					Detail: fmt.Sprintf("连接尺寸不匹配: 源 %q 为 %d, 目标为 %d", src, srcSpan.n, nd.inputs[i].n)}
			}
			nd.inputs[i].src = srcSpan.off
			found = true
		}
		if !found {
			return &types.ConfigError{Path: tgt, Detail: fmt.Sprintf("组件没有输入 %q", varName)}
		}
	}
	return nil
}

// markTopology 自底向上计算环与未托管隐式状态标记，并填充默认求解器
func (m *Model) markTopology(id NodeID) {
	nd := m.node(id)
	if nd.provider != nil {
		nd.unresolved = nd.implicit
		return
	}
	for _, c := range nd.children {
		m.markTopology(c)
	}
	nd.cyclic = m.hasCycle(nd)
	needsIter := nd.cyclic
	for _, c := range nd.children {
		cn := m.node(c)
		// 子组的迭代求解器托管其子树内的隐式状态与环
		if cn.unresolved && !isIterative(cn.nl) {
			needsIter = true
		}
	}
	if nd.nl == nil && m.DefaultNonlinear != nil {
		nd.nl = m.DefaultNonlinear(needsIter)
	}
	if nd.ln == nil && m.DefaultLinear != nil {
		nd.ln = m.DefaultLinear(needsIter)
	}
	nd.unresolved = needsIter && !isIterative(nd.nl)
}

// validateSolvers 校验单遍求解器与节点拓扑的兼容性
func (m *Model) validateSolvers(id NodeID) error {
	nd := m.node(id)
	if nd.provider != nil {
		return nil
	}
	needsIter := nd.cyclic
	for _, c := range nd.children {
		cn := m.node(c)
		if cn.unresolved && !isIterative(cn.nl) {
			needsIter = true
		}
	}
	if needsIter {
		if sp, ok := nd.nl.(SinglePass); ok && sp.IsSinglePass() {
			return &types.ConfigError{Path: nd.path,
				Detail: fmt.Sprintf("单遍求解器 %q 不适用于含环或隐式状态的节点", nd.nl.Name())}
		}
		if sp, ok := nd.ln.(SinglePass); ok && sp.IsSinglePass() {
			return &types.ConfigError{Path: nd.path,
				Detail: fmt.Sprintf("单遍线性求解器 %q 不适用于含环或隐式状态的节点", nd.ln.Name())}
		}
	}
	for _, c := range nd.children {
		if err := m.validateSolvers(c); err != nil {
			return err
		}
	}
	return nil
}

// isIterative 求解器是否具备迭代收敛能力
func isIterative(s NonlinearSolver) bool {
	if s == nil {
		return false
	}
	sp, ok := s.(SinglePass)
	return !ok || !sp.IsSinglePass()
}

// ------------------------------ 访问器 ------------------------------

// node 按索引取节点
func (m *Model) node(id NodeID) *node {
	if int(id) < 0 || int(id) >= len(m.nodes) {
		panic(fmt.Sprintf("invalid node id %d", id))
	}
	return m.nodes[id]
}

// findByPath 按绝对路径查找节点
func (m *Model) findByPath(path string) *node {
	for _, nd := range m.nodes {
		if nd.path == path {
			return nd
		}
	}
	return nil
}

// Find 按绝对路径查找节点（根节点为空串）
func (m *Model) Find(path string) (NodeID, bool) {
	if nd := m.findByPath(path); nd != nil {
		return nd.id, true
	}
	return 0, false
}

// Path 节点绝对路径
func (m *Model) Path(id NodeID) string { return m.node(id).path }

// IsGroup 节点是否为组（非叶子）
func (m *Model) IsGroup(id NodeID) bool { return m.node(id).provider == nil }

// NumNodes 节点总数（索引0..NumNodes-1有效）
func (m *Model) NumNodes() int { return len(m.nodes) }

// Children 节点的直接子节点（声明顺序）
func (m *Model) Children(id NodeID) []NodeID { return m.node(id).children }

// Range 节点状态区间[lo,hi)
func (m *Model) Range(id NodeID) (lo, hi int) {
	nd := m.node(id)
	return nd.lo, nd.hi
}

// Dim 节点状态维度
func (m *Model) Dim(id NodeID) int {
	nd := m.node(id)
	return nd.hi - nd.lo
}

// StateSlice 节点状态子向量（求解期间由该节点的求解器独占修改）
func (m *Model) StateSlice(id NodeID) []float64 {
	nd := m.node(id)
	return m.U[nd.lo:nd.hi]
}

// ResidualSlice 节点残差子向量
func (m *Model) ResidualSlice(id NodeID) []float64 {
	nd := m.node(id)
	return m.R[nd.lo:nd.hi]
}

// Bounds 节点区间内的状态上下界
func (m *Model) Bounds(id NodeID) (lower, upper []float64) {
	nd := m.node(id)
	return m.lower[nd.lo:nd.hi], m.upper[nd.lo:nd.hi]
}

// VarSpan 输出变量绝对路径对应的全局区间
func (m *Model) VarSpan(path string) (off, n int, ok bool) {
	s, ok := m.varOff[path]
	return s.off, s.n, ok
}

// GetVal 读取输出变量当前值（标量取首分量）
func (m *Model) GetVal(path string) float64 {
	s, ok := m.varOff[path]
	if !ok {
		panic(fmt.Sprintf("unknown variable %q", path))
	}
	return m.U[s.off]
}

// SetVal 设置输出变量当前值
func (m *Model) SetVal(path string, value ...float64) {
	s, ok := m.varOff[path]
	if !ok {
		panic(fmt.Sprintf("unknown variable %q", path))
	}
	if len(value) != s.n {
		panic(fmt.Sprintf("variable %q expects %d values, got %d", path, s.n, len(value)))
	}
	copy(m.U[s.off:s.off+s.n], value)
}

// Snapshot 全局状态向量拷贝（Jacobi扫描的上一迭代数据源）
func (m *Model) Snapshot() []float64 {
	return append([]float64(nil), m.U...)
}

// Generation 当前线性化代数（算子/分解缓存的失效判定）
func (m *Model) Generation() int { return m.gen }

// Nonlinear 节点的非线性求解器
func (m *Model) Nonlinear(id NodeID) NonlinearSolver { return m.node(id).nl }

// Linear 节点的线性求解器
func (m *Model) Linear(id NodeID) LinearSolver { return m.node(id).ln }

// LastRecord 节点最近一次收敛记录（只读快照）
func (m *Model) LastRecord(id NodeID) types.Record { return m.node(id).lastRec }

// LogWriter 迭代打印输出目标
func (m *Model) LogWriter() io.Writer {
	if m.Log == nil {
		return io.Discard
	}
	return m.Log
}

// Notify 求解器在每个外层迭代结束时发布收敛记录
// 同时向外部记录器推送只读状态/残差快照。
func (m *Model) Notify(id NodeID, rec types.Record) {
	nd := m.node(id)
	nd.lastRec = rec
	if m.Recorder != nil {
		m.Recorder.Record(nd.path,
			rec,
			append([]float64(nil), m.U[nd.lo:nd.hi]...),
			append([]float64(nil), m.R[nd.lo:nd.hi]...))
	}
}

// ------------------------------ 辅助 ------------------------------

// size 变量分量数（未填写按标量处理）
func size(v VarMeta) int {
	if v.Size <= 0 {
		return 1
	}
	return v.Size
}

// checkVar 变量声明合法性
func checkVar(path string, v VarMeta) error {
	if v.Name == "" || strings.Contains(v.Name, ".") {
		return &types.ConfigError{Path: path, Detail: fmt.Sprintf("非法变量名 %q", v.Name)}
	}
	if v.Value != nil && len(v.Value) != size(v) {
		return &types.ConfigError{Path: path, Detail: fmt.Sprintf("变量 %q 初值长度与尺寸不符", v.Name)}
	}
	return nil
}
