package system

// 直接子节点耦合图的环检测。
// 子A依赖子B当且仅当A子树内某叶子输入的源落在B的状态区间内；
// 图以邻接表表达，三色深度优先遍历发现回边即判环。

// hasCycle 判定组内直接子节点的耦合图是否含环
func (m *Model) hasCycle(nd *node) bool {
	k := len(nd.children)
	if k < 2 {
		return false
	}
	adj := m.couplingGraph(nd)
	// 0=未访问 1=在栈上 2=已完成
	color := make([]int, k)
	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = 1
		for _, j := range adj[i] {
			switch color[j] {
			case 1:
				return true
			case 0:
				if visit(j) {
					return true
				}
			}
		}
		color[i] = 2
		return false
	}
	for i := 0; i < k; i++ {
		if color[i] == 0 && visit(i) {
			return true
		}
	}
	return false
}

// couplingGraph 构造直接子节点间的依赖邻接表
// adj[i]包含j表示子i依赖子j的输出。
func (m *Model) couplingGraph(nd *node) [][]int {
	k := len(nd.children)
	adj := make([][]int, k)
	for i, cid := range nd.children {
		ci := m.node(cid)
		seen := map[int]bool{}
		m.eachSubtreeLeaf(cid, func(leaf *node) {
			for _, in := range leaf.inputs {
				if in.src < 0 {
					continue
				}
				// 源在子i自身区间内属于内部连接，不构成组内耦合
				if in.src >= ci.lo && in.src < ci.hi {
					continue
				}
				for j, sid := range nd.children {
					sj := m.node(sid)
					if in.src >= sj.lo && in.src < sj.hi && !seen[j] {
						adj[i] = append(adj[i], j)
						seen[j] = true
					}
				}
			}
		})
	}
	return adj
}

// eachSubtreeLeaf 深度优先遍历子树内全部叶子
func (m *Model) eachSubtreeLeaf(id NodeID, fn func(*node)) {
	nd := m.node(id)
	if nd.provider != nil {
		fn(nd)
		return
	}
	for _, c := range nd.children {
		m.eachSubtreeLeaf(c, fn)
	}
}
