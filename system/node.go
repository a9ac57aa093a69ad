package system

import (
	"mdo/approx"
	"mdo/maths"
	"mdo/types"
)

// NodeID 节点在arena中的稳定索引
// 父子关系全部以索引表达，避免交叉引用造成的所有权环。
type NodeID int

// Root 根节点索引
const Root NodeID = 0

// inputConn 叶子输入连接
type inputConn struct {
	name string // 输入变量名
	off  int    // 在输入缓冲中的偏移
	n    int    // 分量数
	src  int    // 源变量全局偏移（-1表示未连接，按初值保持常量）
}

// jacBlock 线性化后的局部偏导块（行优先稠密存储）
type jacBlock struct {
	row0 int       // 残差行全局起点
	nr   int       // 行数
	col0 int       // 列全局起点（源变量所在状态区间）
	nc   int       // 列数
	data []float64 // nr×nc
}

// node 层级节点：组（复合）或组件（叶子）
// 节点的状态/残差区间[lo,hi)是全局向量上的切片，
// 子节点区间按声明顺序连续拼接构成父节点区间。
type node struct {
	id       NodeID
	parent   NodeID // 根节点为-1
	name     string
	path     string   // 点分绝对路径（根为空串）
	children []NodeID // 声明顺序 = 执行顺序

	// 求解器配置
	nl NonlinearSolver
	ln LinearSolver

	// 全局状态/残差区间
	lo, hi int

	// 叶子数据（组节点为空）
	provider Provider
	spec     Spec
	inputs   []inputConn
	inBuf    []float64       // 输入缓冲（显式传输的目的地）
	inIdx    map[string]span // 输入视图索引（相对inBuf）
	outIdx   map[string]span // 输出视图索引（相对lo）
	blocks   []jacBlock      // 局部偏导块（每次线性化重建）
	implicit bool            // 是否含隐式状态（未实现Solvable）
	matfree  bool            // 是否走无矩阵路径
	// 无矩阵/有限差分复用缓冲
	dIn, dOut, dRes []float64
	fd              *approx.Spec
	fdX, fdJac      []float64

	// 拓扑标记（Setup时计算）
	cyclic     bool // 直接子节点耦合图含环
	unresolved bool // 子树内存在未被下层迭代求解器托管的隐式状态或环

	// 求解缓存
	lastRec types.Record // 最近一次收敛记录（只读快照）
	dlu     maths.LU     // 默认对角块直接求解缓存（块线性求解器使用）
	dluGen  int          // 缓存对应的线性化代数
}
