package system

import (
	"fmt"
	"math"

	"mdo/types"
)

// ------------------------------ 外部协作者契约 ------------------------------

// Provider 残差提供者（组件的最小契约）
// 核心只通过该接口及下列可选扩展与组件交互，组件的编写方式不在核心范围内。
type Provider interface {
	// Setup 声明组件的输入与输出（状态）变量
	Setup() Spec
	// ApplyNonlinear 纯求值：根据输入与当前状态写出残差，
	// 除写入残差视图外不得有其他副作用。
	ApplyNonlinear(in, out, res View)
}

// Solvable 可直接给出零残差状态的组件（显式映射）
// 未实现该接口的组件含隐式状态，必须由某个祖先节点的迭代求解器收敛。
type Solvable interface {
	// SolveNonlinear 由输入直接计算状态，无需迭代修正
	SolveNonlinear(in, out View)
}

// Linearizer 提供解析局部偏导的组件
// 未实现该接口的组件在线性化时自动使用有限差分近似。
type Linearizer interface {
	// Linearize 把局部雅可比块写入jac（∂残差/∂输入、∂残差/∂状态）
	Linearize(in, out View, jac *Partials)
}

// MatrixFree 无矩阵路径组件
// 在固定线性化状态下ApplyLinear必须是引用透明的。
type MatrixFree interface {
	// ApplyLinear 计算J·v（前向）或Jᵗ·v（反向），不物化J。
	// 前向：读din/dout，写dres；反向：读dres，累加到din/dout。
	ApplyLinear(mode types.Mode, in, out, din, dout, dres View)
}

// ------------------------------ 求解器契约 ------------------------------

// NonlinearSolver 非线性求解器：把节点残差驱动到零
// Solve原地修改节点状态，返回收敛记录；记录不跨求解持久化。
type NonlinearSolver interface {
	Name() string
	Solve(m *Model, node NodeID) (types.Record, error)
}

// LinearSolver 线性求解器：对节点算子求解 J·x=b 或 Jᵗ·x=b
// rhs与x均为节点局部向量（长度=节点状态区间）。
type LinearSolver interface {
	Name() string
	Solve(m *Model, node NodeID, mode types.Mode, rhs, x []float64) (types.Record, error)
}

// SinglePass 单遍求解器标记
// 实现该接口的求解器仅适用于无环且无未托管隐式状态的节点，
// Setup阶段校验，违规立即报告配置错误。
type SinglePass interface {
	IsSinglePass() bool
}

// Recorder 外部记录器钩子
// 每个外层迭代结束时收到只读快照（状态/残差拷贝），持久化策略不在核心范围内。
type Recorder interface {
	Record(path string, rec types.Record, state, residual []float64)
}

// ------------------------------ 变量声明 ------------------------------

// VarMeta 变量元数据
// 条目在其声明叶子内唯一，全局向量由叶子局部向量按序拼接而成。
type VarMeta struct {
	Name   string    // 变量名（叶子内唯一）
	Size   int       // 分量数（标量为1）
	Value  []float64 // 初值（可为nil，默认为零）
	Lower  float64   // 下界
	Upper  float64   // 上界
}

// Spec 组件变量声明
type Spec struct {
	Inputs  []VarMeta // 输入（来自其他组件的输出）
	Outputs []VarMeta // 输出/状态（残差与之一一对应）
}

// NewVar 创建无界标量/数组变量（默认边界±∞）
func NewVar(name string, value ...float64) VarMeta {
	size := len(value)
	if size == 0 {
		size = 1
		value = nil
	}
	return VarMeta{
		Name:  name,
		Size:  size,
		Value: value,
		Lower: math.Inf(-1),
		Upper: math.Inf(1),
	}
}

// ------------------------------ 命名视图 ------------------------------

// span 变量在扁平向量中的区间
type span struct {
	off, n int
}

// View 命名视图：按变量名访问一段扁平数据
// 视图不持有数据所有权，仅是对节点局部向量的窗口。
type View struct {
	data []float64
	idx  map[string]span
}

// find 查找变量区间
func (v View) find(name string) span {
	s, ok := v.idx[name]
	if !ok {
		panic(fmt.Sprintf("view: unknown variable %q", name))
	}
	return s
}

// Get 获取标量变量值（数组变量取首分量）
func (v View) Get(name string) float64 { return v.data[v.find(name).off] }

// GetAt 获取数组变量第i个分量
func (v View) GetAt(name string, i int) float64 {
	s := v.find(name)
	if i < 0 || i >= s.n {
		panic(fmt.Sprintf("view: index %d out of range for %q", i, name))
	}
	return v.data[s.off+i]
}

// Set 设置标量变量值
func (v View) Set(name string, value float64) { v.data[v.find(name).off] = value }

// SetAt 设置数组变量第i个分量
func (v View) SetAt(name string, i int, value float64) {
	s := v.find(name)
	if i < 0 || i >= s.n {
		panic(fmt.Sprintf("view: index %d out of range for %q", i, name))
	}
	v.data[s.off+i] = value
}

// Slice 返回变量数据的切片引用（直接操作底层数据）
func (v View) Slice(name string) []float64 {
	s := v.find(name)
	return v.data[s.off : s.off+s.n]
}

// Len 返回变量分量数
func (v View) Len(name string) int { return v.find(name).n }
