package maths

// Epsilon 浮点精度阈值（奇异判定与稀疏删元共用）
const Epsilon = 1e-16

// Vector 通用向量接口
// 定义求解器所需的向量基本操作
type Vector interface {
	// Length 返回向量长度
	Length() int
	// Get 获取指定位置的元素值
	Get(index int) float64
	// Set 设置向量元素值
	Set(index int, value float64)
	// Increment 增量设置向量元素（累加值）
	Increment(index int, value float64)
	// Zero 清空向量，重置为零向量
	Zero()
	// Copy 将自身值复制到 a 向量
	Copy(a Vector)
	// ToDense 返回底层数据的切片引用（直接操作底层数据）
	ToDense() []float64
	// Norm2 计算欧几里得范数
	Norm2() float64
	// String 返回向量的字符串表示
	String() string
}

// Matrix 通用矩阵接口
// 定义矩阵的基本操作，支持稀疏和稠密两种实现
type Matrix interface {
	// Rows 返回矩阵行数
	Rows() int
	// Cols 返回矩阵列数
	Cols() int
	// IsSquare 检查矩阵是否为方阵
	IsSquare() bool
	// Get 获取指定位置的元素值
	Get(row, col int) float64
	// Set 设置矩阵元素值
	Set(row, col int, value float64)
	// Increment 增量设置矩阵元素（累加值）
	Increment(row, col int, value float64)
	// Zero 清空矩阵为零矩阵
	Zero()
	// Copy 将自身值复制到 a 矩阵
	Copy(a Matrix)
	// GetRow 获取指定行非零元素（列索引+值）
	GetRow(row int) ([]int, []float64)
	// SwapRows 交换两行
	SwapRows(row1, row2 int)
	// MulVec 矩阵向量乘法 y = A*x
	MulVec(x, y Vector)
	// MulVecTranspose 转置矩阵向量乘法 y = Aᵗ*x
	MulVecTranspose(x, y Vector)
	// NonZeroCount 返回非零元素数量
	NonZeroCount() int
	// String 返回矩阵的字符串表示
	String() string
}

// LU 接口定义了LU分解和求解线性方程组的操作
// 反向模式总导数需要转置求解，因此在分解结果上同时提供两个方向。
type LU interface {
	// Decompose 对输入方阵执行LU分解（PA=LU，部分主元）
	Decompose(matrix Matrix) error
	// SolveReuse 重用向量求解Ax=b（利用LU分解结果）
	SolveReuse(b, x Vector) error
	// SolveTransposeReuse 重用向量求解Aᵗx=b（利用LU分解结果）
	SolveTransposeReuse(b, x Vector) error
}
