package maths

import (
	"errors"
	"math"
)

// NewLU 创建稠密矩阵LU分解器（输入矩阵维度n）
func NewLU(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu dimension must be positive")
	}
	return &luDense{
		n:    n,
		a:    make([]float64, n*n),
		y:    make([]float64, n),
		p:    make([]int, n),
		done: false,
	}, nil
}

// NewLUSparse 创建稀疏矩阵LU分解器（输入矩阵维度n）
func NewLUSparse(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu sparse dimension must be positive")
	}
	return &luSparse{
		n: n,
		L: NewSparseMatrix(n, n),
		U: NewSparseMatrix(n, n),
		Y: NewDenseVector(n), // 中间向量用稠密更高效（访问速度优先）
		P: make([]int, n),
	}, nil
}

// luDense 稠密矩阵LU分解实现（PA=LU，带部分主元）
// L与U共用一块行优先存储：严格下三角存消元因子（L对角线恒为1），
// 上三角含对角线存U。置换向量p[i]记录分解后第i行对应的原始行索引。
type luDense struct {
	n    int
	a    []float64 // 合并存储的LU因子
	y    []float64 // 中间变量：前向替换结果
	p    []int     // 置换向量
	done bool      // 是否已有有效分解
}

// Decompose 执行稠密矩阵LU分解（高斯消元+部分主元）
func (lu *luDense) Decompose(matrix Matrix) error {
	if !matrix.IsSquare() {
		return errors.New("lu dense decompose: input must be square matrix")
	}
	n := lu.n
	if matrix.Rows() != n {
		return errors.New("lu dense decompose: matrix dimension mismatch")
	}
	lu.done = false

	// 拷贝A到工作存储，初始化单位置换
	for i := 0; i < n; i++ {
		lu.p[i] = i
		for j := 0; j < n; j++ {
			lu.a[i*n+j] = matrix.Get(i, j)
		}
	}

	// 逐列消元
	for k := 0; k < n; k++ {
		// 部分主元选择：在当前列k中找[k, n-1]行的最大值
		maxRow := k
		maxAbsVal := math.Abs(lu.a[k*n+k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(lu.a[i*n+k]); v > maxAbsVal {
				maxAbsVal = v
				maxRow = i
			}
		}
		// 主元接近零即矩阵奇异
		if maxAbsVal < Epsilon {
			return errors.New("lu dense decompose: matrix is singular or nearly singular")
		}
		// 行交换（合并存储下L因子随行一起交换）
		if maxRow != k {
			rowK := lu.a[k*n : (k+1)*n]
			rowM := lu.a[maxRow*n : (maxRow+1)*n]
			for j := range rowK {
				rowK[j], rowM[j] = rowM[j], rowK[j]
			}
			lu.p[k], lu.p[maxRow] = lu.p[maxRow], lu.p[k]
		}
		// 高斯消元：消元因子存入严格下三角
		pivot := lu.a[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := lu.a[i*n+k] / pivot
			lu.a[i*n+k] = factor
			if factor == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				lu.a[i*n+j] -= factor * lu.a[k*n+j]
			}
		}
	}
	lu.done = true
	return nil
}

// SolveReuse 利用分解结果求解Ax=b（重用预分配向量）
//
//	前向替换：Ly = Pb
//	后向替换：Ux = y
func (lu *luDense) SolveReuse(b, x Vector) error {
	n := lu.n
	if !lu.done {
		return errors.New("lu dense solve: no valid decomposition")
	}
	if b.Length() != n || x.Length() != n {
		return errors.New("lu dense solve: vector dimension mismatch")
	}
	// 前向替换（L单位下三角）
	for i := 0; i < n; i++ {
		sum := b.Get(lu.p[i])
		for j := 0; j < i; j++ {
			sum -= lu.a[i*n+j] * lu.y[j]
		}
		lu.y[i] = sum
	}
	// 后向替换
	for i := n - 1; i >= 0; i-- {
		sum := lu.y[i]
		for j := i + 1; j < n; j++ {
			sum -= lu.a[i*n+j] * x.Get(j)
		}
		diag := lu.a[i*n+i]
		if math.Abs(diag) < Epsilon {
			return errors.New("lu dense solve: division by zero (U diagonal is zero)")
		}
		x.Set(i, sum/diag)
	}
	return nil
}

// SolveTransposeReuse 利用分解结果求解Aᵗx=b
//
//	由PA=LU得 Aᵗ = UᵗLᵗP，依次求解：
//	Uᵗy = b（前向替换，Uᵗ为下三角）
//	Lᵗz = y（后向替换，Lᵗ为单位上三角）
//	x[p[i]] = z[i]（逆置换）
func (lu *luDense) SolveTransposeReuse(b, x Vector) error {
	n := lu.n
	if !lu.done {
		return errors.New("lu dense solve: no valid decomposition")
	}
	if b.Length() != n || x.Length() != n {
		return errors.New("lu dense solve: vector dimension mismatch")
	}
	// Uᵗy = b：前向替换，按列访问U
	for i := 0; i < n; i++ {
		sum := b.Get(i)
		for j := 0; j < i; j++ {
			sum -= lu.a[j*n+i] * lu.y[j]
		}
		diag := lu.a[i*n+i]
		if math.Abs(diag) < Epsilon {
			return errors.New("lu dense solve: division by zero (U diagonal is zero)")
		}
		lu.y[i] = sum / diag
	}
	// Lᵗz = y：后向替换，L对角线为1，结果按置换写回x
	for i := n - 1; i >= 0; i-- {
		sum := lu.y[i]
		for j := i + 1; j < n; j++ {
			sum -= lu.a[j*n+i] * lu.y[j]
		}
		lu.y[i] = sum
		x.Set(lu.p[i], sum)
	}
	return nil
}

// luSparse 稀疏矩阵LU分解实现（PA=LU，带部分主元+稀疏优化）
type luSparse struct {
	n    int
	L    Matrix // 单位下三角（严格下三角存消元因子）
	U    Matrix // 上三角
	Y    Vector // 中间变量
	P    []int  // 置换向量
	done bool
}

// Decompose 执行稀疏矩阵LU分解（仅处理非零元素，维持稀疏性）
func (lu *luSparse) Decompose(matrix Matrix) error {
	if !matrix.IsSquare() {
		return errors.New("lu sparse decompose: input must be square matrix")
	}
	n := lu.n
	if matrix.Rows() != n {
		return errors.New("lu sparse decompose: matrix dimension mismatch")
	}
	lu.done = false

	lu.L.Zero()
	lu.U.Zero()
	matrix.Copy(lu.U) // 在U上原位消元
	for i := 0; i < n; i++ {
		lu.P[i] = i
		lu.L.Set(i, i, 1.0)
	}

	for k := 0; k < n; k++ {
		// 部分主元选择
		maxRow := k
		maxAbsVal := math.Abs(lu.U.Get(k, k))
		for i := k + 1; i < n; i++ {
			if v := math.Abs(lu.U.Get(i, k)); v > maxAbsVal {
				maxAbsVal = v
				maxRow = i
			}
		}
		if maxAbsVal < Epsilon {
			return errors.New("lu sparse decompose: matrix is singular or nearly singular")
		}
		// 行交换（对L完全交换是安全的：j>=k的列为零）
		if maxRow != k {
			lu.U.SwapRows(k, maxRow)
			lu.L.SwapRows(k, maxRow)
			// 交换后修正L对角线
			lu.L.Set(k, maxRow, 0)
			lu.L.Set(maxRow, k, 0)
			lu.L.Set(k, k, 1.0)
			lu.L.Set(maxRow, maxRow, 1.0)
			lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
		}
		// 稀疏消元：只扫描主元行的非零列
		pivot := lu.U.Get(k, k)
		pivotCols, pivotVals := lu.U.GetRow(k)
		// 主元行引用会随写入失效，先做快照
		cols := append([]int(nil), pivotCols...)
		vals := append([]float64(nil), pivotVals...)
		for i := k + 1; i < n; i++ {
			valIK := lu.U.Get(i, k)
			if math.Abs(valIK) < Epsilon {
				continue
			}
			factor := valIK / pivot
			lu.L.Set(i, k, factor)
			lu.U.Set(i, k, 0)
			for idx, j := range cols {
				if j <= k {
					continue
				}
				updated := lu.U.Get(i, j) - factor*vals[idx]
				if math.Abs(updated) < Epsilon {
					lu.U.Set(i, j, 0)
				} else {
					lu.U.Set(i, j, updated)
				}
			}
		}
	}
	lu.done = true
	return nil
}

// SolveReuse 稀疏LU分解结果求解Ax=b（仅遍历非零元素）
func (lu *luSparse) SolveReuse(b, x Vector) error {
	n := lu.n
	if !lu.done {
		return errors.New("lu sparse solve: no valid decomposition")
	}
	if b.Length() != n || x.Length() != n {
		return errors.New("lu sparse solve: vector dimension mismatch")
	}
	// 前向替换：Ly = Pb
	for i := 0; i < n; i++ {
		sum := b.Get(lu.P[i])
		cols, vals := lu.L.GetRow(i)
		for idx, j := range cols {
			if j < i {
				sum -= vals[idx] * lu.Y.Get(j)
			}
		}
		lu.Y.Set(i, sum)
	}
	// 后向替换：Ux = y
	for i := n - 1; i >= 0; i-- {
		sum := lu.Y.Get(i)
		diag := lu.U.Get(i, i)
		if math.Abs(diag) < Epsilon {
			return errors.New("lu sparse solve: division by zero (U diagonal is zero)")
		}
		cols, vals := lu.U.GetRow(i)
		for idx, j := range cols {
			if j > i {
				sum -= vals[idx] * x.Get(j)
			}
		}
		x.Set(i, sum/diag)
	}
	return nil
}

// SolveTransposeReuse 稀疏LU分解结果求解Aᵗx=b
// 行存储下按散射方式替换：处理完第i个未知量后，
// 将其对本行后续列的贡献从右端项中扣除。
func (lu *luSparse) SolveTransposeReuse(b, x Vector) error {
	n := lu.n
	if !lu.done {
		return errors.New("lu sparse solve: no valid decomposition")
	}
	if b.Length() != n || x.Length() != n {
		return errors.New("lu sparse solve: vector dimension mismatch")
	}
	// Uᵗy = b：前向替换（散射形式），y暂存于Y
	b.Copy(lu.Y)
	for i := 0; i < n; i++ {
		diag := lu.U.Get(i, i)
		if math.Abs(diag) < Epsilon {
			return errors.New("lu sparse solve: division by zero (U diagonal is zero)")
		}
		yi := lu.Y.Get(i) / diag
		lu.Y.Set(i, yi)
		if yi == 0 {
			continue
		}
		cols, vals := lu.U.GetRow(i)
		for idx, j := range cols {
			if j > i {
				lu.Y.Increment(j, -vals[idx]*yi)
			}
		}
	}
	// Lᵗz = y：后向替换（散射形式），L对角线为1
	for i := n - 1; i >= 0; i-- {
		zi := lu.Y.Get(i)
		if zi == 0 {
			x.Set(lu.P[i], 0)
			continue
		}
		cols, vals := lu.L.GetRow(i)
		for idx, j := range cols {
			if j < i {
				lu.Y.Increment(j, -vals[idx]*zi)
			}
		}
		// 逆置换写回
		x.Set(lu.P[i], zi)
	}
	return nil
}
