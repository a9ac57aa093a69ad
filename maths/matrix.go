package maths

import (
	"fmt"
	"strings"
)

// denseMatrix 稠密矩阵实现（行优先全量存储）
type denseMatrix struct {
	rows, cols int
	data       []float64
	// GetRow复用的临时缓冲，避免每次调用重新分配
	rowCols []int
	rowVals []float64
}

// NewDenseMatrix 创建指定维度的空稠密矩阵
func NewDenseMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		panic("matrix dimension must be non-negative")
	}
	return &denseMatrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

// Rows 返回矩阵行数
func (m *denseMatrix) Rows() int { return m.rows }

// Cols 返回矩阵列数
func (m *denseMatrix) Cols() int { return m.cols }

// IsSquare 检查矩阵是否为方阵
func (m *denseMatrix) IsSquare() bool { return m.rows == m.cols }

// Get 获取指定位置的元素值
func (m *denseMatrix) Get(row, col int) float64 {
	m.check(row, col)
	return m.data[row*m.cols+col]
}

// Set 设置矩阵元素值
func (m *denseMatrix) Set(row, col int, value float64) {
	m.check(row, col)
	m.data[row*m.cols+col] = value
}

// Increment 增量设置矩阵元素（累加值）
func (m *denseMatrix) Increment(row, col int, value float64) {
	m.check(row, col)
	m.data[row*m.cols+col] += value
}

// Zero 清空矩阵为零矩阵
func (m *denseMatrix) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Copy 将自身值复制到 a 矩阵
func (m *denseMatrix) Copy(a Matrix) {
	switch target := a.(type) {
	case *denseMatrix:
		if target.rows != m.rows || target.cols != m.cols {
			panic(fmt.Sprintf("dimension mismatch: source %dx%d, target %dx%d",
				m.rows, m.cols, target.rows, target.cols))
		}
		copy(target.data, m.data)
	default:
		// 异类型逐个元素复制（兼容稀疏矩阵，只写非零元素）
		a.Zero()
		for i := 0; i < m.rows; i++ {
			for j := 0; j < m.cols; j++ {
				if val := m.data[i*m.cols+j]; val != 0 {
					a.Set(i, j, val)
				}
			}
		}
	}
}

// GetRow 获取指定行非零元素（列索引+值）
func (m *denseMatrix) GetRow(row int) ([]int, []float64) {
	m.check(row, 0)
	m.rowCols = m.rowCols[:0]
	m.rowVals = m.rowVals[:0]
	base := row * m.cols
	for j := 0; j < m.cols; j++ {
		if val := m.data[base+j]; val != 0 {
			m.rowCols = append(m.rowCols, j)
			m.rowVals = append(m.rowVals, val)
		}
	}
	return m.rowCols, m.rowVals
}

// SwapRows 交换两行
func (m *denseMatrix) SwapRows(row1, row2 int) {
	m.check(row1, 0)
	m.check(row2, 0)
	if row1 == row2 {
		return
	}
	a := m.data[row1*m.cols : (row1+1)*m.cols]
	b := m.data[row2*m.cols : (row2+1)*m.cols]
	for j := range a {
		a[j], b[j] = b[j], a[j]
	}
}

// MulVec 矩阵向量乘法 y = A*x
func (m *denseMatrix) MulVec(x, y Vector) {
	if x.Length() != m.cols || y.Length() != m.rows {
		panic("matrix-vector dimension mismatch")
	}
	for i := 0; i < m.rows; i++ {
		var sum float64
		base := i * m.cols
		for j := 0; j < m.cols; j++ {
			sum += m.data[base+j] * x.Get(j)
		}
		y.Set(i, sum)
	}
}

// MulVecTranspose 转置矩阵向量乘法 y = Aᵗ*x
func (m *denseMatrix) MulVecTranspose(x, y Vector) {
	if x.Length() != m.rows || y.Length() != m.cols {
		panic("matrix-vector dimension mismatch")
	}
	y.Zero()
	for i := 0; i < m.rows; i++ {
		xi := x.Get(i)
		if xi == 0 {
			continue
		}
		base := i * m.cols
		for j := 0; j < m.cols; j++ {
			y.Increment(j, m.data[base+j]*xi)
		}
	}
}

// NonZeroCount 返回非零元素数量
func (m *denseMatrix) NonZeroCount() int {
	var count int
	for _, val := range m.data {
		if val != 0 {
			count++
		}
	}
	return count
}

// String 返回矩阵的字符串表示
func (m *denseMatrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%10.4g", m.data[i*m.cols+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

// check 索引合法性校验
func (m *denseMatrix) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index out of range: (%d,%d) in %dx%d", row, col, m.rows, m.cols))
	}
}
