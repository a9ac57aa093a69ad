package maths

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// sparseRow 稀疏矩阵单行（列索引升序+对应值）
type sparseRow struct {
	cols []int
	vals []float64
}

// find 二分查找列索引，返回插入位置与是否命中
func (r *sparseRow) find(col int) (int, bool) {
	pos := sort.SearchInts(r.cols, col)
	return pos, pos < len(r.cols) && r.cols[pos] == col
}

// insert 在pos位置插入新元素
func (r *sparseRow) insert(pos, col int, value float64) {
	r.cols = append(r.cols, 0)
	r.vals = append(r.vals, 0)
	copy(r.cols[pos+1:], r.cols[pos:])
	copy(r.vals[pos+1:], r.vals[pos:])
	r.cols[pos] = col
	r.vals[pos] = value
}

// remove 删除pos位置的元素（维持稀疏性）
func (r *sparseRow) remove(pos int) {
	r.cols = append(r.cols[:pos], r.cols[pos+1:]...)
	r.vals = append(r.vals[:pos], r.vals[pos+1:]...)
}

// sparseMatrix 稀疏矩阵实现
// 按行存储升序列索引与值，行交换为O(1)的切片头交换。
// 相比CSR牺牲部分紧凑性，换取LU分解中频繁插入/删除元素的效率。
type sparseMatrix struct {
	rows, cols int
	row        []sparseRow
}

// NewSparseMatrix 创建新的稀疏矩阵
func NewSparseMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		panic("matrix dimension must be non-negative")
	}
	return &sparseMatrix{
		rows: rows,
		cols: cols,
		row:  make([]sparseRow, rows),
	}
}

// Rows 返回矩阵行数
func (m *sparseMatrix) Rows() int { return m.rows }

// Cols 返回矩阵列数
func (m *sparseMatrix) Cols() int { return m.cols }

// IsSquare 检查矩阵是否为方阵
func (m *sparseMatrix) IsSquare() bool { return m.rows == m.cols }

// Get 获取指定位置的元素值（未存储元素返回0）
func (m *sparseMatrix) Get(row, col int) float64 {
	m.check(row, col)
	if pos, ok := m.row[row].find(col); ok {
		return m.row[row].vals[pos]
	}
	return 0
}

// Set 设置矩阵元素值（置零即删除元素）
func (m *sparseMatrix) Set(row, col int, value float64) {
	m.check(row, col)
	r := &m.row[row]
	pos, ok := r.find(col)
	switch {
	case ok && value == 0:
		r.remove(pos)
	case ok:
		r.vals[pos] = value
	case value != 0:
		r.insert(pos, col, value)
	}
}

// Increment 增量设置矩阵元素（累加值）
func (m *sparseMatrix) Increment(row, col int, value float64) {
	m.check(row, col)
	if value == 0 {
		return
	}
	r := &m.row[row]
	pos, ok := r.find(col)
	if !ok {
		r.insert(pos, col, value)
		return
	}
	r.vals[pos] += value
	// 累加到接近零则删除（维持稀疏性）
	if math.Abs(r.vals[pos]) < Epsilon {
		r.remove(pos)
	}
}

// Zero 清空矩阵为零矩阵
func (m *sparseMatrix) Zero() {
	for i := range m.row {
		m.row[i].cols = m.row[i].cols[:0]
		m.row[i].vals = m.row[i].vals[:0]
	}
}

// Copy 将自身值复制到 a 矩阵
func (m *sparseMatrix) Copy(a Matrix) {
	if a.Rows() != m.rows || a.Cols() != m.cols {
		panic(fmt.Sprintf("dimension mismatch: source %dx%d, target %dx%d",
			m.rows, m.cols, a.Rows(), a.Cols()))
	}
	a.Zero()
	for i := range m.row {
		for pos, j := range m.row[i].cols {
			a.Set(i, j, m.row[i].vals[pos])
		}
	}
}

// GetRow 获取指定行非零元素（列索引+值，底层引用勿修改）
func (m *sparseMatrix) GetRow(row int) ([]int, []float64) {
	m.check(row, 0)
	return m.row[row].cols, m.row[row].vals
}

// SwapRows 交换两行（仅交换行头，O(1)）
func (m *sparseMatrix) SwapRows(row1, row2 int) {
	m.check(row1, 0)
	m.check(row2, 0)
	m.row[row1], m.row[row2] = m.row[row2], m.row[row1]
}

// MulVec 矩阵向量乘法 y = A*x（仅遍历非零元素）
func (m *sparseMatrix) MulVec(x, y Vector) {
	if x.Length() != m.cols || y.Length() != m.rows {
		panic("matrix-vector dimension mismatch")
	}
	for i := range m.row {
		var sum float64
		for pos, j := range m.row[i].cols {
			sum += m.row[i].vals[pos] * x.Get(j)
		}
		y.Set(i, sum)
	}
}

// MulVecTranspose 转置矩阵向量乘法 y = Aᵗ*x（按行散射累加）
func (m *sparseMatrix) MulVecTranspose(x, y Vector) {
	if x.Length() != m.rows || y.Length() != m.cols {
		panic("matrix-vector dimension mismatch")
	}
	y.Zero()
	for i := range m.row {
		xi := x.Get(i)
		if xi == 0 {
			continue
		}
		for pos, j := range m.row[i].cols {
			y.Increment(j, m.row[i].vals[pos]*xi)
		}
	}
}

// NonZeroCount 返回非零元素数量
func (m *sparseMatrix) NonZeroCount() int {
	var count int
	for i := range m.row {
		count += len(m.row[i].cols)
	}
	return count
}

// String 返回矩阵的字符串表示（三元组形式）
func (m *sparseMatrix) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "sparse %dx%d nnz=%d\n", m.rows, m.cols, m.NonZeroCount())
	for i := range m.row {
		for pos, j := range m.row[i].cols {
			fmt.Fprintf(&sb, "(%d,%d)=%.6g\n", i, j, m.row[i].vals[pos])
		}
	}
	return sb.String()
}

// check 索引合法性校验
func (m *sparseMatrix) check(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index out of range: (%d,%d) in %dx%d", row, col, m.rows, m.cols))
	}
}
