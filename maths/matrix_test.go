package maths

import "testing"

// TestSparseSetGet 验证稀疏矩阵的元素读写与删除语义
func TestSparseSetGet(t *testing.T) {
	m := NewSparseMatrix(3, 4)
	m.Set(1, 2, 5.0)
	m.Set(1, 0, 1.0)
	m.Set(2, 3, -2.0)
	if got := m.Get(1, 2); got != 5.0 {
		t.Errorf("Get(1,2) = %f, expected 5", got)
	}
	if got := m.NonZeroCount(); got != 3 {
		t.Errorf("NonZeroCount = %d, expected 3", got)
	}
	// 置零即删除
	m.Set(1, 2, 0)
	if got := m.NonZeroCount(); got != 2 {
		t.Errorf("NonZeroCount after delete = %d, expected 2", got)
	}
	// 增量累加到零也删除
	m.Increment(1, 0, -1.0)
	if got := m.NonZeroCount(); got != 1 {
		t.Errorf("NonZeroCount after cancel = %d, expected 1", got)
	}
}

// TestMulVec 验证稠密与稀疏矩阵的正向/转置矩阵向量乘法一致
func TestMulVec(t *testing.T) {
	dense := NewDenseMatrix(2, 3)
	sparse := NewSparseMatrix(2, 3)
	vals := [][]float64{{1, 0, 2}, {-1, 3, 0}}
	for i, row := range vals {
		for j, v := range row {
			dense.Set(i, j, v)
			sparse.Set(i, j, v)
		}
	}
	x := NewDenseVectorWithData([]float64{1, 2, 3})
	yd := NewDenseVector(2)
	ys := NewDenseVector(2)
	dense.MulVec(x, yd)
	sparse.MulVec(x, ys)
	for i := 0; i < 2; i++ {
		if abs(yd.Get(i)-ys.Get(i)) > 1e-14 {
			t.Errorf("MulVec mismatch at %d: dense %f, sparse %f", i, yd.Get(i), ys.Get(i))
		}
	}
	// 转置方向：y = Aᵗx，期望[1*1+(-1)*2, 3*2, 2*1] = [-1, 6, 2]
	xt := NewDenseVectorWithData([]float64{1, 2})
	expect := []float64{-1, 6, 2}
	ytd := NewDenseVector(3)
	yts := NewDenseVector(3)
	dense.MulVecTranspose(xt, ytd)
	sparse.MulVecTranspose(xt, yts)
	for i, e := range expect {
		if abs(ytd.Get(i)-e) > 1e-14 || abs(yts.Get(i)-e) > 1e-14 {
			t.Errorf("MulVecTranspose at %d: dense %f, sparse %f, expected %f",
				i, ytd.Get(i), yts.Get(i), e)
		}
	}
}

// TestVectorOps 验证向量与切片的点积/范数运算
func TestVectorOps(t *testing.T) {
	v := NewDenseVectorWithData([]float64{3, 4})
	if got := v.Norm2(); abs(got-5) > 1e-14 {
		t.Errorf("Norm2 = %f, expected 5", got)
	}
	if got := Norm2([]float64{3, 4}); abs(got-5) > 1e-14 {
		t.Errorf("slice Norm2 = %f, expected 5", got)
	}
	if got := Dot([]float64{3, 4}, []float64{1, -1}); abs(got-(-1)) > 1e-14 {
		t.Errorf("Dot = %f, expected -1", got)
	}
}
