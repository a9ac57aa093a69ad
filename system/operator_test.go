package system

import (
	"math"
	"testing"

	"mdo/types"
)

// buildCoupled 构造含环的双组件模型并完成线性化
// a: r = 0.5·b.y - a.y, b: r = 0.25·a.y - b.y
func buildCoupled(t *testing.T) *Model {
	t.Helper()
	m := NewModel()
	m.AddComponent(Root, "a", &scaleComp{k: 0.5})
	m.AddComponent(Root, "b", &scaleComp{k: 0.25})
	m.Connect("a.y", "b.a")
	m.Connect("b.y", "a.a")
	m.SetNonlinear(Root, &stubSolver{})
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	m.SetVal("a.y", 2)
	m.SetVal("b.y", 3)
	if err := m.Linearize(Root); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	return m
}

// TestApplyJacForward 验证前向算子乘与手算结果一致
// J = [[-1, 0.5], [0.25, -1]]
func TestApplyJacForward(t *testing.T) {
	m := buildCoupled(t)
	x := []float64{1, 2}
	y := make([]float64, 2)
	m.ApplyJac(Root, types.ModeForward, x, y)
	expect := []float64{-1*1 + 0.5*2, 0.25*1 - 1*2}
	for i := range expect {
		if math.Abs(y[i]-expect[i]) > 1e-14 {
			t.Errorf("y[%d] = %f, expected %f", i, y[i], expect[i])
		}
	}
}

// TestApplyJacAdjoint 验证前向与反向算子互为转置：⟨Jx, w⟩ = ⟨x, Jᵗw⟩
func TestApplyJacAdjoint(t *testing.T) {
	m := buildCoupled(t)
	x := []float64{1.3, -0.7}
	w := []float64{0.4, 2.1}
	jx := make([]float64, 2)
	jtw := make([]float64, 2)
	m.ApplyJac(Root, types.ModeForward, x, jx)
	m.ApplyJac(Root, types.ModeReverse, w, jtw)
	lhs := jx[0]*w[0] + jx[1]*w[1]
	rhs := x[0]*jtw[0] + x[1]*jtw[1]
	if math.Abs(lhs-rhs) > 1e-12 {
		t.Errorf("adjoint identity violated: %f != %f", lhs, rhs)
	}
}

// TestAssembleJacobian 验证稠密与稀疏组装结果一致且与算子乘吻合
func TestAssembleJacobian(t *testing.T) {
	m := buildCoupled(t)
	jd, err := m.AssembleJacobian(Root, false)
	if err != nil {
		t.Fatalf("dense assembly failed: %v", err)
	}
	js, err := m.AssembleJacobian(Root, true)
	if err != nil {
		t.Fatalf("sparse assembly failed: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if math.Abs(jd.Get(r, c)-js.Get(r, c)) > 1e-14 {
				t.Errorf("dense/sparse mismatch at (%d,%d): %f vs %f", r, c, jd.Get(r, c), js.Get(r, c))
			}
		}
	}
	// 显式矩阵乘与无矩阵算子乘一致
	x := []float64{1, 2}
	y := make([]float64, 2)
	m.ApplyJac(Root, types.ModeForward, x, y)
	for r := 0; r < 2; r++ {
		want := jd.Get(r, 0)*x[0] + jd.Get(r, 1)*x[1]
		if math.Abs(y[r]-want) > 1e-14 {
			t.Errorf("operator/matrix mismatch at row %d: %f vs %f", r, y[r], want)
		}
	}
}

// TestFDLinearize 验证有限差分偏导块与解析结果一致
func TestFDLinearize(t *testing.T) {
	m := NewModel()
	m.AddComponent(Root, "src", &sourceComp{name: "x", val: 3})
	m.AddComponent(Root, "d", &fdScaleComp{k: 2})
	m.Connect("src.x", "d.a")
	m.SetNonlinear(Root, &stubSolver{})
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	m.SetVal("d.y", 6)
	if err := m.Linearize(Root); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	J, err := m.AssembleJacobian(Root, false)
	if err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	// J = [[1, 0], [2, -1]]（行=残差，列=状态）
	expect := [][]float64{{1, 0}, {2, -1}}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if math.Abs(J.Get(r, c)-expect[r][c]) > 1e-6 {
				t.Errorf("J(%d,%d) = %f, expected %f", r, c, J.Get(r, c), expect[r][c])
			}
		}
	}
	// 线性化不得污染状态
	if math.Abs(m.GetVal("d.y")-6) > 1e-12 {
		t.Errorf("state polluted by linearization: d.y = %f", m.GetVal("d.y"))
	}
}

// TestSolveChildDiag 验证对角块直接解及其缓存失效
func TestSolveChildDiag(t *testing.T) {
	m := buildCoupled(t)
	aID := m.Children(Root)[0]
	// a的对角块为[-1]：解 -x = 2 → x = -2
	x := make([]float64, 1)
	if err := m.SolveChildDiag(aID, types.ModeForward, []float64{2}, x); err != nil {
		t.Fatalf("SolveChildDiag failed: %v", err)
	}
	if math.Abs(x[0]-(-2)) > 1e-14 {
		t.Errorf("x = %f, expected -2", x[0])
	}
	gen := m.Generation()
	if err := m.Linearize(Root); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	if m.Generation() == gen {
		t.Error("generation did not advance after Linearize")
	}
}
