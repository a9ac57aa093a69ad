package mdo_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"mdo"
	"mdo/linear"
	"mdo/model"
	"mdo/solver"
	"mdo/types"
)

// 收敛点处的解析总导数（隐函数定理手算参考）
const (
	refDy1Dx = 0.9806145
	refDy2Dx = 0.0969276
)

// convergedSellar 收敛两学科模型
func convergedSellar(t *testing.T) *mdo.Problem {
	t.Helper()
	p := mdo.NewProblem()
	cycle := model.BuildSellar(p)
	p.Model.SetNonlinear(cycle, solver.NewGaussSeidel())
	rec, err := p.RunModel()
	if err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}
	if !rec.Converged() {
		t.Fatalf("model did not converge: %s", rec)
	}
	return p
}

// TestComputeTotalsForward 验证前向总导数与解析参考一致
func TestComputeTotalsForward(t *testing.T) {
	p := convergedSellar(t)
	tot, err := p.ComputeTotals(
		[]string{"cycle.d1.y1", "cycle.d2.y2"}, []string{"px.x"}, types.ModeForward)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if got := tot.Get("cycle.d1.y1", "px.x").At(0, 0); math.Abs(got-refDy1Dx) > 1e-5 {
		t.Errorf("dy1/dx = %.7f, expected %.7f", got, refDy1Dx)
	}
	if got := tot.Get("cycle.d2.y2", "px.x").At(0, 0); math.Abs(got-refDy2Dx) > 1e-5 {
		t.Errorf("dy2/dx = %.7f, expected %.7f", got, refDy2Dx)
	}
}

// TestForwardReverseAgree 验证前向与反向总导数在容差内一致
// 两个方向走完全不同的种子线性解路径，结果必须重合。
func TestForwardReverseAgree(t *testing.T) {
	p := convergedSellar(t)
	of := []string{"cycle.d1.y1", "cycle.d2.y2"}
	wrt := []string{"px.x", "pz.z"}
	fwd, err := p.ComputeTotals(of, wrt, types.ModeForward)
	if err != nil {
		t.Fatalf("forward totals failed: %v", err)
	}
	rev, err := p.ComputeTotals(of, wrt, types.ModeReverse)
	if err != nil {
		t.Fatalf("reverse totals failed: %v", err)
	}
	for _, o := range of {
		for _, w := range wrt {
			f, r := fwd.Get(o, w), rev.Get(o, w)
			rows, cols := f.Dims()
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					a, b := f.At(i, j), r.At(i, j)
					scale := math.Max(math.Abs(a), 1)
					if math.Abs(a-b)/scale > 1e-6 {
						t.Errorf("d(%s)/d(%s)[%d,%d]: forward %.10f vs reverse %.10f", o, w, i, j, a, b)
					}
				}
			}
		}
	}
}

// TestTotalsIdempotent 验证同一收敛状态上重复计算返回同一结果
func TestTotalsIdempotent(t *testing.T) {
	p := convergedSellar(t)
	of := []string{"cycle.d2.y2"}
	wrt := []string{"px.x"}
	a, err := p.ComputeTotals(of, wrt, types.ModeAuto)
	if err != nil {
		t.Fatalf("first ComputeTotals failed: %v", err)
	}
	b, err := p.ComputeTotals(of, wrt, types.ModeAuto)
	if err != nil {
		t.Fatalf("second ComputeTotals failed: %v", err)
	}
	if a.Get("cycle.d2.y2", "px.x").At(0, 0) != b.Get("cycle.d2.y2", "px.x").At(0, 0) {
		t.Error("repeated totals differ on unchanged state")
	}
}

// TestTotalsAutoMode 验证自动模式与两个强制方向结果一致
func TestTotalsAutoMode(t *testing.T) {
	p := convergedSellar(t)
	of := []string{"cycle.d1.y1"}
	wrt := []string{"px.x", "pz.z"}
	auto, err := p.ComputeTotals(of, wrt, types.ModeAuto)
	if err != nil {
		t.Fatalf("auto totals failed: %v", err)
	}
	rev, err := p.ComputeTotals(of, wrt, types.ModeReverse)
	if err != nil {
		t.Fatalf("reverse totals failed: %v", err)
	}
	// wrt种子数3 > of种子数1，自动应选反向
	za, zr := auto.Get("cycle.d1.y1", "pz.z"), rev.Get("cycle.d1.y1", "pz.z")
	for j := 0; j < 2; j++ {
		if math.Abs(za.At(0, j)-zr.At(0, j)) > 1e-12 {
			t.Errorf("auto/reverse mismatch at z[%d]: %e vs %e", j, za.At(0, j), zr.At(0, j))
		}
	}
}

// TestEfficiencyWarning 验证强制低效方向时发出效率警告
func TestEfficiencyWarning(t *testing.T) {
	p := convergedSellar(t)
	var buf bytes.Buffer
	p.SetLog(&buf)
	// of只有1个种子、wrt有3个：强制前向需3次解，低效
	if _, err := p.ComputeTotals(
		[]string{"cycle.d1.y1"}, []string{"px.x", "pz.z"}, types.ModeForward); err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if !strings.Contains(buf.String(), "效率警告") {
		t.Errorf("expected efficiency warning in log, got %q", buf.String())
	}
}

// TestTotalsUnknownVariable 验证未知变量报配置错误
func TestTotalsUnknownVariable(t *testing.T) {
	p := convergedSellar(t)
	var ce *types.ConfigError
	if _, err := p.ComputeTotals([]string{"nope.y"}, []string{"px.x"}, types.ModeAuto); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestCircuitTotals 验证隐式电路上前向/反向总导数一致
func TestCircuitTotals(t *testing.T) {
	p := mdo.NewProblem()
	ckt := model.BuildCircuit(p)
	nt := solver.NewNewton()
	nt.Options.MaxIter = 20
	nt.LineSearch = solver.NewArmijoGoldstein()
	p.Model.SetNonlinear(ckt, nt)
	p.Model.SetLinear(ckt, linear.NewDirect())
	if _, err := p.RunModel(); err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}
	of := []string{"circuit.n1.v", "circuit.n2.v"}
	wrt := []string{"source.i"}
	fwd, err := p.ComputeTotals(of, wrt, types.ModeForward)
	if err != nil {
		t.Fatalf("forward totals failed: %v", err)
	}
	rev, err := p.ComputeTotals(of, wrt, types.ModeReverse)
	if err != nil {
		t.Fatalf("reverse totals failed: %v", err)
	}
	for _, o := range of {
		f := fwd.Get(o, "source.i").At(0, 0)
		r := rev.Get(o, "source.i").At(0, 0)
		if math.Abs(f-r)/math.Max(math.Abs(f), 1) > 1e-6 {
			t.Errorf("d(%s)/di: forward %e vs reverse %e", o, f, r)
		}
	}
	// 注入电流增大抬高节点电压
	if dv1 := fwd.Get("circuit.n1.v", "source.i").At(0, 0); dv1 <= 0 {
		t.Errorf("dv1/di = %e, expected positive", dv1)
	}
}
