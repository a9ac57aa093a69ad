package linear_test

import (
	"errors"
	"math"
	"testing"

	"mdo"
	"mdo/linear"
	"mdo/model"
	"mdo/solver"
	"mdo/system"
	"mdo/types"
)

// setupCycle 收敛两学科模型并在耦合组上线性化
func setupCycle(t *testing.T) (*mdo.Problem, system.NodeID) {
	t.Helper()
	p := mdo.NewProblem()
	cycle := model.BuildSellar(p)
	p.Model.SetNonlinear(cycle, solver.NewGaussSeidel())
	if _, err := p.RunModel(); err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}
	if err := p.Model.Linearize(cycle); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	return p, cycle
}

// checkSolution 验证解满足算子方程
func checkSolution(t *testing.T, p *mdo.Problem, id system.NodeID, mode types.Mode, rhs, x []float64, tol float64) {
	t.Helper()
	y := make([]float64, len(x))
	p.Model.ApplyJac(id, mode, x, y)
	for i := range y {
		if math.Abs(y[i]-rhs[i]) > tol {
			t.Errorf("operator residual at %d: got %e, rhs %e (mode %s)", i, y[i], rhs[i], mode)
		}
	}
}

// TestDirectSolve 验证直接法前向与转置解
func TestDirectSolve(t *testing.T) {
	p, cycle := setupCycle(t)
	d := linear.NewDirect()
	rhs := []float64{1, 2}
	for _, mode := range []types.Mode{types.ModeForward, types.ModeReverse} {
		x := make([]float64, 2)
		rec, err := d.Solve(p.Model, cycle, mode, rhs, x)
		if err != nil {
			t.Fatalf("Solve(%s) failed: %v", mode, err)
		}
		if !rec.Converged() {
			t.Fatalf("record not converged: %s", rec)
		}
		checkSolution(t, p, cycle, mode, rhs, x, 1e-12)
	}
}

// TestDirectSparse 验证稀疏组装与稠密组装给出同一解
func TestDirectSparse(t *testing.T) {
	p, cycle := setupCycle(t)
	dense := linear.NewDirect()
	sparse := linear.NewDirect()
	sparse.Options.AssembleSparse = true
	rhs := []float64{0.3, -1.7}
	xd := make([]float64, 2)
	xs := make([]float64, 2)
	if _, err := dense.Solve(p.Model, cycle, types.ModeForward, rhs, xd); err != nil {
		t.Fatalf("dense solve failed: %v", err)
	}
	if _, err := sparse.Solve(p.Model, cycle, types.ModeForward, rhs, xs); err != nil {
		t.Fatalf("sparse solve failed: %v", err)
	}
	for i := range xd {
		if math.Abs(xd[i]-xs[i]) > 1e-12 {
			t.Errorf("x[%d]: dense %e vs sparse %e", i, xd[i], xs[i])
		}
	}
}

// TestGMRESMatchesDirect 验证GMRES解与直接法一致（含预条件）
func TestGMRESMatchesDirect(t *testing.T) {
	p, cycle := setupCycle(t)
	d := linear.NewDirect()
	rhs := []float64{1, -0.5}
	ref := make([]float64, 2)
	if _, err := d.Solve(p.Model, cycle, types.ModeForward, rhs, ref); err != nil {
		t.Fatalf("direct solve failed: %v", err)
	}
	g := linear.NewGMRES()
	g.Options.Atol = 1e-12
	for _, pre := range []system.LinearSolver{nil, linear.NewBlockGS()} {
		g.Pre = pre
		x := make([]float64, 2)
		rec, err := g.Solve(p.Model, cycle, types.ModeForward, rhs, x)
		if err != nil {
			t.Fatalf("GMRES failed (pre=%v): %v", pre != nil, err)
		}
		if !rec.Converged() {
			t.Fatalf("GMRES not converged: %s", rec)
		}
		for i := range x {
			if math.Abs(x[i]-ref[i]) > 1e-8 {
				t.Errorf("x[%d] = %e, direct %e", i, x[i], ref[i])
			}
		}
	}
	// 转置解
	x := make([]float64, 2)
	g.Pre = nil
	if _, err := g.Solve(p.Model, cycle, types.ModeReverse, rhs, x); err != nil {
		t.Fatalf("GMRES transpose failed: %v", err)
	}
	checkSolution(t, p, cycle, types.ModeReverse, rhs, x, 1e-8)
}

// TestBlockRelaxation 验证线性块GS/Jacobi迭代到直接法的解
func TestBlockRelaxation(t *testing.T) {
	p, cycle := setupCycle(t)
	rhs := []float64{2, 1}
	ref := make([]float64, 2)
	if _, err := linear.NewDirect().Solve(p.Model, cycle, types.ModeForward, rhs, ref); err != nil {
		t.Fatalf("direct solve failed: %v", err)
	}
	solvers := []system.LinearSolver{linear.NewBlockGS(), linear.NewBlockJacobi()}
	for _, s := range solvers {
		for _, mode := range []types.Mode{types.ModeForward, types.ModeReverse} {
			x := make([]float64, 2)
			rec, err := s.Solve(p.Model, cycle, mode, rhs, x)
			if err != nil {
				t.Fatalf("%s failed: %v", s.Name(), err)
			}
			if !rec.Converged() {
				t.Fatalf("%s not converged: %s", s.Name(), rec)
			}
			checkSolution(t, p, cycle, mode, rhs, x, 1e-8)
		}
	}
}

// TestLinearRunOnceAcyclic 验证单遍线性扫描在无环系统上一趟精确
func TestLinearRunOnceAcyclic(t *testing.T) {
	p := mdo.NewProblem()
	m := p.Model
	m.AddComponent(system.Root, "px", model.NewIndep("x", 2))
	m.AddComponent(system.Root, "d1", &model.Dis1{})
	m.Connect("px.x", "d1.x")
	if _, err := p.RunModel(); err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}
	if err := m.Linearize(system.Root); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	ro := linear.NewRunOnce()
	rhs := []float64{1, 0.5}
	for _, mode := range []types.Mode{types.ModeForward, types.ModeReverse} {
		x := make([]float64, 2)
		rec, err := ro.Solve(m, system.Root, mode, rhs, x)
		if err != nil {
			t.Fatalf("Solve(%s) failed: %v", mode, err)
		}
		if rec.Iter != 1 {
			t.Errorf("iter = %d, expected single pass", rec.Iter)
		}
		checkSolution(t, p, system.Root, mode, rhs, x, 1e-12)
	}
}

// TestDirectSingular 验证奇异算子的分解失败被升级为致命错误
func TestDirectSingular(t *testing.T) {
	p := mdo.NewProblem()
	p.Model.AddComponent(system.Root, "z", &zeroJacComp{})
	if err := p.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := p.Model.Linearize(system.Root); err != nil {
		t.Fatalf("Linearize failed: %v", err)
	}
	d := linear.NewDirect()
	x := make([]float64, 1)
	_, err := d.Solve(p.Model, system.Root, types.ModeForward, []float64{1}, x)
	if !errors.Is(err, types.ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

// zeroJacComp 偏导恒为零的隐式组件（构造奇异算子）
type zeroJacComp struct{}

func (c *zeroJacComp) Setup() system.Spec {
	return system.Spec{Outputs: []system.VarMeta{system.NewVar("u", 1)}}
}

func (c *zeroJacComp) ApplyNonlinear(in, out, res system.View) { res.Set("u", 1) }

func (c *zeroJacComp) Linearize(in, out system.View, jac *system.Partials) {
	jac.Set("u", "u", 0)
}

// TestLinearAtolBoundary 验证线性残差范数恰好等于绝对容差时判定收敛
func TestLinearAtolBoundary(t *testing.T) {
	p, cycle := setupCycle(t)
	// x=0 时残差即rhs，范数精确为2
	rhs := []float64{2, 0}
	gs := linear.NewBlockGS()
	gs.Options.Atol = 2
	bj := linear.NewBlockJacobi()
	bj.Options.Atol = 2
	for _, s := range []system.LinearSolver{gs, bj} {
		x := make([]float64, 2)
		rec, err := s.Solve(p.Model, cycle, types.ModeForward, rhs, x)
		if err != nil {
			t.Fatalf("%s failed: %v", s.Name(), err)
		}
		if !rec.Converged() || rec.Iter != 0 {
			t.Errorf("%s: norm equal to atol should converge without sweeps: %s", s.Name(), rec)
		}
	}
}
