package config_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"mdo"
	"mdo/config"
	"mdo/model"
	"mdo/types"
)

const sample = `
[solvers."cycle"]
nonlinear = "newton"
linear = "direct"
linesearch = "armijo"
maxiter = 20
solve_subsystems = true

[solvers."root"]
nonlinear = "runonce"
`

// TestLoadApply 验证TOML配置装配出可收敛的求解器组合
func TestLoadApply(t *testing.T) {
	f, err := config.Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := mdo.NewProblem()
	cycle := model.BuildSellar(p)
	if err := f.Apply(p); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if name := p.Model.Nonlinear(cycle).Name(); name != "NL: Newton" {
		t.Fatalf("cycle solver = %q, expected Newton", name)
	}
	if name := p.Model.Linear(cycle).Name(); name != "LN: Direct" {
		t.Fatalf("cycle linear = %q, expected Direct", name)
	}
	rec, err := p.RunModel()
	if err != nil {
		t.Fatalf("RunModel failed: %v", err)
	}
	if !rec.Converged() {
		t.Fatalf("configured model did not converge: %s", rec)
	}
	if v := p.GetVal("cycle.d1.y1"); math.Abs(v-25.58830273) > 1e-5 {
		t.Errorf("y1 = %f, expected 25.58830273", v)
	}
}

// TestUnknownSolver 验证未知求解器名报配置错误
func TestUnknownSolver(t *testing.T) {
	f, err := config.Load(strings.NewReader("[solvers.\"cycle\"]\nnonlinear = \"magic\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := mdo.NewProblem()
	model.BuildSellar(p)
	var ce *types.ConfigError
	if err := f.Apply(p); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestUnknownPath 验证未知节点路径报配置错误
func TestUnknownPath(t *testing.T) {
	f, err := config.Load(strings.NewReader("[solvers.\"nope\"]\nnonlinear = \"gs\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := mdo.NewProblem()
	model.BuildSellar(p)
	var ce *types.ConfigError
	if err := f.Apply(p); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestBadTOML 验证语法错误被报告
func TestBadTOML(t *testing.T) {
	if _, err := config.Load(strings.NewReader("solvers = [broken")); err == nil {
		t.Fatal("expected parse error")
	}
}
