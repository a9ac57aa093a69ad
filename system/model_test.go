package system

import (
	"errors"
	"math"
	"testing"

	"mdo/types"
)

// sourceComp 常量源：残差 r = u - val
type sourceComp struct {
	name string
	val  float64
}

func (c *sourceComp) Setup() Spec {
	return Spec{Outputs: []VarMeta{NewVar(c.name, c.val)}}
}

func (c *sourceComp) ApplyNonlinear(in, out, res View) {
	res.Set(c.name, out.Get(c.name)-c.val)
}

func (c *sourceComp) SolveNonlinear(in, out View) { out.Set(c.name, c.val) }

func (c *sourceComp) Linearize(in, out View, jac *Partials) {
	jac.Set(c.name, c.name, 1)
}

// scaleComp 显式缩放：y = k·a，残差 r = k·a - y
type scaleComp struct {
	k float64
}

func (c *scaleComp) Setup() Spec {
	return Spec{
		Inputs:  []VarMeta{NewVar("a")},
		Outputs: []VarMeta{NewVar("y", 1)},
	}
}

func (c *scaleComp) ApplyNonlinear(in, out, res View) {
	res.Set("y", c.k*in.Get("a")-out.Get("y"))
}

func (c *scaleComp) SolveNonlinear(in, out View) { out.Set("y", c.k*in.Get("a")) }

func (c *scaleComp) Linearize(in, out View, jac *Partials) {
	jac.Set("y", "a", c.k)
	jac.Set("y", "y", -1)
}

// fdScaleComp 不提供解析偏导的缩放组件（走有限差分）
type fdScaleComp struct {
	k float64
}

func (c *fdScaleComp) Setup() Spec {
	return Spec{
		Inputs:  []VarMeta{NewVar("a")},
		Outputs: []VarMeta{NewVar("y", 1)},
	}
}

func (c *fdScaleComp) ApplyNonlinear(in, out, res View) {
	res.Set("y", c.k*in.Get("a")-out.Get("y"))
}

func (c *fdScaleComp) SolveNonlinear(in, out View) { out.Set("y", c.k*in.Get("a")) }

// stubSolver 可配置的求解器桩（用于拓扑校验测试）
type stubSolver struct {
	single bool
}

func (s *stubSolver) Name() string       { return "stub" }
func (s *stubSolver) IsSinglePass() bool { return s.single }
func (s *stubSolver) Solve(m *Model, id NodeID) (types.Record, error) {
	norm := m.EvalResiduals(id)
	return types.Record{Solver: "stub", Norm0: norm, Norm: norm, Status: types.StatusConverged}, nil
}

// buildChain 构造 src → d1 → d2 的无环流水线
func buildChain(t *testing.T) (*Model, NodeID, NodeID, NodeID) {
	t.Helper()
	m := NewModel()
	s := m.AddComponent(Root, "src", &sourceComp{name: "x", val: 3})
	d1 := m.AddComponent(Root, "d1", &scaleComp{k: 2})
	d2 := m.AddComponent(Root, "d2", &scaleComp{k: 5})
	m.Connect("src.x", "d1.a")
	m.Connect("d1.y", "d2.a")
	m.SetNonlinear(Root, &stubSolver{})
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return m, s, d1, d2
}

// TestSetupOffsets 验证区间拼接不变量与变量登记
func TestSetupOffsets(t *testing.T) {
	m, s, d1, d2 := buildChain(t)
	lo, hi := m.Range(Root)
	if lo != 0 || hi != 3 {
		t.Fatalf("root range = [%d,%d), expected [0,3)", lo, hi)
	}
	// 子区间按声明顺序连续拼接
	prev := 0
	for _, id := range []NodeID{s, d1, d2} {
		clo, chi := m.Range(id)
		if clo != prev {
			t.Errorf("node %s starts at %d, expected %d", m.Path(id), clo, prev)
		}
		prev = chi
	}
	if off, n, ok := m.VarSpan("d1.y"); !ok || n != 1 || off != 1 {
		t.Errorf("VarSpan(d1.y) = (%d,%d,%v), expected (1,1,true)", off, n, ok)
	}
}

// TestConnectErrors 验证连接配置错误在Setup时立即报告
func TestConnectErrors(t *testing.T) {
	m := NewModel()
	m.AddComponent(Root, "src", &sourceComp{name: "x", val: 1})
	m.AddComponent(Root, "d", &scaleComp{k: 2})
	m.Connect("src.missing", "d.a")
	var ce *types.ConfigError
	if err := m.Setup(); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for missing source, got %v", err)
	}
}

// TestEvalResiduals 验证残差求值与内部传输
func TestEvalResiduals(t *testing.T) {
	m, _, _, _ := buildChain(t)
	m.SetVal("src.x", 3)
	m.SetVal("d1.y", 6)
	m.SetVal("d2.y", 30)
	if norm := m.EvalResiduals(Root); norm > 1e-14 {
		t.Errorf("residual norm at solution = %e, expected 0", norm)
	}
	// 扰动d1.y：自身残差与下游残差同时偏移
	m.SetVal("d1.y", 7)
	m.EvalResiduals(Root)
	r := m.ResidualSlice(Root)
	if math.Abs(r[1]-(-1)) > 1e-14 {
		t.Errorf("r[d1.y] = %f, expected -1", r[1])
	}
	if math.Abs(r[2]-5) > 1e-14 {
		t.Errorf("r[d2.y] = %f, expected 5 (downstream sees updated input)", r[2])
	}
}

// TestTransferScoping 验证跨界输入只随显式传输刷新
func TestTransferScoping(t *testing.T) {
	m := NewModel()
	m.AddComponent(Root, "src", &sourceComp{name: "x", val: 3})
	g := m.AddGroup(Root, "g")
	d1 := m.AddComponent(g, "d1", &scaleComp{k: 2})
	m.Connect("src.x", "g.d1.a")
	m.SetNonlinear(Root, &stubSolver{})
	m.SetNonlinear(g, &stubSolver{})
	if err := m.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	m.SetVal("src.x", 3)
	m.SetVal("g.d1.y", 0)
	// 组内求值不拉取跨界输入：a仍为初值0，残差 = 2·0 - 0 = 0
	m.EvalResiduals(g)
	rlo, _ := m.Range(d1)
	if math.Abs(m.R[rlo]) > 1e-14 {
		t.Errorf("before transfer r = %f, expected 0", m.R[rlo])
	}
	// 显式传输后跨界输入生效：残差 = 2·3 - 0 = 6
	m.TransferInto(g, m.U)
	m.EvalResiduals(g)
	if math.Abs(m.R[rlo]-6) > 1e-14 {
		t.Errorf("after transfer r = %f, expected 6", m.R[rlo])
	}
}

// TestCycleValidation 验证单遍求解器在含环节点上被拒绝
func TestCycleValidation(t *testing.T) {
	m := NewModel()
	m.AddComponent(Root, "a", &scaleComp{k: 0.5})
	m.AddComponent(Root, "b", &scaleComp{k: 0.5})
	m.Connect("a.y", "b.a")
	m.Connect("b.y", "a.a")
	m.SetNonlinear(Root, &stubSolver{single: true})
	var ce *types.ConfigError
	if err := m.Setup(); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for single-pass solver on cycle, got %v", err)
	}
	// 迭代求解器接受同一拓扑
	m2 := NewModel()
	m2.AddComponent(Root, "a", &scaleComp{k: 0.5})
	m2.AddComponent(Root, "b", &scaleComp{k: 0.5})
	m2.Connect("a.y", "b.a")
	m2.Connect("b.y", "a.a")
	m2.SetNonlinear(Root, &stubSolver{single: false})
	if err := m2.Setup(); err != nil {
		t.Fatalf("iterative solver rejected on cycle: %v", err)
	}
}

// TestImplicitValidation 验证未托管隐式状态被拒绝
func TestImplicitValidation(t *testing.T) {
	m := NewModel()
	m.AddComponent(Root, "imp", &implicitComp{})
	m.SetNonlinear(Root, &stubSolver{single: true})
	var ce *types.ConfigError
	if err := m.Setup(); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for single-pass solver over implicit state, got %v", err)
	}
}

// implicitComp 隐式组件：r = u² - 4（不实现SolveNonlinear）
type implicitComp struct{}

func (c *implicitComp) Setup() Spec {
	return Spec{Outputs: []VarMeta{NewVar("u", 1)}}
}

func (c *implicitComp) ApplyNonlinear(in, out, res View) {
	u := out.Get("u")
	res.Set("u", u*u-4)
}

func (c *implicitComp) Linearize(in, out View, jac *Partials) {
	jac.Set("u", "u", 2*out.Get("u"))
}
