package model

import (
	"math"

	"mdo"
	"mdo/system"
)

// 两学科耦合基准模型
// 两个学科交换两个耦合变量构成环：
//   y1 = z1² + z2 + x - 0.2·y2
//   y2 = √y1 + z1 + z2
// 在 x=1, z=(5,2) 处的不动点为 y1 ≈ 25.588303, y2 ≈ 12.058488。

// Dis1 学科一
type Dis1 struct{}

// Setup 声明变量
func (c *Dis1) Setup() system.Spec {
	return system.Spec{
		Inputs: []system.VarMeta{
			system.NewVar("z", 5, 2),
			system.NewVar("x", 1),
			system.NewVar("y2", 1),
		},
		Outputs: []system.VarMeta{system.NewVar("y1", 1)},
	}
}

// ApplyNonlinear 残差求值
func (c *Dis1) ApplyNonlinear(in, out, res system.View) {
	z1, z2 := in.GetAt("z", 0), in.GetAt("z", 1)
	y1 := z1*z1 + z2 + in.Get("x") - 0.2*in.Get("y2")
	res.Set("y1", y1-out.Get("y1"))
}

// SolveNonlinear 显式求值
func (c *Dis1) SolveNonlinear(in, out system.View) {
	z1, z2 := in.GetAt("z", 0), in.GetAt("z", 1)
	out.Set("y1", z1*z1+z2+in.Get("x")-0.2*in.Get("y2"))
}

// Linearize 解析偏导
func (c *Dis1) Linearize(in, out system.View, jac *system.Partials) {
	jac.Set("y1", "z", 2*in.GetAt("z", 0), 1)
	jac.Set("y1", "x", 1)
	jac.Set("y1", "y2", -0.2)
	jac.Set("y1", "y1", -1)
}

// Dis2 学科二
type Dis2 struct{}

// Setup 声明变量
func (c *Dis2) Setup() system.Spec {
	return system.Spec{
		Inputs: []system.VarMeta{
			system.NewVar("z", 5, 2),
			system.NewVar("y1", 1),
		},
		Outputs: []system.VarMeta{system.NewVar("y2", 1)},
	}
}

// root 对负y1取负距离的平方根，避免迭代中途越界时产生NaN
func root(y1 float64) float64 {
	if y1 < 0 {
		return -math.Sqrt(-y1)
	}
	return math.Sqrt(y1)
}

// ApplyNonlinear 残差求值
func (c *Dis2) ApplyNonlinear(in, out, res system.View) {
	y2 := root(in.Get("y1")) + in.GetAt("z", 0) + in.GetAt("z", 1)
	res.Set("y2", y2-out.Get("y2"))
}

// SolveNonlinear 显式求值
func (c *Dis2) SolveNonlinear(in, out system.View) {
	out.Set("y2", root(in.Get("y1"))+in.GetAt("z", 0)+in.GetAt("z", 1))
}

// Linearize 解析偏导
func (c *Dis2) Linearize(in, out system.View, jac *system.Partials) {
	y1 := in.Get("y1")
	d := 0.5 / math.Sqrt(math.Abs(y1))
	jac.Set("y2", "y1", d)
	jac.Set("y2", "z", 1, 1)
	jac.Set("y2", "y2", -1)
}

// BuildSellar 搭建两学科模型
// 根下挂独立变量源与耦合组"cycle"，返回耦合组节点供配置求解器。
func BuildSellar(p *mdo.Problem) system.NodeID {
	m := p.Model
	m.AddComponent(system.Root, "px", NewIndep("x", 1))
	m.AddComponent(system.Root, "pz", NewIndep("z", 5, 2))
	cycle := m.AddGroup(system.Root, "cycle")
	m.AddComponent(cycle, "d1", &Dis1{})
	m.AddComponent(cycle, "d2", &Dis2{})
	m.Connect("px.x", "cycle.d1.x")
	m.Connect("pz.z", "cycle.d1.z")
	m.Connect("pz.z", "cycle.d2.z")
	m.Connect("cycle.d1.y1", "cycle.d2.y1")
	m.Connect("cycle.d2.y2", "cycle.d1.y2")
	return cycle
}
