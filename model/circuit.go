package model

import (
	"math"

	"mdo"
	"mdo/system"
)

// 电阻/二极管电路基准模型
// 电流源0.1A注入节点n1，R1=100Ω接地，R2=10kΩ连到n2，
// 二极管从n2接地。两个节点电压均为隐式状态（只有KCL残差），
// 需由Newton加直接线性求解器收敛。

// 二极管参数
const (
	diodeIs = 1e-15    // 饱和电流
	diodeVt = 0.025875 // 热电压
)

// Node1 电路节点n1：残差为流入电流之和
// r = I - v1/R1 - (v1-v2)/R2
type Node1 struct {
	R1, R2 float64
}

// Setup 声明变量
func (c *Node1) Setup() system.Spec {
	v := system.NewVar("v", 10)
	return system.Spec{
		Inputs: []system.VarMeta{
			system.NewVar("i"),
			system.NewVar("v2"),
		},
		Outputs: []system.VarMeta{v},
	}
}

// ApplyNonlinear KCL残差
func (c *Node1) ApplyNonlinear(in, out, res system.View) {
	v1 := out.Get("v")
	res.Set("v", in.Get("i")-v1/c.R1-(v1-in.Get("v2"))/c.R2)
}

// Linearize 解析偏导
func (c *Node1) Linearize(in, out system.View, jac *system.Partials) {
	jac.Set("v", "i", 1)
	jac.Set("v", "v", -1/c.R1-1/c.R2)
	jac.Set("v", "v2", 1/c.R2)
}

// Node2 电路节点n2：电阻来流与二极管去流的KCL残差
// r = (v1-v2)/R2 - Is·(exp(v2/Vt) - 1)
type Node2 struct {
	R2 float64
}

// Setup 声明变量
func (c *Node2) Setup() system.Spec {
	return system.Spec{
		Inputs:  []system.VarMeta{system.NewVar("v1")},
		Outputs: []system.VarMeta{system.NewVar("v", 0.7)},
	}
}

// ApplyNonlinear KCL残差
func (c *Node2) ApplyNonlinear(in, out, res system.View) {
	v2 := out.Get("v")
	res.Set("v", (in.Get("v1")-v2)/c.R2-diodeIs*(math.Exp(v2/diodeVt)-1))
}

// Linearize 解析偏导
func (c *Node2) Linearize(in, out system.View, jac *system.Partials) {
	v2 := out.Get("v")
	jac.Set("v", "v1", 1/c.R2)
	jac.Set("v", "v", -1/c.R2-diodeIs/diodeVt*math.Exp(v2/diodeVt))
}

// BuildCircuit 搭建电路模型
// 返回电路组节点供配置Newton与直接线性求解器。
func BuildCircuit(p *mdo.Problem) system.NodeID {
	m := p.Model
	m.AddComponent(system.Root, "source", NewIndep("i", 0.1))
	ckt := m.AddGroup(system.Root, "circuit")
	m.AddComponent(ckt, "n1", &Node1{R1: 100, R2: 10e3})
	m.AddComponent(ckt, "n2", &Node2{R2: 10e3})
	m.Connect("source.i", "circuit.n1.i")
	m.Connect("circuit.n2.v", "circuit.n1.v2")
	m.Connect("circuit.n1.v", "circuit.n2.v1")
	return ckt
}
