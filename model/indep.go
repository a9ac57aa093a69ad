// Package model 提供基准模型组件：
// 独立变量源、两学科耦合模型与电阻/二极管电路节点。
package model

import "mdo/system"

// Indep 独立变量源
// 残差 r = u - val，作为总导数的wrt端种子变量。
type Indep struct {
	Var string
	Val []float64
}

// NewIndep 创建独立变量源
func NewIndep(name string, val ...float64) *Indep {
	if len(val) == 0 {
		val = []float64{0}
	}
	return &Indep{Var: name, Val: val}
}

// Setup 声明变量
func (c *Indep) Setup() system.Spec {
	return system.Spec{Outputs: []system.VarMeta{system.NewVar(c.Var, c.Val...)}}
}

// ApplyNonlinear 残差求值
func (c *Indep) ApplyNonlinear(in, out, res system.View) {
	for i := range c.Val {
		res.SetAt(c.Var, i, out.GetAt(c.Var, i)-c.Val[i])
	}
}

// SolveNonlinear 直接置值
func (c *Indep) SolveNonlinear(in, out system.View) {
	for i := range c.Val {
		out.SetAt(c.Var, i, c.Val[i])
	}
}

// Linearize 单位对角块
func (c *Indep) Linearize(in, out system.View, jac *system.Partials) {
	n := len(c.Val)
	vals := make([]float64, n*n)
	for i := 0; i < n; i++ {
		vals[i*n+i] = 1
	}
	jac.Set(c.Var, c.Var, vals...)
}
