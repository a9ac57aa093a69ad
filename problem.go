// Package mdo 提供层级非线性求解与总导数计算的外层门面。
// 模型由耦合组件的层级树表达，每个组件贡献代数残差方程；
// 核心先把聚合残差驱动到零（非线性求解），再在收敛状态上
// 通过隐函数定理的种子线性解计算精确总导数。
package mdo

import (
	"io"

	"mdo/linear"
	"mdo/solver"
	"mdo/system"
	"mdo/types"
)

// Problem 问题门面
// 包装模型构建、默认求解器指派与求解/求导入口。
type Problem struct {
	Model *system.Model

	setupDone bool
}

// NewProblem 创建空问题
func NewProblem() *Problem {
	return &Problem{Model: system.NewModel()}
}

// SetLog 设置迭代打印输出
func (p *Problem) SetLog(w io.Writer) { p.Model.Log = w }

// Setup 冻结模型：注入拓扑感知的默认求解器工厂，再做结构校验
// 无环无隐式的组默认单遍执行，含环或隐式的组默认块Gauss-Seidel；
// 用户显式指派的单遍求解器若与拓扑不兼容，校验失败立即报错。
func (p *Problem) Setup() error {
	if p.setupDone {
		return nil
	}
	if p.Model.DefaultNonlinear == nil {
		p.Model.DefaultNonlinear = func(iterative bool) system.NonlinearSolver {
			if iterative {
				return solver.NewGaussSeidel()
			}
			return solver.NewRunOnce()
		}
	}
	if p.Model.DefaultLinear == nil {
		p.Model.DefaultLinear = func(iterative bool) system.LinearSolver {
			if iterative {
				return linear.NewBlockGS()
			}
			return linear.NewRunOnce()
		}
	}
	if err := p.Model.Setup(); err != nil {
		return err
	}
	p.setupDone = true
	return nil
}

// RunModel 执行根节点的非线性求解（首次调用自动Setup）
func (p *Problem) RunModel() (types.Record, error) {
	if err := p.Setup(); err != nil {
		return types.Record{}, err
	}
	return p.RunSolveNonlinear()
}

// RunSolveNonlinear 执行根节点的非线性求解（不触发Setup）
func (p *Problem) RunSolveNonlinear() (types.Record, error) {
	nl := p.Model.Nonlinear(system.Root)
	if nl == nil {
		return types.Record{}, &types.ConfigError{Path: "", Detail: "根节点缺少非线性求解器"}
	}
	return nl.Solve(p.Model, system.Root)
}

// GetVal 读取输出变量当前值
func (p *Problem) GetVal(path string) float64 { return p.Model.GetVal(path) }

// SetVal 设置输出变量当前值
func (p *Problem) SetVal(path string, value ...float64) { p.Model.SetVal(path, value...) }
