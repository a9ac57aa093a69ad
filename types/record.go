package types

import "fmt"

// Status 单次求解的终止状态
type Status int

const (
	StatusConverged Status = iota // 达到容差
	StatusMaxIter                 // 迭代上限耗尽（可恢复）
	StatusDiverged                // 残差增长超限或出现非数
)

// String 格式化输出
func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIter:
		return "max-iter"
	case StatusDiverged:
		return "diverged"
	}
	return "unknown"
}

// Record 收敛记录
// 每次solve入口创建、出口返回的瞬态记录，不跨求解持久化。
type Record struct {
	Solver   string  // 求解器名称
	Path     string  // 所属节点路径
	Iter     int     // 实际迭代次数
	Norm0    float64 // 初始残差范数
	Norm     float64 // 最终残差范数
	Status   Status  // 终止状态
	Children int     // 下层求解失败计数（子系统传播上来的失败）
}

// Converged 是否收敛
func (r Record) Converged() bool { return r.Status == StatusConverged }

// RelNorm 相对残差范数（初始范数为零时返回绝对范数）
func (r Record) RelNorm() float64 {
	if r.Norm0 == 0 {
		return r.Norm
	}
	return r.Norm / r.Norm0
}

// String 格式化输出
func (r Record) String() string {
	return fmt.Sprintf("%s[%s] iter=%d abs=%.6e rel=%.6e %s",
		r.Solver, r.Path, r.Iter, r.Norm, r.RelNorm(), r.Status)
}
