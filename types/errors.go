package types

import (
	"errors"
	"fmt"
)

// ErrSingular 直接法分解失败（奇异或病态矩阵），对当前求解是致命的
var ErrSingular = errors.New("singular or ill-conditioned operator")

// ConfigError 配置错误
// 求解器与节点拓扑不兼容（例如含环节点配置单遍求解器），
// 在Setup阶段立即报告，不推迟到求解失败。
type ConfigError struct {
	Path   string // 出错节点路径
	Detail string // 错误描述
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误 %q: %s", e.Path, e.Detail)
}

// SolveError 求解失败
// 仅当ErrOnNonConverge开启或检测到发散/奇异时升级为错误，
// 记录中保留迭代次数与最终残差便于诊断。
type SolveError struct {
	Record Record // 失败时的收敛记录
	Err    error  // 底层原因（可为空）
}

// Error 实现error接口
func (e *SolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("求解失败: %s: %v", e.Record, e.Err)
	}
	return fmt.Sprintf("求解失败: %s", e.Record)
}

// Unwrap 返回底层原因
func (e *SolveError) Unwrap() error { return e.Err }
