package solver

import (
	"sync"

	"mdo/system"
	"mdo/types"
)

// Jacobi 块Jacobi非线性求解器
// 每轮所有子系统一律使用上一轮的数据，仅在轮边界统一交换；
// 同轮内子系统互不依赖，可并发派发，轮末同步屏障后再进下一轮。
type Jacobi struct {
	Options types.Options
}

// NewJacobi 创建块Jacobi求解器
func NewJacobi() *Jacobi {
	return &Jacobi{Options: types.NewOptions()}
}

// Name 求解器名称
func (s *Jacobi) Name() string { return "NL: NLBJ" }

// Solve 迭代至节点残差满足容差
func (s *Jacobi) Solve(m *system.Model, id system.NodeID) (types.Record, error) {
	opt := s.Options
	children := m.Children(id)
	return iterate(m, id, s.Name(), opt, func(iter int) (int, error) {
		// 轮前快照：全部跨子连接统一取上一轮值
		prev := m.Snapshot()
		for _, c := range children {
			m.TransferInto(c, prev)
		}
		if opt.RunConcurrent {
			return s.sweepConcurrent(m, children)
		}
		fails := 0
		for _, c := range children {
			crec, err := m.SolveSubsystem(c)
			f, err := countFail(crec, err)
			if err != nil {
				return fails, err
			}
			fails += f
		}
		return fails, nil
	})
}

// sweepConcurrent 并发执行各子系统
// 各子系统只写自身状态区间与输入缓冲，传输已在轮前完成，无数据竞争。
func (s *Jacobi) sweepConcurrent(m *system.Model, children []system.NodeID) (int, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	fails := 0
	var firstErr error
	for _, c := range children {
		wg.Add(1)
		go func(c system.NodeID) {
			defer wg.Done()
			crec, err := m.SolveSubsystem(c)
			f, err := countFail(crec, err)
			mu.Lock()
			fails += f
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return fails, firstErr
}
