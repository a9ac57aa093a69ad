package mdo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mdo/system"
	"mdo/types"
)

// Totals 总导数结果
// 每个(of, wrt)对一块 |of|×|wrt| 稠密矩阵。
type Totals struct {
	blocks map[string]map[string]*mat.Dense
}

// Get 取d(of)/d(wrt)块，未计算的对返回nil
func (t Totals) Get(of, wrt string) *mat.Dense {
	if row, ok := t.blocks[of]; ok {
		return row[wrt]
	}
	return nil
}

// ComputeTotals 在收敛状态上计算精确总导数 d(of)/d(wrt)
// 先对整个层级线性化，再按方向逐种子做线性解：
// 前向每个wrt分量解 J·v = e，读出v的of行；反向每个of分量解 Jᵗ·w = e，
// 读出w的wrt行。跨层级的导数组合是精确线性代数，叶子偏导允许近似。
// mode为Auto时按种子数自动选便宜方向，强制低效方向时发效率警告。
func (p *Problem) ComputeTotals(of, wrt []string, mode types.Mode) (Totals, error) {
	m := p.Model
	if err := p.Setup(); err != nil {
		return Totals{}, err
	}
	ln := m.Linear(system.Root)
	if ln == nil {
		return Totals{}, &types.ConfigError{Path: "", Detail: "总导数计算需要根节点线性求解器"}
	}
	type varSpan struct {
		name   string
		off, n int
	}
	resolve := func(names []string) ([]varSpan, int, error) {
		out := make([]varSpan, 0, len(names))
		total := 0
		for _, name := range names {
			off, n, ok := m.VarSpan(name)
			if !ok {
				return nil, 0, &types.ConfigError{Path: name, Detail: "总导数变量不存在"}
			}
			out = append(out, varSpan{name: name, off: off, n: n})
			total += n
		}
		return out, total, nil
	}
	ofs, nOf, err := resolve(of)
	if err != nil {
		return Totals{}, err
	}
	wrts, nWrt, err := resolve(wrt)
	if err != nil {
		return Totals{}, err
	}
	switch mode {
	case types.ModeAuto:
		if nWrt <= nOf {
			mode = types.ModeForward
		} else {
			mode = types.ModeReverse
		}
	case types.ModeForward:
		if nWrt > nOf {
			fmt.Fprintf(m.LogWriter(),
				"效率警告: 前向模式需%d次线性解, 反向只需%d次\n", nWrt, nOf)
		}
	case types.ModeReverse:
		if nOf > nWrt {
			fmt.Fprintf(m.LogWriter(),
				"效率警告: 反向模式需%d次线性解, 前向只需%d次\n", nOf, nWrt)
		}
	}

	if err := m.Linearize(system.Root); err != nil {
		return Totals{}, err
	}
	res := Totals{blocks: map[string]map[string]*mat.Dense{}}
	for _, o := range ofs {
		res.blocks[o.name] = map[string]*mat.Dense{}
		for _, w := range wrts {
			res.blocks[o.name][w.name] = mat.NewDense(o.n, w.n, nil)
		}
	}
	dim := m.Dim(system.Root)
	rhs := make([]float64, dim)
	x := make([]float64, dim)
	seedSolve := func(row int) error {
		for i := range rhs {
			rhs[i] = 0
			x[i] = 0
		}
		rhs[row] = 1
		lrec, err := ln.Solve(m, system.Root, mode, rhs, x)
		if err != nil {
			return err
		}
		if !lrec.Converged() {
			return &types.SolveError{Record: lrec}
		}
		return nil
	}
	if mode == types.ModeForward {
		for _, w := range wrts {
			for j := 0; j < w.n; j++ {
				if err := seedSolve(w.off + j); err != nil {
					return Totals{}, err
				}
				for _, o := range ofs {
					blk := res.blocks[o.name][w.name]
					for i := 0; i < o.n; i++ {
						blk.Set(i, j, x[o.off+i])
					}
				}
			}
		}
	} else {
		for _, o := range ofs {
			for i := 0; i < o.n; i++ {
				if err := seedSolve(o.off + i); err != nil {
					return Totals{}, err
				}
				for _, w := range wrts {
					blk := res.blocks[o.name][w.name]
					for j := 0; j < w.n; j++ {
						blk.Set(i, j, x[w.off+j])
					}
				}
			}
		}
	}
	return res, nil
}
