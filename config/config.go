// Package config 从TOML文件装配求解器配置。
// 每个节点路径一节，声明非线性/线性求解器类型与公共选项，
// 在Setup前应用到问题上；未提及的节点保持默认求解器。
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"mdo"
	"mdo/linear"
	"mdo/solver"
	"mdo/system"
	"mdo/types"
)

// Spec 单个节点的求解器配置节
type Spec struct {
	Nonlinear        string  `toml:"nonlinear"`  // runonce | gs | jacobi | newton | broyden
	Linear           string  `toml:"linear"`     // runonce | gs | jacobi | direct | gmres
	LineSearch       string  `toml:"linesearch"` // none | bounds | armijo
	MaxIter          int     `toml:"maxiter"`
	Atol             float64 `toml:"atol"`
	Rtol             float64 `toml:"rtol"`
	ErrOnNonConverge bool    `toml:"err_on_non_converge"`
	Aitken           bool    `toml:"aitken"`
	SolveSubsystems  bool    `toml:"solve_subsystems"`
	Concurrent       bool    `toml:"concurrent"`
	Sparse           bool    `toml:"sparse"`
	Restart          int     `toml:"restart"`
	Iprint           int     `toml:"iprint"`
}

// File 配置文件
type File struct {
	Solvers map[string]Spec `toml:"solvers"`
}

// Load 从读取器解析配置
func Load(r io.Reader) (*File, error) {
	var f File
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &f, nil
}

// LoadFile 从文件解析配置
func LoadFile(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer r.Close()
	return Load(r)
}

// Apply 把配置应用到问题（须在Setup前调用）
func (f *File) Apply(p *mdo.Problem) error {
	for path, spec := range f.Solvers {
		nodePath := path
		if nodePath == "root" {
			nodePath = ""
		}
		id, ok := p.Model.Find(nodePath)
		if !ok {
			return &types.ConfigError{Path: path, Detail: "配置引用的节点不存在"}
		}
		if spec.Nonlinear != "" {
			nl, err := buildNonlinear(path, spec)
			if err != nil {
				return err
			}
			p.Model.SetNonlinear(id, nl)
		}
		if spec.Linear != "" {
			ln, err := buildLinear(path, spec)
			if err != nil {
				return err
			}
			p.Model.SetLinear(id, ln)
		}
	}
	return nil
}

// options 把配置节叠加到基准选项上（未填写的字段保持基准值）
func (s Spec) options(base types.Options) types.Options {
	opt := base
	if s.MaxIter > 0 {
		opt.MaxIter = s.MaxIter
	}
	if s.Atol > 0 {
		opt.Atol = s.Atol
	}
	if s.Rtol > 0 {
		opt.Rtol = s.Rtol
	}
	if s.Restart > 0 {
		opt.Restart = s.Restart
	}
	opt.ErrOnNonConverge = s.ErrOnNonConverge
	opt.UseAitken = s.Aitken
	opt.SolveSubsystems = s.SolveSubsystems
	opt.RunConcurrent = s.Concurrent
	opt.AssembleSparse = s.Sparse
	opt.Iprint = s.Iprint
	return opt
}

// buildNonlinear 构造非线性求解器
func buildNonlinear(path string, spec Spec) (system.NonlinearSolver, error) {
	opt := spec.options(types.NewOptions())
	switch spec.Nonlinear {
	case "runonce":
		s := solver.NewRunOnce()
		s.Options = opt
		return s, nil
	case "gs":
		s := solver.NewGaussSeidel()
		s.Options = opt
		return s, nil
	case "jacobi":
		s := solver.NewJacobi()
		s.Options = opt
		return s, nil
	case "newton":
		s := solver.NewNewton()
		s.Options = opt
		ls, err := buildLineSearch(path, spec)
		if err != nil {
			return nil, err
		}
		s.LineSearch = ls
		return s, nil
	case "broyden":
		s := solver.NewBroyden()
		s.Options = opt
		return s, nil
	}
	return nil, &types.ConfigError{Path: path, Detail: fmt.Sprintf("未知非线性求解器 %q", spec.Nonlinear)}
}

// buildLinear 构造线性求解器
func buildLinear(path string, spec Spec) (system.LinearSolver, error) {
	opt := spec.options(types.NewOptions())
	switch spec.Linear {
	case "runonce":
		s := linear.NewRunOnce()
		s.Options = opt
		return s, nil
	case "gs":
		s := linear.NewBlockGS()
		s.Options = opt
		return s, nil
	case "jacobi":
		s := linear.NewBlockJacobi()
		s.Options = spec.options(s.Options)
		return s, nil
	case "direct":
		s := linear.NewDirect()
		s.Options = opt
		return s, nil
	case "gmres":
		s := linear.NewGMRES()
		s.Options = spec.options(s.Options)
		return s, nil
	}
	return nil, &types.ConfigError{Path: path, Detail: fmt.Sprintf("未知线性求解器 %q", spec.Linear)}
}

// buildLineSearch 构造线搜索
func buildLineSearch(path string, spec Spec) (solver.LineSearch, error) {
	switch spec.LineSearch {
	case "", "none":
		return nil, nil
	case "bounds":
		return solver.NewBoundsEnforce(), nil
	case "armijo":
		return solver.NewArmijoGoldstein(), nil
	}
	return nil, &types.ConfigError{Path: path, Detail: fmt.Sprintf("未知线搜索 %q", spec.LineSearch)}
}
