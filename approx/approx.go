// Package approx 提供有限差分近似偏导数。
// 组件未提供解析Linearize实现时，线性化机制用它补全局部偏导块；
// 跨层级的总导数组合仍是精确线性代数，只有叶子偏导允许近似。
package approx

import (
	"errors"
	"math"
)

var (
	sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
	cubeEps = math.Pow(math.Nextafter(1, 2)-1, 1.0/3)
)

// Method 差分格式
type Method int

const (
	Forward Method = iota // 一阶前向差分
	Central               // 二阶中心差分
)

// Spec 有限差分配置
// Object 以n维输入x计算m维输出y；x会被原位扰动后复原。
type Spec struct {
	N, M    int                  // 输入/输出维度
	Object  func(x, y []float64) // 目标函数
	Method  Method               // 差分格式
	RelStep float64              // 相对步长（零值自动选取）
	AbsStep float64              // 绝对步长（优先于相对步长）

	// 复用的中间缓冲
	f0, f1, f2 []float64
	step       []float64
}

// check 校验参数并初始化缓冲
func (s *Spec) check(x0, jac []float64) error {
	switch {
	case s.N <= 0 || s.M <= 0:
		return errors.New("approx: negative dimensions")
	case s.Object == nil:
		return errors.New("approx: object function is required")
	case s.Method != Forward && s.Method != Central:
		return errors.New("approx: unknown method")
	case len(x0) != s.N:
		return errors.New("approx: invalid x0 dimensions")
	case len(jac) != s.N*s.M:
		return errors.New("approx: invalid jacobian dimensions")
	}
	if len(s.f0) != s.M {
		s.f0 = make([]float64, s.M)
		s.f1 = make([]float64, s.M)
		s.f2 = make([]float64, s.M)
	}
	if len(s.step) != s.N {
		s.step = make([]float64, s.N)
	}
	return nil
}

// absoluteStep 计算各分量的绝对步长
// 默认 h = sign(x0)*eps*max(1, |x0|)，eps按差分阶数选取
func (s *Spec) absoluteStep(x0 []float64) {
	eps := sqrtEps
	if s.Method == Central {
		eps = cubeEps
	}
	for i, v := range x0 {
		h := s.AbsStep
		if h == 0 {
			if s.RelStep != 0 {
				h = math.Copysign(s.RelStep, v) * math.Abs(v)
			}
			// 扰动被舍入吃掉时退回自动步长
			if h == 0 || (v+h)-v == 0 {
				h = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
		}
		s.step[i] = h
	}
}

// Jacobian 有限差分近似雅可比矩阵
// jac 按行优先存储 M×N（jac[j*N+i] = ∂y_j/∂x_i）。
func (s *Spec) Jacobian(x0, jac []float64) error {
	if err := s.check(x0, jac); err != nil {
		return err
	}
	s.absoluteStep(x0)
	if s.Method == Central {
		s.central(x0, jac)
	} else {
		s.forward(x0, jac)
	}
	return nil
}

// forward 前向差分：(f(x+h) - f(x)) / h
func (s *Spec) forward(x0, jac []float64) {
	fun := s.Object
	fun(x0, s.f0)
	for i, h := range s.step {
		t := x0[i]
		x0[i] = t + h
		fun(x0, s.f1)
		d := 1.0 / h
		for j := range s.f0 {
			jac[j*s.N+i] = (s.f1[j] - s.f0[j]) * d
		}
		x0[i] = t
	}
}

// central 中心差分：(f(x+h) - f(x-h)) / 2h
func (s *Spec) central(x0, jac []float64) {
	fun := s.Object
	for i, h := range s.step {
		t := x0[i]
		d := 1.0 / (2 * math.Abs(h))
		x0[i] = t - math.Abs(h)
		fun(x0, s.f1)
		x0[i] = t + math.Abs(h)
		fun(x0, s.f2)
		for j := range s.f1 {
			jac[j*s.N+i] = (s.f2[j] - s.f1[j]) * d
		}
		x0[i] = t
	}
}
