package types

// Options 求解器配置（不可变记录）
// 在求解器构造时填充，求解过程中只读。
// 零值无意义，应通过 NewOptions 获取默认配置后覆写。
type Options struct {
	MaxIter          int     // 最大迭代次数
	Atol             float64 // 绝对容差：‖r‖ ≤ Atol 即收敛
	Rtol             float64 // 相对容差：‖r‖/‖r₀‖ ≤ Rtol 即收敛
	DivergeRtol      float64 // 发散判定比：‖r‖/‖r₀‖ 超过该值立即中止
	ErrOnNonConverge bool    // 达到迭代上限未收敛时是否升级为致命错误
	UseAitken        bool    // Gauss-Seidel是否启用Aitken松弛加速
	AitkenMin        float64 // Aitken松弛因子下限
	AitkenMax        float64 // Aitken松弛因子上限
	SolveSubsystems  bool    // Newton修正前是否先让子系统各自收敛
	RunConcurrent    bool    // Jacobi扫描是否并发执行各子系统
	Restart          int     // GMRES重启长度
	AssembleSparse   bool    // 直接法是否按稀疏格式组装矩阵
	Iprint           int     // 迭代打印级别：0静默，1仅结果，2逐次迭代
}

// NewOptions 创建默认求解器配置
func NewOptions() Options {
	return Options{
		MaxIter:     DefaultMaxIter,
		Atol:        DefaultAtol,
		Rtol:        DefaultRtol,
		DivergeRtol: DefaultDivergeRtol,
		AitkenMin:   DefaultAitkenMin,
		AitkenMax:   DefaultAitkenMax,
		Restart:     DefaultRestart,
	}
}

// LSOptions 线搜索配置
type LSOptions struct {
	MaxIter int     // 最大回溯次数
	Rho     float64 // 步长收缩比（几何回溯）
	C1      float64 // 充分下降系数
}

// NewLSOptions 创建默认线搜索配置
func NewLSOptions() LSOptions {
	return LSOptions{
		MaxIter: DefaultLSMaxIter,
		Rho:     DefaultLSRho,
		C1:      DefaultLSC1,
	}
}
