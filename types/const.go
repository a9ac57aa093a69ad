package types

// ------------------------------ 默认求解参数 ------------------------------

const (
	DefaultMaxIter     = 10    // 默认最大迭代次数
	DefaultAtol        = 1e-10 // 默认绝对容差
	DefaultRtol        = 1e-10 // 默认相对容差
	DefaultDivergeRtol = 1e4   // 默认发散判定比（‖r‖/‖r₀‖超过即发散）
	DefaultAitkenMin   = 0.1   // Aitken松弛因子下限
	DefaultAitkenMax   = 1.5   // Aitken松弛因子上限
	DefaultLSMaxIter   = 5     // 线搜索默认最大回溯次数
	DefaultLSRho       = 0.5   // 线搜索默认步长收缩比
	DefaultLSC1        = 0.1   // 线搜索默认充分下降系数
	DefaultRestart     = 20    // GMRES默认重启长度
)
