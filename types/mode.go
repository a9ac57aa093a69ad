package types

// Mode 线性求解方向
// 前向模式求解 J·x = b，反向模式求解 Jᵗ·x = b，
// 自动模式由总导数引擎根据种子数量选择更省的方向。
type Mode int

const (
	ModeAuto    Mode = iota // 自动选择（仅总导数入口有效）
	ModeForward             // 前向模式
	ModeReverse             // 反向模式（转置）
)

// String 格式化输出
func (m Mode) String() string {
	switch m {
	case ModeForward:
		return "fwd"
	case ModeReverse:
		return "rev"
	}
	return "auto"
}
