package layout

// 长度单位与换算。布局结果统一使用毫米；图片选项的像素按 1px = 1mm 记。

// Unit 是长度的来源单位。
type Unit int

const (
	UnitMM Unit = iota
	UnitPT
	UnitPX
)

// pt 与 mm 的换算系数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// A4 纵向页面尺寸（mm），约合 595.28 × 841.89pt。
const (
	A4Width  = 210.0
	A4Height = 297.0
)

// Length 是带单位的长度值。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Pt 表示以 pt 为单位的长度。
func Pt(v float64) Length { return Length{Value: v, Unit: UnitPT} }

// Px 表示图片像素长度。
func Px(v float64) Length { return Length{Value: v, Unit: UnitPX} }

// ToMM 换算为毫米。
func (l Length) ToMM() float64 {
	if l.Unit == UnitPT {
		return l.Value * PtToMm
	}
	return l.Value
}

// ToPT 换算为 pt。
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.Value * MmToPt
}

// To 换算到 target，只区分 pt 与其余单位。
func (l Length) To(target Unit) float64 {
	if target == UnitPT {
		return l.ToPT()
	}
	return l.ToMM()
}

// LineHeightKind 区分倍数行高与固定行高。
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec 描述行高：字号的倍数，或一个固定长度。
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// Resolve 按字号计算行高，结果以 target 为单位。
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	if s.Kind == LineHeightAbsolute {
		return s.Len.To(target)
	}
	factor := s.Factor
	if factor <= 0 {
		factor = 1.4
	}
	return fontSize.To(target) * factor
}
