package layout

// Typesetter 负责测量文本宽度并按宽度约束将文本拆成可绘制的行。
// 约定 width/fontSize 均为毫米。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64) ([]TextLine, error)
	TextWidth(content string, font FontResource, fontSize float64) (float64, error)
}

// ImageOptions 控制图片布局，单位为像素。零值字段使用默认值，不做范围校验。
type ImageOptions struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Padding  float64 `json:"padding"`
	FontSize float64 `json:"fontSize"`
}

// DocumentOptions 控制分页文档布局，单位为 pt。零值字段使用默认值。
type DocumentOptions struct {
	Margin   float64 `json:"margin"`
	FontSize float64 `json:"fontSize"`
}

const (
	defaultImageWidth    = 800
	defaultImageHeight   = 600
	defaultImagePadding  = 40
	defaultImageFontSize = 16

	defaultDocMargin   = 50
	defaultDocFontSize = 12
)

// WithDefaults 返回填充了默认值的副本。
func (o ImageOptions) WithDefaults() ImageOptions {
	o.Width = orDefault(o.Width, defaultImageWidth)
	o.Height = orDefault(o.Height, defaultImageHeight)
	o.Padding = orDefault(o.Padding, defaultImagePadding)
	o.FontSize = orDefault(o.FontSize, defaultImageFontSize)
	return o
}

// WithDefaults 返回填充了默认值的副本。
func (o DocumentOptions) WithDefaults() DocumentOptions {
	o.Margin = orDefault(o.Margin, defaultDocMargin)
	o.FontSize = orDefault(o.FontSize, defaultDocFontSize)
	return o
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
