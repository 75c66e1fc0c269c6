package layout

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有长度统一为毫米；图片布局约定 1mm 对应输出图像的 1 像素。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录布局中引用到的字体。
type ResourceSet struct {
	Fonts map[string]FontResource `json:"fonts"`
}

// FontResource 描述字体资源，src 可以是文件路径或内置 embed 路径。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"` // 渲染器使用的 Family 名称
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸与最终可以直接渲染的元素。
// Rects 先于 Texts 绘制，用作背景。
type Page struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Texts  []TextBox `json:"texts"`
	Rects  []Rect    `json:"rects,omitempty"`
}

// TextBox 表示一行已经排好坐标的文本。
// Y 是基线位置；Align 为 center/right 时，锚点取 [X, X+Width] 区间的中点或右端。
type TextBox struct {
	Kind     string  `json:"kind"`
	Content  string  `json:"content"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width,omitempty"`
	Font     string  `json:"font"`
	FontSize float64 `json:"fontSize"`
	Color    Color   `json:"color"`
	Align    string  `json:"align,omitempty"`
}

// TextLine 表示排版后的一行文本内容及其宽度。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// Rect 表示一个矩形（不包含圆角）。StrokeWidth<=0 时不描边。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// 文本框种类。
const (
	KindText       = "text"
	KindBullet     = "bullet"
	KindInlineMath = "math-inline"
	KindBlockMath  = "math-block"
)

// 内置字体名称。
const (
	FontBody = "Body"
	FontBold = "Bold"
)

var (
	// TextColor 是正文颜色。
	TextColor = Color{}
	// AccentColor 用于高亮公式。
	AccentColor = Color{R: 37, G: 99, B: 235}
	// White 用于图片背景。
	White = Color{R: 255, G: 255, B: 255}
)

// DefaultFonts 返回布局引用的字体资源。
func DefaultFonts() map[string]FontResource {
	return map[string]FontResource{
		FontBody: {Name: FontBody, Src: "embed:Go-Regular.ttf", Family: "mathpress-body"},
		FontBold: {Name: FontBold, Src: "embed:Go-Bold.ttf", Style: "bold", Family: "mathpress-bold"},
	}
}
