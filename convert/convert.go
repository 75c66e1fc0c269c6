// Package convert 串联数据绑定、公式切分、布局与渲染，供 HTTP 与命令行共用。
package convert

import (
	"bytes"
	"fmt"

	"github.com/ByLCY/mathpress/binding"
	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/markup"
	canvasrenderer "github.com/ByLCY/mathpress/renderer/canvas"
)

// Format 是输出格式。
type Format string

const (
	FormatJPEG   Format = "jpeg"
	FormatSVG    Format = "svg"
	FormatPDF    Format = "pdf"
	FormatLayout Format = "layout"
)

// ContentType 返回格式对应的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	case FormatLayout:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Ext 返回文件扩展名（不含点）。
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatLayout:
		return "json"
	default:
		return string(f)
	}
}

// Converter 持有共享的画布渲染器（及其字体缓存）。
type Converter struct {
	r *canvasrenderer.Renderer
}

// New 创建转换器，r 为 nil 时使用内置字体的渲染器。
func New(r *canvasrenderer.Renderer) *Converter {
	if r == nil {
		r = canvasrenderer.NewRenderer()
	}
	return &Converter{r: r}
}

// Spans 先做 ${} 数据绑定再切分公式。
func Spans(text string, data any) []markup.Span {
	return markup.Segment(binding.Interpolate(text, data))
}

// ImageLayout 计算文本转图片的布局。
func (c *Converter) ImageLayout(text string, opts layout.ImageOptions, data any) (*layout.Result, error) {
	res, err := layout.BuildImage(Spans(text, data), opts, c.r)
	if err != nil {
		return nil, fmt.Errorf("图片布局失败: %w", err)
	}
	return res, nil
}

// DocumentLayout 计算文本转 PDF 的分页布局。
func (c *Converter) DocumentLayout(text string, opts layout.DocumentOptions, data any) (*layout.Result, error) {
	res, err := layout.BuildDocument(Spans(text, data), opts, c.r)
	if err != nil {
		return nil, fmt.Errorf("文档布局失败: %w", err)
	}
	return res, nil
}

// Image 把文本渲染为 JPEG、SVG 或布局 JSON。
func (c *Converter) Image(text string, opts layout.ImageOptions, data any, format Format) ([]byte, error) {
	res, err := c.ImageLayout(text, opts, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJPEG, "":
		return c.Encode(res, FormatJPEG)
	case FormatSVG, FormatLayout:
		return c.Encode(res, format)
	default:
		return nil, fmt.Errorf("图片不支持输出格式 %s", format)
	}
}

// Document 把文本渲染为 PDF 或布局 JSON。
func (c *Converter) Document(text string, opts layout.DocumentOptions, data any, format Format) ([]byte, error) {
	res, err := c.DocumentLayout(text, opts, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF, "":
		return c.Encode(res, FormatPDF)
	case FormatLayout:
		return c.Encode(res, format)
	default:
		return nil, fmt.Errorf("PDF 不支持输出格式 %s", format)
	}
}

// Encode 按格式输出布局结果。
func (c *Converter) Encode(res *layout.Result, format Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJPEG:
		out, err = c.r.JPEG(canvasrenderer.DefaultJPEGQuality).Render(res)
	case FormatSVG:
		out, err = c.r.SVG().Render(res)
	case FormatPDF:
		out, err = c.r.Render(res)
	case FormatLayout:
		var buf bytes.Buffer
		err = layout.EncodeDebugJSON(res, &buf)
		out = buf.Bytes()
	default:
		return nil, fmt.Errorf("不支持的输出格式 %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("渲染 %s 失败: %w", format, err)
	}
	return out, nil
}
