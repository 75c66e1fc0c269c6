package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas.
// Render 输出 PDF；JPEG 与 SVG 输出见 raster.go。
type Renderer struct {
	fonts *fontCache
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	// Fonts 按布局字体名覆盖内置字体，例如为 "Body" 提供支持中文的 TTF。
	Fonts map[string]Resource
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer 创建只使用内置字体的渲染器。
func NewRenderer() *Renderer {
	return &Renderer{fonts: newFontCache(nil)}
}

// NewRendererWithOptions 创建带注入字体的渲染器，字体文件在此处一次性读入。
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	blobs := map[string][]byte{}
	for name, res := range opts.Fonts {
		switch {
		case name == "":
		case len(res.Bytes) > 0:
			blobs[name] = res.Bytes
		case res.Path != "":
			data, err := os.ReadFile(res.Path)
			if err != nil {
				return nil, fmt.Errorf("读取字体 %s 失败: %w", res.Path, err)
			}
			blobs[name] = data
		}
	}
	return &Renderer{fonts: newFontCache(blobs)}, nil
}

// Render renders the result into a PDF byte slice, one PDF page per layout page.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if err := checkResult(result); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, first.Width, first.Height, nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c, err := r.drawCanvas(page, result.Resources)
		if err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// LayoutLines 实现 layout.Typesetter 接口。
// 约定：width/fontSize 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize float64) ([]layout.TextLine, error) {
	face, err := r.fonts.face(font, toPt(fontSize), layout.TextColor)
	if err != nil {
		return nil, err
	}
	return wrapLines(content, width, face), nil
}

// TextWidth 实现 layout.Typesetter 接口，返回单行文本宽度（mm）。
func (r *Renderer) TextWidth(content string, font layout.FontResource, fontSize float64) (float64, error) {
	face, err := r.fonts.face(font, toPt(fontSize), layout.TextColor)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(content), nil
}

func checkResult(result *layout.Result) error {
	if result == nil {
		return fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return fmt.Errorf("缺少可渲染的页面")
	}
	return nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawCanvas 在新画布上绘制单页，坐标原点位于左上角：先画矩形，再画文本。
func (r *Renderer) drawCanvas(page layout.Page, resources layout.ResourceSet) (*canvas.Canvas, error) {
	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	for _, rc := range page.Rects {
		drawRect(ctx, rc)
	}
	for _, tb := range page.Texts {
		if err := r.drawTextBox(ctx, tb, resolveFontResource(tb.Font, resources.Fonts)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	if tb.Content == "" {
		return nil
	}
	// TextBox 的坐标/字号均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fonts.face(fontRes, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	align, x := canvas.Left, tb.X
	switch strings.ToLower(tb.Align) {
	case "center":
		align, x = canvas.Center, tb.X+tb.Width/2
	case "right", "end":
		align, x = canvas.Right, tb.X+tb.Width
	}
	// tb.Y 即基线位置
	ctx.DrawText(x, tb.Y, canvas.NewTextLine(face, tb.Content, align))
	return nil
}

var transparent = color.RGBA{0, 0, 0, 0}

func drawRect(ctx *canvas.Context, rc layout.Rect) {
	fill, stroke, strokeWidth := color.Color(transparent), color.Color(transparent), 0.0
	if rc.FillColor != nil {
		fill = colorFromLayout(*rc.FillColor)
	}
	if rc.StrokeWidth > 0 {
		stroke, strokeWidth = colorFromLayout(rc.StrokeColor), rc.StrokeWidth
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(strokeWidth)
	ctx.DrawPath(rc.X, rc.Y, canvas.Rectangle(rc.Width, rc.Height))
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
