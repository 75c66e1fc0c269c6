package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/renderer"
)

// DefaultJPEGQuality 是文本转图片接口使用的 JPEG 质量。
const DefaultJPEGQuality = 95

// rasterDPMM 每毫米像素数；图片布局中 1px 记为 1mm。
const rasterDPMM = 1.0

// MaxRasterPixels 单张位图允许的最大像素数，超出时拒绝光栅化。
const MaxRasterPixels = 268402689

type jpegRenderer struct {
	r       *Renderer
	quality int
}

type svgRenderer struct {
	r *Renderer
}

// JPEG 返回把第一页光栅化为 JPEG 的渲染器。
func (r *Renderer) JPEG(quality int) renderer.Renderer {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return jpegRenderer{r: r, quality: quality}
}

// SVG 返回把第一页输出为 SVG 的渲染器，文本中的 < > & 由 SVG 写入器转义。
func (r *Renderer) SVG() renderer.Renderer {
	return svgRenderer{r: r}
}

func (j jpegRenderer) Render(result *layout.Result) ([]byte, error) {
	c, err := j.r.firstPage(result)
	if err != nil {
		return nil, err
	}
	if err := checkRasterSize(c.Size()); err != nil {
		return nil, err
	}
	img := rasterizer.Draw(c, canvas.DPMM(rasterDPMM), canvas.DefaultColorSpace)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: j.quality}); err != nil {
		return nil, fmt.Errorf("编码 JPEG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// checkRasterSize 在分配位图之前检查画布尺寸（mm）换算后的像素数。
func checkRasterSize(width, height float64) error {
	w, h := math.Ceil(width*rasterDPMM), math.Ceil(height*rasterDPMM)
	if !(w >= 1 && h >= 1) {
		return fmt.Errorf("图片尺寸无效: %.0fx%.0f", w, h)
	}
	if w*h > MaxRasterPixels {
		return fmt.Errorf("图片尺寸 %.0fx%.0f 超过像素上限 %d", w, h, MaxRasterPixels)
	}
	return nil
}

func (s svgRenderer) Render(result *layout.Result) ([]byte, error) {
	c, err := s.r.firstPage(result)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	width, height := c.Size()
	w := svg.New(&buf, width, height, nil)
	c.RenderTo(w)
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) firstPage(result *layout.Result) (*canvas.Canvas, error) {
	if err := checkResult(result); err != nil {
		return nil, err
	}
	return r.drawCanvas(result.Pages[0], result.Resources)
}
