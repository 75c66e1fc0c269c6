package rasterize

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Fitz 通过 go-fitz（MuPDF cgo 绑定）在进程内渲染。
type Fitz struct {
	// DPI 为 0 时使用默认分辨率。
	DPI float64
}

// Open 从内存打开 PDF。
func (f Fitz) Open(_ context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 内容为空", ErrDecode)
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	dpi := f.DPI
	if dpi <= 0 {
		dpi = DPI
	}
	render := func(_ context.Context, i int) (image.Image, error) {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("%w: 渲染第 %d 页失败: %v", ErrDecode, i+1, err)
		}
		return img, nil
	}
	return NewDocument(doc.NumPage(), render, doc.Close), nil
}
