// Package rasterize 把 PDF 逐页光栅化为图片。
package rasterize

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"iter"
	"sync/atomic"
)

// DefaultScale 是相对 72 DPI 的固定放大倍数。
const DefaultScale = 2.0

// DPI 是页面光栅化分辨率。
const DPI = 72 * DefaultScale

var (
	// ErrDecode 表示输入无法作为 PDF 解析或某页无法渲染。
	ErrDecode = errors.New("PDF 解析失败")
	// ErrConsumed 表示页面序列已被遍历过一次。
	ErrConsumed = errors.New("页面序列只能遍历一次")
)

// Rasterizer 打开 PDF 字节并返回可逐页渲染的文档。
type Rasterizer interface {
	Open(ctx context.Context, data []byte) (*Document, error)
}

// RenderFunc 渲染第 index 页（从 0 开始）。
type RenderFunc func(ctx context.Context, index int) (image.Image, error)

// Document 是已打开的 PDF，页面只能按顺序消费一次。
type Document struct {
	count    int
	render   RenderFunc
	close    func() error
	consumed atomic.Bool
	closed   atomic.Bool
}

// NewDocument 由后端构造文档，closeFn 可为 nil。
func NewDocument(count int, render RenderFunc, closeFn func() error) *Document {
	return &Document{count: count, render: render, close: closeFn}
}

// PageCount 返回页数。
func (d *Document) PageCount() int { return d.count }

// Pages 按页序产出图片。第二次遍历只产出 ErrConsumed。
// 出现错误后序列结束。
func (d *Document) Pages(ctx context.Context) iter.Seq2[image.Image, error] {
	return func(yield func(image.Image, error) bool) {
		if d.consumed.Swap(true) {
			yield(nil, ErrConsumed)
			return
		}
		for i := 0; i < d.count; i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			img, err := d.render(ctx, i)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(img, nil) {
				return
			}
		}
	}
}

// Close 释放后端资源，可重复调用。
func (d *Document) Close() error {
	if d.close == nil || d.closed.Swap(true) {
		return nil
	}
	return d.close()
}

// Image 是编码后的单页图片。
type Image struct {
	MIME string
	Data []byte
}

// DataURI 返回 base64 data URI，例如 data:image/png;base64,....
func (img Image) DataURI() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Rasterize 打开 PDF，按页序把每页编码为 PNG。页数为 0 时返回空切片。
func Rasterize(ctx context.Context, r Rasterizer, data []byte) ([]Image, error) {
	if r == nil {
		return nil, fmt.Errorf("rasterizer 不能为空")
	}
	doc, err := r.Open(ctx, data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	images := make([]Image, 0, doc.PageCount())
	page := 0
	for img, err := range doc.Pages(ctx) {
		page++
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("编码第 %d 页 PNG 失败: %w", page, err)
		}
		images = append(images, Image{MIME: "image/png", Data: buf.Bytes()})
	}
	return images, nil
}

// 后端名称
const (
	BackendFitz   = "fitz"
	BackendMutool = "mutool"
)

// New 按名称创建后端，mutoolBin 仅对 mutool 后端生效。
func New(backend, mutoolBin string) (Rasterizer, error) {
	switch backend {
	case "", BackendFitz:
		return Fitz{}, nil
	case BackendMutool:
		m, err := NewMutool(mutoolBin)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("未知的光栅化后端: %s", backend)
	}
}
