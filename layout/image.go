package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/ByLCY/mathpress/markup"
)

const imageLineFactor = 1.8

// BuildImage 将片段排成一张图片：画布宽度固定，高度至少为 opts.Height，
// 内容超出时向下扩展，不会被裁切。公式只做着色与定位，不做排版。
func BuildImage(spans []markup.Span, opts ImageOptions, ts Typesetter) (*Result, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	opts = opts.WithDefaults()
	fonts := DefaultFonts()

	fontSize := Px(opts.FontSize).ToMM()
	padding := Px(opts.Padding).ToMM()
	width := Px(opts.Width).ToMM()
	lineHeight := LineHeightSpec{Kind: LineHeightFactor, Factor: imageLineFactor}.Resolve(Px(opts.FontSize), UnitMM)

	var texts []TextBox
	y := padding + fontSize
	for _, span := range spans {
		switch span.Kind {
		case markup.BlockMath:
			y += lineHeight * 0.5
			texts = append(texts, TextBox{
				Kind:     KindBlockMath,
				Content:  span.Content,
				X:        0,
				Y:        y,
				Width:    width,
				Font:     FontBody,
				FontSize: fontSize + 2,
				Color:    AccentColor,
				Align:    "center",
			})
			y += lineHeight * 2
		case markup.InlineMath:
			texts = append(texts, TextBox{
				Kind:     KindInlineMath,
				Content:  span.Content,
				X:        padding,
				Y:        y,
				Font:     FontBody,
				FontSize: fontSize,
				Color:    AccentColor,
			})
			y += lineHeight
		default:
			for _, line := range strings.Split(span.Content, "\n") {
				line = strings.TrimRight(line, "\r")
				if strings.TrimSpace(line) != "" {
					boxes, err := placeRuns(line, padding, y, fontSize, fonts, ts)
					if err != nil {
						return nil, err
					}
					texts = append(texts, boxes...)
				}
				y += lineHeight
			}
		}
	}

	height := math.Max(Px(opts.Height).ToMM(), y+padding)
	bg := White
	page := Page{
		Width:  width,
		Height: height,
		Rects:  []Rect{{Width: width, Height: height, FillColor: &bg}},
		Texts:  texts,
	}
	return &Result{
		Pages:     []Page{page},
		Resources: ResourceSet{Fonts: fonts},
		Meta:      DocumentMeta{Title: "math-formulas", Creator: "mathpress"},
	}, nil
}

// placeRuns 把一行拆成普通/加粗片段并从 x 开始依次排开，共享同一基线。
func placeRuns(line string, x, y, fontSize float64, fonts map[string]FontResource, ts Typesetter) ([]TextBox, error) {
	runs := markup.Runs(line)
	boxes := make([]TextBox, 0, len(runs))
	for _, run := range runs {
		fontName := FontBody
		if run.Bold {
			fontName = FontBold
		}
		w, err := ts.TextWidth(run.Text, fonts[fontName], fontSize)
		if err != nil {
			return nil, fmt.Errorf("测量文本宽度失败: %w", err)
		}
		boxes = append(boxes, TextBox{
			Kind:     KindText,
			Content:  run.Text,
			X:        x,
			Y:        y,
			Width:    w,
			Font:     fontName,
			FontSize: fontSize,
			Color:    TextColor,
		})
		x += w
	}
	return boxes, nil
}
