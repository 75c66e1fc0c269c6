package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/mathpress/markup"
)

const (
	documentLineFactor = 1.5
	bulletIndentPt     = 20.0
)

// BuildDocument 将片段排入 A4 纵向页面：普通文本自动折行，支持项目符号与加粗，
// 公式着色显示；纵向空间用尽时换页。每绘制一行之前都会检查是否需要换页。
func BuildDocument(spans []markup.Span, opts DocumentOptions, ts Typesetter) (*Result, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	opts = opts.WithDefaults()
	fonts := DefaultFonts()

	fontSize := Pt(opts.FontSize).ToMM()
	margin := Pt(opts.Margin).ToMM()
	f := &flow{
		collector:  newPageCollector(A4Width, A4Height),
		ts:         ts,
		fonts:      fonts,
		margin:     margin,
		maxWidth:   A4Width - margin*2,
		fontSize:   fontSize,
		lineHeight: LineHeightSpec{Kind: LineHeightFactor, Factor: documentLineFactor}.Resolve(Pt(opts.FontSize), UnitMM),
		indent:     Pt(bulletIndentPt).ToMM(),
		y:          margin,
	}

	for _, span := range spans {
		var err error
		switch span.Kind {
		case markup.BlockMath:
			err = f.blockMath(PrepareText(span.Content))
		case markup.InlineMath:
			err = f.inlineMath(PrepareText(span.Content))
		default:
			err = f.plain(PrepareText(span.Content))
		}
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Pages:     f.collector.pages(),
		Resources: ResourceSet{Fonts: fonts},
		Meta:      DocumentMeta{Title: "math-formulas", Creator: "mathpress"},
	}, nil
}

// flow 持有一次布局过程中的游标 (y, 当前页)。
type flow struct {
	collector  *pageCollector
	ts         Typesetter
	fonts      map[string]FontResource
	margin     float64
	maxWidth   float64
	fontSize   float64
	lineHeight float64
	indent     float64
	y          float64
}

// checkNewPage 在 y 越过下边距时换页并把 y 重置到上边距。
func (f *flow) checkNewPage() {
	if f.y > f.collector.height-f.margin {
		f.collector.newPage()
		f.y = f.margin
	}
}

func (f *flow) plain(content string) error {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			f.y += f.lineHeight * 0.5
		case strings.HasPrefix(trimmed, string(bullet)):
			if err := f.bulletLine(trimmed); err != nil {
				return err
			}
		case markup.HasBold(line):
			if err := f.boldLine(line); err != nil {
				return err
			}
		default:
			if err := f.wrapped(line, f.margin, f.maxWidth, f.fontSize, TextColor, KindText, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *flow) bulletLine(trimmed string) error {
	f.checkNewPage()
	f.draw(TextBox{Kind: KindBullet, Content: string(bullet), X: f.margin, Font: FontBody, FontSize: f.fontSize, Color: TextColor})

	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, string(bullet)))
	if rest != "" {
		lines, err := f.wrap(rest, f.maxWidth-f.indent, f.fontSize)
		if err != nil {
			return err
		}
		for i, line := range lines {
			if i > 0 {
				f.y += f.lineHeight
				f.checkNewPage()
			}
			f.draw(TextBox{Kind: KindText, Content: line.Content, X: f.margin + f.indent, Width: line.Width, Font: FontBody, FontSize: f.fontSize, Color: TextColor})
		}
	}
	f.y += f.lineHeight
	return nil
}

func (f *flow) boldLine(line string) error {
	f.checkNewPage()
	x := f.margin
	for _, run := range markup.Runs(line) {
		fontName := FontBody
		if run.Bold {
			fontName = FontBold
		}
		w, err := f.ts.TextWidth(run.Text, f.fonts[fontName], f.fontSize)
		if err != nil {
			return fmt.Errorf("测量文本宽度失败: %w", err)
		}
		f.draw(TextBox{Kind: KindText, Content: run.Text, X: x, Width: w, Font: fontName, FontSize: f.fontSize, Color: TextColor})
		x += w
	}
	f.y += f.lineHeight
	return nil
}

func (f *flow) blockMath(content string) error {
	f.y += f.lineHeight * 0.5
	f.checkNewPage()
	if err := f.wrapped(content, 0, f.maxWidth, f.fontSize+Pt(2).ToMM(), AccentColor, KindBlockMath, "center"); err != nil {
		return err
	}
	f.y += f.lineHeight * 0.5
	return nil
}

func (f *flow) inlineMath(content string) error {
	f.checkNewPage()
	return f.wrapped(content, f.margin, f.maxWidth, f.fontSize, AccentColor, KindInlineMath, "")
}

// wrapped 按 width 折行，逐行检查换页、绘制并前进一个行高。
// align 为 center 时每行在整页宽度内居中，x 被忽略。
func (f *flow) wrapped(content string, x, width, fontSize float64, col Color, kind, align string) error {
	lines, err := f.wrap(content, width, fontSize)
	if err != nil {
		return err
	}
	for _, line := range lines {
		f.checkNewPage()
		box := TextBox{Kind: kind, Content: line.Content, X: x, Width: line.Width, Font: FontBody, FontSize: fontSize, Color: col}
		if align == "center" {
			box.X, box.Width, box.Align = 0, f.collector.width, align
		}
		f.draw(box)
		f.y += f.lineHeight
	}
	return nil
}

func (f *flow) wrap(content string, width, fontSize float64) ([]TextLine, error) {
	lines, err := f.ts.LayoutLines(content, width, f.fonts[FontBody], fontSize)
	if err != nil {
		return nil, fmt.Errorf("文本折行失败: %w", err)
	}
	return lines, nil
}

// draw 把文本框放到当前页的 y 位置；空内容只占位不输出。
func (f *flow) draw(tb TextBox) {
	if tb.Content == "" {
		return
	}
	tb.Y = f.y
	f.collector.curr().appendText(tb)
}

type pageAccumulator struct {
	texts []TextBox
}

func (p *pageAccumulator) appendText(tb TextBox) {
	p.texts = append(p.texts, tb)
}

type pageCollector struct {
	width   float64
	height  float64
	accs    []*pageAccumulator
	current int
}

func newPageCollector(width, height float64) *pageCollector {
	pc := &pageCollector{
		width:  width,
		height: height,
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:  pc.width,
			Height: pc.height,
			Texts:  acc.texts,
		}
	}
	return out
}
