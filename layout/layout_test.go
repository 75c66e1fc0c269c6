package layout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/mathpress/markup"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 每个字符宽度按半个字号估算，按空格贪心折行。
type stubTypesetter struct{}

func (s *stubTypesetter) TextWidth(content string, font FontResource, fontSize float64) (float64, error) {
	return float64(utf8.RuneCountInString(content)) * fontSize * 0.5, nil
}

func (s *stubTypesetter) LayoutLines(content string, width float64, font FontResource, fontSize float64) ([]TextLine, error) {
	var lines []TextLine
	var current string
	for _, word := range strings.Fields(content) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		w, _ := s.TextWidth(candidate, font, fontSize)
		if current != "" && w > width {
			cw, _ := s.TextWidth(current, font, fontSize)
			lines = append(lines, TextLine{Content: current, Width: cw})
			current = word
			continue
		}
		current = candidate
	}
	cw, _ := s.TextWidth(current, font, fontSize)
	lines = append(lines, TextLine{Content: current, Width: cw})
	return lines, nil
}

func buildImage(t *testing.T, text string, opts ImageOptions) *Result {
	t.Helper()
	res, err := BuildImage(markup.Segment(text), opts, &stubTypesetter{})
	if err != nil {
		t.Fatalf("图片布局失败: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("图片布局应只有一页，实际 %d", len(res.Pages))
	}
	return res
}

func buildDocument(t *testing.T, text string, opts DocumentOptions) *Result {
	t.Helper()
	res, err := BuildDocument(markup.Segment(text), opts, &stubTypesetter{})
	if err != nil {
		t.Fatalf("文档布局失败: %v", err)
	}
	if len(res.Pages) == 0 {
		t.Fatalf("无页面输出")
	}
	return res
}

func eq(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}

func TestBuildImageDefaults(t *testing.T) {
	res := buildImage(t, "hello", ImageOptions{})
	page := res.Pages[0]
	if !eq(page.Width, 800) || !eq(page.Height, 600) {
		t.Fatalf("默认画布尺寸错误: %gx%g", page.Width, page.Height)
	}
	if len(page.Rects) != 1 || page.Rects[0].FillColor == nil || *page.Rects[0].FillColor != White {
		t.Fatalf("缺少白色背景: %+v", page.Rects)
	}
	if len(page.Texts) != 1 {
		t.Fatalf("期望 1 个文本框，实际 %d", len(page.Texts))
	}
	tb := page.Texts[0]
	if !eq(tb.X, 40) || !eq(tb.Y, 56) {
		t.Fatalf("首行位置错误: x=%g y=%g", tb.X, tb.Y)
	}
}

func TestBuildImageMathPlacement(t *testing.T) {
	res := buildImage(t, `Formula: \[ x = 1 \] and \( y \)`, ImageOptions{})
	texts := res.Pages[0].Texts
	if len(texts) != 4 {
		t.Fatalf("期望 4 个文本框，实际 %d: %+v", len(texts), texts)
	}
	lh := 16 * 1.8
	block := texts[1]
	if block.Kind != KindBlockMath || block.Align != "center" || !eq(block.Width, 800) {
		t.Fatalf("块级公式应在画布内居中: %+v", block)
	}
	if block.Color != AccentColor || !eq(block.FontSize, 18) {
		t.Fatalf("块级公式样式错误: %+v", block)
	}
	if !eq(block.Y, 56+lh+lh*0.5) {
		t.Fatalf("块级公式 y 错误: got=%g", block.Y)
	}
	// " and " 行在块级公式之后 2 个行高
	if !eq(texts[2].Y, block.Y+lh*2) {
		t.Fatalf("块后文本 y 错误: got=%g want=%g", texts[2].Y, block.Y+lh*2)
	}
	inline := texts[3]
	if inline.Kind != KindInlineMath || !eq(inline.X, 40) || !eq(inline.Y, texts[2].Y+lh) {
		t.Fatalf("行内公式应另起一行并左对齐: %+v", inline)
	}
}

func TestBuildImageBoldRuns(t *testing.T) {
	res := buildImage(t, "a *bc* d", ImageOptions{FontSize: 10})
	texts := res.Pages[0].Texts
	if len(texts) != 3 {
		t.Fatalf("期望 3 个片段，实际 %+v", texts)
	}
	if texts[1].Font != FontBold || texts[1].Content != "bc" {
		t.Fatalf("加粗片段错误: %+v", texts[1])
	}
	if !eq(texts[1].X, texts[0].X+texts[0].Width) || !eq(texts[2].X, texts[1].X+texts[1].Width) {
		t.Fatalf("片段应首尾相接: %+v", texts)
	}
	for _, tb := range texts {
		if !eq(tb.Y, texts[0].Y) {
			t.Fatalf("同一行片段应共享基线: %+v", texts)
		}
	}
}

// 空行不绘制但仍占一个行高。
func TestBuildImageBlankLineAdvances(t *testing.T) {
	res := buildImage(t, "a\n\nb", ImageOptions{})
	texts := res.Pages[0].Texts
	if len(texts) != 2 {
		t.Fatalf("期望 2 个文本框，实际 %d", len(texts))
	}
	if !eq(texts[1].Y-texts[0].Y, 2*16*1.8) {
		t.Fatalf("空行应前进一个行高: dy=%g", texts[1].Y-texts[0].Y)
	}
}

func TestBuildImageGrowsToFitContent(t *testing.T) {
	text := strings.Repeat("line\n", 40)
	res := buildImage(t, text, ImageOptions{Height: 100})
	page := res.Pages[0]
	last := page.Texts[len(page.Texts)-1]
	if page.Height <= last.Y {
		t.Fatalf("画布高度应容纳全部内容: height=%g lastY=%g", page.Height, last.Y)
	}
	if page.Rects[0].Height != page.Height {
		t.Fatalf("背景应覆盖整个画布")
	}
}

// 块级公式越多，图片高度单调不减。
func TestBuildImageHeightMonotonicInBlocks(t *testing.T) {
	prev := 0.0
	for n := 0; n <= 30; n++ {
		text := "intro\n" + strings.Repeat(`\[ a^2 + b^2 = c^2 \]`, n)
		h := buildImage(t, text, ImageOptions{}).Pages[0].Height
		if h < prev {
			t.Fatalf("n=%d 时高度下降: %g < %g", n, h, prev)
		}
		prev = h
	}
	if prev <= 600 {
		t.Fatalf("足够多的公式应撑高画布，实际 %g", prev)
	}
}

func TestBuildDocumentStartsAtMargin(t *testing.T) {
	res := buildDocument(t, "hello world", DocumentOptions{})
	page := res.Pages[0]
	if !eq(page.Width, A4Width) || !eq(page.Height, A4Height) {
		t.Fatalf("页面应为 A4: %gx%g", page.Width, page.Height)
	}
	tb := page.Texts[0]
	margin := 50 * PtToMm
	if !eq(tb.X, margin) || !eq(tb.Y, margin) {
		t.Fatalf("首行应位于边距处: x=%g y=%g want=%g", tb.X, tb.Y, margin)
	}
	if !eq(tb.FontSize, 12*PtToMm) {
		t.Fatalf("默认字号错误: %g", tb.FontSize)
	}
}

// 折行后的行数超过单页容量时必须分页。
func TestBuildDocumentPaginates(t *testing.T) {
	opts := DocumentOptions{}.WithDefaults()
	margin := opts.Margin * PtToMm
	lineHeight := opts.FontSize * 1.5 * PtToMm
	perPage := int((A4Height-2*margin)/lineHeight) + 1

	var b strings.Builder
	for i := 0; i < perPage+5; i++ {
		b.WriteString("row\n")
	}
	res := buildDocument(t, b.String(), DocumentOptions{})
	if len(res.Pages) < 2 {
		t.Fatalf("期望至少 2 页，实际 %d", len(res.Pages))
	}
	for i, page := range res.Pages {
		for _, tb := range page.Texts {
			if tb.Y > A4Height-margin+lineHeight || tb.Y < margin-1e-9 {
				t.Fatalf("第 %d 页文本越界: y=%g", i+1, tb.Y)
			}
		}
	}
	if first := res.Pages[1].Texts[0]; !eq(first.Y, margin) {
		t.Fatalf("新页应从上边距开始: y=%g", first.Y)
	}
}

// 折行后的续行同样要检查换页，而不只是每个片段检查一次。
func TestBuildDocumentWrappedLinesBreakPages(t *testing.T) {
	words := strings.TrimSpace(strings.Repeat("word ", 3000))
	res := buildDocument(t, words, DocumentOptions{})
	if len(res.Pages) < 2 {
		t.Fatalf("单个长段落也应分页，实际 %d 页", len(res.Pages))
	}
}

func TestBuildDocumentBullet(t *testing.T) {
	long := "• " + strings.TrimSpace(strings.Repeat("item text ", 40))
	res := buildDocument(t, long, DocumentOptions{})
	texts := res.Pages[0].Texts
	if texts[0].Kind != KindBullet || texts[0].Content != "•" {
		t.Fatalf("首个文本框应为项目符号: %+v", texts[0])
	}
	margin := 50 * PtToMm
	indent := 20 * PtToMm
	if !eq(texts[1].X, margin+indent) || !eq(texts[1].Y, texts[0].Y) {
		t.Fatalf("首行应与项目符号同一基线并缩进: %+v", texts[1])
	}
	if len(texts) < 3 {
		t.Fatalf("长项目应折成多行")
	}
	lh := 12 * 1.5 * PtToMm
	if !eq(texts[2].Y, texts[1].Y+lh) || !eq(texts[2].X, margin+indent) {
		t.Fatalf("续行位置错误: %+v", texts[2])
	}
	maxWidth := A4Width - 2*margin - indent
	for _, tb := range texts[1:] {
		if tb.Width > maxWidth+1e-9 {
			t.Fatalf("续行超出缩进后的列宽: %g > %g", tb.Width, maxWidth)
		}
	}
}

// 项目符号的续行逐行检查换页，新页续行从上边距开始并保持缩进。
func TestBuildDocumentBulletBreaksPages(t *testing.T) {
	long := "• " + strings.TrimSpace(strings.Repeat("word ", 3000))
	res := buildDocument(t, long, DocumentOptions{})
	if len(res.Pages) < 2 {
		t.Fatalf("长项目应分页，实际 %d 页", len(res.Pages))
	}
	margin := 50 * PtToMm
	indent := 20 * PtToMm
	for i, page := range res.Pages {
		for _, tb := range page.Texts {
			if tb.Y > A4Height-margin+1e-9 || tb.Y < margin-1e-9 {
				t.Fatalf("第 %d 页文本越过边距: y=%g", i+1, tb.Y)
			}
		}
	}
	first := res.Pages[1].Texts[0]
	if first.Kind != KindText || !eq(first.Y, margin) || !eq(first.X, margin+indent) {
		t.Fatalf("第 2 页续行位置错误: %+v", first)
	}
}

func TestBuildDocumentBoldLine(t *testing.T) {
	res := buildDocument(t, "Result: *important* value", DocumentOptions{})
	texts := res.Pages[0].Texts
	if len(texts) != 3 {
		t.Fatalf("期望 3 个片段，实际 %+v", texts)
	}
	if texts[1].Font != FontBold || texts[0].Font != FontBody {
		t.Fatalf("字重切换错误: %+v", texts)
	}
	if !eq(texts[2].X, texts[1].X+texts[1].Width) {
		t.Fatalf("片段应按宽度依次排开")
	}
}

func TestBuildDocumentMathSpacing(t *testing.T) {
	res := buildDocument(t, "a\n\\[ x = 1 \\]\nb \\( y \\)", DocumentOptions{})
	texts := res.Pages[0].Texts
	if len(texts) != 4 {
		t.Fatalf("期望 4 个文本框，实际 %+v", texts)
	}
	lh := 12 * 1.5 * PtToMm
	block := texts[1]
	if block.Kind != KindBlockMath || block.Align != "center" || !eq(block.Width, A4Width) {
		t.Fatalf("块级公式应在页面内居中: %+v", block)
	}
	if !eq(block.FontSize, 14*PtToMm) || block.Color != AccentColor {
		t.Fatalf("块级公式样式错误: %+v", block)
	}
	// "a" 之后 1 行高，"\n" 结尾产生的空行加 0.5，公式之前再加 0.5
	if !eq(block.Y, texts[0].Y+lh*2) {
		t.Fatalf("块级公式 y 错误: got=%g want=%g", block.Y, texts[0].Y+lh*2)
	}
	inline := texts[3]
	if inline.Kind != KindInlineMath || inline.Color != AccentColor || !eq(inline.FontSize, 12*PtToMm) {
		t.Fatalf("行内公式样式错误: %+v", inline)
	}
}

func TestBuildDocumentBracketsCJK(t *testing.T) {
	res := buildDocument(t, "中文 text", DocumentOptions{})
	if got := res.Pages[0].Texts[0].Content; !strings.Contains(got, "[中][文]") {
		t.Fatalf("CJK 字符应逐个加括号: %q", got)
	}
}

func TestBuildNilTypesetter(t *testing.T) {
	if _, err := BuildImage(nil, ImageOptions{}, nil); err == nil {
		t.Fatalf("缺少 Typesetter 时应报错")
	}
	if _, err := BuildDocument(nil, DocumentOptions{}, nil); err == nil {
		t.Fatalf("缺少 Typesetter 时应报错")
	}
}

func TestBuildDocumentEmptyInputHasOnePage(t *testing.T) {
	res := buildDocument(t, "", DocumentOptions{})
	if len(res.Pages) != 1 || len(res.Pages[0].Texts) != 0 {
		t.Fatalf("空输入应得到一张空白页: %+v", res.Pages)
	}
}
