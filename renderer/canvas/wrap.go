package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/mathpress/layout"
)

// lineBreaker 贪心折行：优先在空白处断开，单词超宽时按字符拆分，并尊重显式换行。
// 行首空白被丢弃，行尾空白不计入行宽。宽度单位均为 mm。
type lineBreaker struct {
	face  *canvas.FontFace
	limit float64

	lines []layout.TextLine
	cur   strings.Builder
	width float64
}

func wrapLines(content string, width float64, face *canvas.FontFace) []layout.TextLine {
	b := &lineBreaker{face: face, limit: width}
	if b.limit <= 0 {
		b.limit = math.MaxFloat64
	}
	for _, token := range tokenize(content) {
		b.add(token)
	}
	if b.cur.Len() > 0 || len(b.lines) == 0 || strings.HasSuffix(content, "\n") {
		b.flush(true)
	}
	return b.lines
}

func (b *lineBreaker) add(token string) {
	if token == "\n" {
		b.flush(true)
		return
	}
	space := strings.TrimSpace(token) == ""
	if space && b.cur.Len() == 0 {
		return
	}

	w := b.face.TextWidth(token)
	if b.width > 0 && b.width+w > b.limit {
		b.flush(false)
		if space {
			return
		}
	}
	if w <= b.limit {
		b.push(token, w)
		return
	}
	for _, chunk := range b.split(token) {
		cw := b.face.TextWidth(chunk)
		if b.width > 0 && b.width+cw > b.limit {
			b.flush(false)
		}
		b.push(chunk, cw)
	}
}

// push 追加片段；恰好等宽时不立即断行，避免紧随其后的显式换行产生空行。
func (b *lineBreaker) push(s string, w float64) {
	b.cur.WriteString(s)
	b.width += w
	if b.width > b.limit {
		b.flush(false)
	}
}

// flush 结束当前行；force 为 false 时不输出空行。
func (b *lineBreaker) flush(force bool) {
	line := strings.TrimRightFunc(b.cur.String(), unicode.IsSpace)
	b.cur.Reset()
	b.width = 0
	if line == "" && !force {
		return
	}
	b.lines = append(b.lines, layout.TextLine{Content: line, Width: b.face.TextWidth(line)})
}

// split 把超宽单词按字符拆成不超过 limit 的若干段。
func (b *lineBreaker) split(token string) []string {
	var parts []string
	start := 0
	runes := []rune(token)
	for i := 1; i <= len(runes); i++ {
		if i-start > 1 && b.face.TextWidth(string(runes[start:i])) > b.limit {
			parts = append(parts, string(runes[start:i-1]))
			start = i - 1
		}
	}
	return append(parts, string(runes[start:]))
}

// tokenize 把文本切成交替的空白/非空白片段，换行单独成为 "\n"，回车被丢弃。
func tokenize(s string) []string {
	var (
		tokens []string
		cur    []rune
		space  bool
	)
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\n':
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if len(cur) > 0 && isSpace != space {
			flush()
		}
		space = isSpace
		cur = append(cur, r)
	}
	flush()
	return tokens
}
