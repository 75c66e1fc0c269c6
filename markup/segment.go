package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// 该文件负责把原始文本切分为普通文本、行内公式与块级公式三类片段。

// Kind 标识片段类型。
type Kind int

const (
	PlainText Kind = iota
	InlineMath
	BlockMath
)

func (k Kind) String() string {
	switch k {
	case PlainText:
		return "text"
	case InlineMath:
		return "math-inline"
	case BlockMath:
		return "math-block"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Span 是切分后的一个片段。公式片段的 Content 不含定界符且已去除首尾空白；
// 普通文本片段保持原样。
type Span struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// Delimited 返回片段带定界符的形式，普通文本原样返回。
func (s Span) Delimited() string {
	switch s.Kind {
	case BlockMath:
		return `\[` + s.Content + `\]`
	case InlineMath:
		return `\(` + s.Content + `\)`
	default:
		return s.Content
	}
}

var (
	mathLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "BlockOpen", Pattern: `\\\[`},
		{Name: "BlockClose", Pattern: `\\\]`},
		{Name: "InlineOpen", Pattern: `\\\(`},
		{Name: "InlineClose", Pattern: `\\\)`},
		{Name: "Text", Pattern: `[^\\]+|\\`},
	})

	blockOpenType   = mustTokenType(mathLexer, "BlockOpen")
	blockCloseType  = mustTokenType(mathLexer, "BlockClose")
	inlineOpenType  = mustTokenType(mathLexer, "InlineOpen")
	inlineCloseType = mustTokenType(mathLexer, "InlineClose")
)

// Segment 按出现顺序返回文本中的片段。
// 定界符采用最短匹配且可跨行；找不到闭合定界符的开定界符按普通文本保留，
// 因此格式错误的公式会原样显示而不会导致请求失败。空白片段被丢弃。
func Segment(text string) []Span {
	tokens, err := lexAll(mathLexer, text)
	if err != nil {
		// 规则覆盖全部字符，出错时整段按普通文本处理。
		return appendPlain(nil, text)
	}

	nextBlockClose := nextIndexOf(tokens, blockCloseType)
	nextInlineClose := nextIndexOf(tokens, inlineCloseType)

	var (
		spans []Span
		plain strings.Builder
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		closeAt := -1
		kind := PlainText
		switch tok.Type {
		case blockOpenType:
			closeAt, kind = nextBlockClose[i], BlockMath
		case inlineOpenType:
			closeAt, kind = nextInlineClose[i], InlineMath
		}
		if closeAt < 0 {
			plain.WriteString(tok.Value)
			continue
		}

		spans = appendPlain(spans, plain.String())
		plain.Reset()

		var body strings.Builder
		for _, inner := range tokens[i+1 : closeAt] {
			body.WriteString(inner.Value)
		}
		spans = append(spans, Span{Kind: kind, Content: strings.TrimSpace(body.String())})
		i = closeAt
	}
	return appendPlain(spans, plain.String())
}

func appendPlain(spans []Span, text string) []Span {
	if strings.TrimSpace(text) == "" {
		return spans
	}
	return append(spans, Span{Kind: PlainText, Content: text})
}

// nextIndexOf 为每个位置记录其后第一个 want 类型 token 的下标，不存在时为 -1。
func nextIndexOf(tokens []lexer.Token, want lexer.TokenType) []int {
	out := make([]int, len(tokens))
	next := -1
	for i := len(tokens) - 1; i >= 0; i-- {
		out[i] = next
		if tokens[i].Type == want {
			next = i
		}
	}
	return out
}

func lexAll(def *lexer.StatefulDefinition, text string) ([]lexer.Token, error) {
	lex, err := def.LexString("", text)
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	tokens := all[:0]
	for _, tok := range all {
		if tok.EOF() {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func mustTokenType(def *lexer.StatefulDefinition, name string) lexer.TokenType {
	tt, ok := def.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
