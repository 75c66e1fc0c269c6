package markup

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Run 是一行文本中字重一致的一段。
type Run struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

var (
	inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Star", Pattern: `\*`},
		{Name: "Text", Pattern: `[^*]+`},
	})

	starType = mustTokenType(inlineLexer, "Star")
	textType = mustTokenType(inlineLexer, "Text")
)

// Runs 将一行文本拆分为普通/加粗片段。*word* 形式的一对星号切换为加粗，
// 星号本身不输出；只支持一层，嵌套或落单的星号作为字面文本保留在所在片段中。
func Runs(line string) []Run {
	tokens, err := lexAll(inlineLexer, line)
	if err != nil {
		if line == "" {
			return nil
		}
		return []Run{{Text: line}}
	}

	var runs []Run
	push := func(text string, bold bool) {
		if text == "" {
			return
		}
		if n := len(runs); n > 0 && runs[n-1].Bold == bold {
			runs[n-1].Text += text
			return
		}
		runs = append(runs, Run{Text: text, Bold: bold})
	}

	for i := 0; i < len(tokens); i++ {
		if isBoldPair(tokens, i) {
			push(tokens[i+1].Value, true)
			i += 2
			continue
		}
		push(tokens[i].Value, false)
	}
	return runs
}

// HasBold 判断该行是否包含至少一对加粗标记。
func HasBold(line string) bool {
	if !strings.Contains(line, "*") {
		return false
	}
	for _, r := range Runs(line) {
		if r.Bold {
			return true
		}
	}
	return false
}

// PlainString 去掉加粗标记后返回可见文本。
func PlainString(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func isBoldPair(tokens []lexer.Token, i int) bool {
	return i+2 < len(tokens) &&
		tokens[i].Type == starType &&
		tokens[i+1].Type == textType &&
		tokens[i+2].Type == starType
}
