package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	bullet     = '•'
	wordJoiner = '\u2060'
)

// PrepareText 在测量之前规范化 PDF 文本：
// 内置字体没有中日韩字形，每个 CJK 统一表意文字单独用 [] 包起来以保留可见痕迹；
// 零宽字符被移除；Unicode 行/段分隔符改为 \n；“•”后跟连接符的形式统一为“• ”。
func PrepareText(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isCJK(r):
			b.WriteRune('[')
			b.WriteRune(r)
			b.WriteRune(']')
		case r == bullet && i+1 < len(runes) && runes[i+1] == wordJoiner:
			b.WriteString("• ")
			i++
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		case isZeroWidth(r):
		case r == '\u2028' || r == '\u2029':
			b.WriteByte('\n')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isCJK(r rune) bool { return r >= 0x4E00 && r <= 0x9FFF }

func isZeroWidth(r rune) bool {
	return (r >= 0x200B && r <= 0x200D) || r == 0xFEFF
}
