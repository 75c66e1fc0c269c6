// Package preview 在服务端生成编辑器预览用的 HTML，数学公式转换为 MathML。
package preview

import (
	"bytes"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ByLCY/mathpress/markup"
)

// Render 把文本切分为普通文本与公式，普通文本做 HTML 转义（*粗体* 转为 <strong>，换行转为 <br>），
// 公式转为 MathML。无法转换的公式以 <code class="math-error"> 原样显示。
func Render(text string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(treeblood.MathML()))

	var out strings.Builder
	for _, span := range markup.Segment(text) {
		switch span.Kind {
		case markup.PlainText:
			writePlain(&out, span.Content)
		case markup.InlineMath:
			out.WriteString(`<span class="math-inline">`)
			if err := writeMath(&out, md, span.Content, false); err != nil {
				return "", err
			}
			out.WriteString(`</span>`)
		case markup.BlockMath:
			out.WriteString(`<div class="math-block">`)
			if err := writeMath(&out, md, span.Content, true); err != nil {
				return "", err
			}
			out.WriteString(`</div>`)
		}
	}
	return out.String(), nil
}

func writePlain(out *strings.Builder, content string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if i > 0 {
			out.WriteString("<br>\n")
		}
		for _, run := range markup.Runs(strings.TrimRight(line, "\r")) {
			if run.Bold {
				out.WriteString("<strong>")
				out.WriteString(html.EscapeString(run.Text))
				out.WriteString("</strong>")
				continue
			}
			out.WriteString(html.EscapeString(run.Text))
		}
	}
}

func writeMath(out *strings.Builder, md goldmark.Markdown, latex string, display bool) error {
	if strings.TrimSpace(latex) == "" {
		return nil
	}
	mathml, err := toMathML(md, latex, display)
	if err != nil {
		return err
	}
	if mathml == "" {
		out.WriteString(`<code class="math-error">`)
		out.WriteString(html.EscapeString(latex))
		out.WriteString(`</code>`)
		return nil
	}
	out.WriteString(mathml)
	return nil
}

// toMathML 经 goldmark 渲染出 HTML 后取出第一个 <math> 元素，未找到时返回空串。
func toMathML(md goldmark.Markdown, latex string, display bool) (string, error) {
	var source string
	if display {
		source = "$$" + latex + "$$"
	} else {
		source = "$" + strings.Join(strings.Fields(latex), " ") + "$"
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("转换公式失败: %w", err)
	}

	nodes, err := html.ParseFragment(&buf, &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		return "", fmt.Errorf("解析 MathML 失败: %w", err)
	}
	for _, n := range nodes {
		if m := findMath(n); m != nil {
			var rendered bytes.Buffer
			if err := html.Render(&rendered, m); err != nil {
				return "", fmt.Errorf("输出 MathML 失败: %w", err)
			}
			return rendered.String(), nil
		}
	}
	return "", nil
}

func findMath(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "math" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := findMath(c); m != nil {
			return m
		}
	}
	return nil
}
