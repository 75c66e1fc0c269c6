// Package web 内嵌浏览器端页面。
package web

import (
	"embed"
	"fmt"
)

//go:embed pages/*.html
var pages embed.FS

// Page 返回内嵌页面的内容。
func Page(name string) ([]byte, error) {
	data, err := pages.ReadFile("pages/" + name)
	if err != nil {
		return nil, fmt.Errorf("读取页面 %s 失败: %w", name, err)
	}
	return data, nil
}
