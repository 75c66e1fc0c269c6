package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

var builtin = map[string][]byte{
	"Go-Regular.ttf": goregular.TTF,
	"Go-Bold.ttf":    gobold.TTF,
	"Go-Italic.ttf":  goitalic.TTF,
	"Go-Mono.ttf":    gomono.TTF,
}

// Load 返回内置字体的字节数据，path 可写为 "embed:Go-Regular.ttf" 或直接 "Go-Regular.ttf"。
func Load(path string) ([]byte, error) {
	name := strings.TrimPrefix(path, "embed:")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在", name)
	}
	return data, nil
}
