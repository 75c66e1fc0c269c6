package canvasrenderer

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/mathpress/fonts"
	"github.com/ByLCY/mathpress/layout"
)

// fontCache 按 name|src|style 缓存解析后的字体族，供所有请求共享。
type fontCache struct {
	// 注入的字体数据，按布局字体名（Body、Bold）索引，优先于 FontResource.Src
	blobs map[string][]byte

	mu       sync.Mutex
	families map[string]fontEntry
	fallback *fontEntry
}

type fontEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

func newFontCache(blobs map[string][]byte) *fontCache {
	if blobs == nil {
		blobs = map[string][]byte{}
	}
	return &fontCache{blobs: blobs, families: map[string]fontEntry{}}
}

// face 返回指定字号（pt）与颜色的字体面。
func (fc *fontCache) face(font layout.FontResource, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	entry, err := fc.entry(font)
	if err != nil {
		return nil, err
	}
	return entry.family.Face(sizePt, colorFromLayout(col), entry.style, canvas.FontNormal), nil
}

// entry 加载失败时退回内置正文字体，并把退回结果也记入缓存。
func (fc *fontCache) entry(font layout.FontResource) (fontEntry, error) {
	key := font.Name + "|" + font.Src + "|" + font.Style
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if e, ok := fc.families[key]; ok {
		return e, nil
	}

	e := fontEntry{family: canvas.NewFontFamily(familyName(font)), style: parseFontStyle(font.Style)}
	data, err := fc.bytes(font)
	if err == nil {
		err = e.family.LoadFont(data, 0, e.style)
	}
	if err != nil {
		fb, fbErr := fc.fallbackLocked()
		if fbErr != nil {
			return fontEntry{}, fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
		}
		e = fb
	}
	fc.families[key] = e
	return e, nil
}

func (fc *fontCache) bytes(font layout.FontResource) ([]byte, error) {
	if blob, ok := fc.blobs[font.Name]; ok {
		return blob, nil
	}
	switch {
	case font.Src == "":
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	case strings.HasPrefix(font.Src, "embed:"):
		return fonts.Load(font.Src)
	default:
		return os.ReadFile(font.Src)
	}
}

func (fc *fontCache) fallbackLocked() (fontEntry, error) {
	if fc.fallback != nil {
		return *fc.fallback, nil
	}
	data, err := fonts.Load("Go-Regular.ttf")
	if err != nil {
		return fontEntry{}, err
	}
	family := canvas.NewFontFamily("mathpress-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return fontEntry{}, err
	}
	fc.fallback = &fontEntry{family: family, style: canvas.FontRegular}
	return *fc.fallback, nil
}

func familyName(font layout.FontResource) string {
	switch {
	case font.Family != "":
		return font.Family
	case font.Name != "":
		return font.Name
	default:
		return layout.FontBody
	}
}

// 字重关键字按匹配优先级排列，extrabold 必须先于 bold。
var weightKeywords = []struct {
	key   string
	style canvas.FontStyle
}{
	{"black", canvas.FontBlack},
	{"extrabold", canvas.FontExtraBold},
	{"semibold", canvas.FontSemiBold},
	{"demibold", canvas.FontSemiBold},
	{"bold", canvas.FontBold},
	{"medium", canvas.FontMedium},
	{"light", canvas.FontLight},
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	for _, w := range weightKeywords {
		if strings.Contains(s, w.key) {
			result = w.style
			break
		}
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func resolveFontResource(name string, set map[string]layout.FontResource) layout.FontResource {
	if font, ok := set[name]; ok {
		return font
	}
	if font, ok := set[layout.FontBody]; ok {
		return font
	}
	return layout.DefaultFonts()[layout.FontBody]
}
