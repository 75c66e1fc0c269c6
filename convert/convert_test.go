package convert

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/markup"
)

func TestSpansAppliesBindingFirst(t *testing.T) {
	spans := Spans("x: \\( ${expr} \\)", map[string]any{"expr": "a+b"})
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[1].Kind != markup.InlineMath || spans[1].Content != "a+b" {
		t.Fatalf("unexpected math span: %+v", spans[1])
	}
}

func TestImageFormats(t *testing.T) {
	c := New(nil)
	jpg, err := c.Image("Formula: \\[ x = 1 \\]", layout.ImageOptions{}, nil, FormatJPEG)
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatalf("not a jpeg")
	}
	svg, err := c.Image("a < b", layout.ImageOptions{}, nil, FormatSVG)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Fatalf("not an svg document")
	}
	if _, err := c.Image("x", layout.ImageOptions{}, nil, FormatPDF); err == nil {
		t.Fatalf("image should reject pdf format")
	}
}

func TestDocumentFormats(t *testing.T) {
	c := New(nil)
	pdf, err := c.Document("hello ${who|world}", layout.DocumentOptions{}, nil, "")
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}

	raw, err := c.Document("hello ${who|world}", layout.DocumentOptions{}, map[string]any{}, FormatLayout)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	var res layout.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("layout json: %v", err)
	}
	if len(res.Pages) != 1 || len(res.Pages[0].Texts) == 0 {
		t.Fatalf("unexpected layout: %+v", res)
	}
	if !strings.Contains(res.Pages[0].Texts[0].Content, "world") {
		t.Fatalf("binding fallback not applied: %q", res.Pages[0].Texts[0].Content)
	}
	if _, err := c.Document("x", layout.DocumentOptions{}, nil, FormatSVG); err == nil {
		t.Fatalf("document should reject svg format")
	}
}

func TestFormatMeta(t *testing.T) {
	if FormatJPEG.Ext() != "jpg" || FormatJPEG.ContentType() != "image/jpeg" {
		t.Fatalf("jpeg meta mismatch")
	}
	if FormatPDF.Ext() != "pdf" || FormatPDF.ContentType() != "application/pdf" {
		t.Fatalf("pdf meta mismatch")
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	c := New(nil)
	res, err := c.ImageLayout("x", layout.ImageOptions{}, nil)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if out, err := c.Encode(res, Format("gif")); err == nil || out != nil {
		t.Fatalf("unknown format should fail: out=%d err=%v", len(out), err)
	}
}
