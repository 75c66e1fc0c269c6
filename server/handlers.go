package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/mathpress/binding"
	"github.com/ByLCY/mathpress/convert"
	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/preview"
	"github.com/ByLCY/mathpress/rasterize"
	"github.com/ByLCY/mathpress/web"
)

const (
	msgNoPDF         = "No PDF file provided"
	msgNotPDF        = "File must be a PDF"
	msgFileTooLarge  = "File too large"
	msgPDFDecode     = "Failed to process PDF. Make sure the file is not corrupted."
	msgPDFConvert    = "Failed to convert PDF to JPG"
	msgNoText        = "No text provided"
	msgInvalidBody   = "Invalid JSON body"
	msgBadFormat     = "Unsupported format"
	msgJPGFailed     = "Failed to generate JPG"
	msgPDFFailed     = "Failed to generate PDF"
	msgPreviewFailed = "Failed to render preview"

	downloadName = "math-formulas"
)

// textRequest 是文本类接口的请求体，O 为对应的排版选项。
type textRequest[O any] struct {
	Text    string `json:"text"`
	Options O      `json:"options"`
	Data    any    `json:"data"`
}

func (s *Server) convertPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	fh, err := c.FormFile("pdf")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgNoPDF})
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgFileTooLarge})
		default:
			s.fail(c, msgPDFConvert, err)
		}
		return
	}
	if mt, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type")); mt != "application/pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNotPDF})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, msgPDFConvert, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, msgPDFConvert, err)
		return
	}

	images, err := rasterize.Rasterize(c.Request.Context(), s.raster, data)
	if err != nil {
		if errors.Is(err, rasterize.ErrDecode) {
			s.fail(c, msgPDFDecode, err)
			return
		}
		s.fail(c, msgPDFConvert, err)
		return
	}

	uris := make([]string, len(images))
	for i, img := range images {
		uris[i] = img.DataURI()
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"images":    uris,
		"pageCount": len(uris),
	})
}

func (s *Server) textToJPG(c *gin.Context) {
	req, ok := bindText[layout.ImageOptions](c)
	if !ok {
		return
	}
	format := convert.Format(c.DefaultQuery("format", string(convert.FormatJPEG)))
	switch format {
	case convert.FormatJPEG, convert.FormatSVG, convert.FormatLayout:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadFormat})
		return
	}
	out, err := s.conv.Image(req.Text, req.Options, req.Data, format)
	if err != nil {
		s.fail(c, msgJPGFailed, err)
		return
	}
	s.send(c, format, out)
}

func (s *Server) textToPDF(c *gin.Context) {
	req, ok := bindText[layout.DocumentOptions](c)
	if !ok {
		return
	}
	format := convert.Format(c.DefaultQuery("format", string(convert.FormatPDF)))
	switch format {
	case convert.FormatPDF, convert.FormatLayout:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadFormat})
		return
	}
	out, err := s.conv.Document(req.Text, req.Options, req.Data, format)
	if err != nil {
		s.fail(c, msgPDFFailed, err)
		return
	}
	s.send(c, format, out)
}

func (s *Server) preview(c *gin.Context) {
	var req textRequest[struct{}]
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody, "details": err.Error()})
		return
	}
	out, err := preview.Render(binding.Interpolate(req.Text, req.Data))
	if err != nil {
		s.fail(c, msgPreviewFailed, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": out})
}

func (s *Server) page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := web.Page(name)
		if err != nil {
			s.fail(c, "Page not found", err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}

// bindText 解析请求体；失败时已写出 400 响应。
func bindText[O any](c *gin.Context) (textRequest[O], bool) {
	var req textRequest[O]
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody, "details": err.Error()})
		return req, false
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoText})
		return req, false
	}
	return req, true
}

// send 写出渲染结果；布局 JSON 直接返回，其余格式作为附件下载。
func (s *Server) send(c *gin.Context, format convert.Format, out []byte) {
	if format != convert.FormatLayout {
		c.Header("Content-Disposition", `attachment; filename="`+downloadName+"."+format.Ext()+`"`)
	}
	c.Data(http.StatusOK, format.ContentType(), out)
}

// fail 记录底层错误并返回 500。
func (s *Server) fail(c *gin.Context, msg string, err error) {
	s.log.ErrorContext(c.Request.Context(), msg, "error", err, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": err.Error()})
}
