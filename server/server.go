// Package server 提供 HTTP 接口：PDF 转图片、文本转 JPG/PDF、公式预览与内置编辑器页面。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/ByLCY/mathpress/convert"
	"github.com/ByLCY/mathpress/rasterize"
)

// Options 配置 Server。
type Options struct {
	Converter      *convert.Converter
	Rasterizer     rasterize.Rasterizer
	Logger         *slog.Logger
	MaxUploadBytes int64
	// CORSOrigins 为空时允许所有来源。
	CORSOrigins []string
}

// Server 持有各接口共享的依赖，本身不保存请求间状态。
type Server struct {
	conv      *convert.Converter
	raster    rasterize.Rasterizer
	log       *slog.Logger
	maxUpload int64
	handler   http.Handler
}

const defaultMaxUpload = 32 << 20

// New 创建 Server 并注册路由。
func New(opts Options) *Server {
	s := &Server{
		conv:      opts.Converter,
		raster:    opts.Rasterizer,
		log:       opts.Logger,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.conv == nil {
		s.conv = convert.New(nil)
	}
	if s.raster == nil {
		s.raster = rasterize.Fitz{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	engine := gin.New()
	engine.Use(requestID(), accessLog(s.log), gin.CustomRecovery(s.recover))
	s.routes(engine)

	c := cors.Default()
	if len(opts.CORSOrigins) > 0 {
		c = cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		})
	}
	s.handler = c.Handler(engine)
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.page("index.html"))
	r.GET("/text-to-math", s.page("text-to-math.html"))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	for _, path := range []string{"/convert-pdf-to-jpg", "/convert"} {
		api.POST(path, s.convertPDF)
		api.GET(path, methodNotAllowed(gin.H{"error": "Method not allowed. Use POST to upload a PDF."}))
	}
	api.POST("/text-to-jpg", s.textToJPG)
	api.GET("/text-to-jpg", methodNotAllowed(gin.H{
		"error": `Method not allowed. Use POST with JSON body containing "text" field.`,
		"example": gin.H{
			"text":    `The quadratic formula is \\[ x = \\frac{-b \\pm \\sqrt{b^2 - 4ac}}{2a} \\]`,
			"options": gin.H{"width": 800, "height": 600, "fontSize": 16, "padding": 40},
		},
	}))
	api.POST("/text-to-latex-pdf", s.textToPDF)
	api.GET("/text-to-latex-pdf", methodNotAllowed(gin.H{
		"error": `Method not allowed. Use POST with JSON body containing "text" field.`,
		"example": gin.H{
			"text":    `The quadratic formula is \\[ x = \\frac{-b \\pm \\sqrt{b^2 - 4ac}}{2a} \\]\n\nFor inline math: \\( E = mc^2 \\)`,
			"options": gin.H{"fontSize": 12, "margin": 50},
		},
	}))
	api.POST("/preview", s.preview)
}

// Handler 返回带 CORS 的根处理器。
func (s *Server) Handler() http.Handler { return s.handler }

// Run 监听 addr 直到 ctx 结束，然后优雅退出。
func (s *Server) Run(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭服务失败: %w", err)
	}
	return nil
}

func (s *Server) recover(c *gin.Context, err any) {
	s.log.ErrorContext(c.Request.Context(), "panic recovered", "error", err, "request_id", c.GetString(requestIDKey))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func methodNotAllowed(body gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, body)
	}
}
