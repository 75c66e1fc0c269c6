// Package config 从命令行参数与环境变量加载服务配置，参数优先于环境变量。
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/mathpress/rasterize"
)

// Config 是 serve 子命令的运行配置。
type Config struct {
	Addr           string
	Backend        string
	MutoolPath     string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	LogLevel       slog.Level
	LogFormat      string
	FontRegular    string
	FontBold       string
	CORSOrigins    []string
}

const (
	defaultAddr        = ":3000"
	defaultMaxUploadMB = 32
	defaultTimeout     = 60 * time.Second
)

// Load 解析 args（不含子命令名）。getenv 为 nil 时不读取环境变量。
func Load(args []string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	addr := defaultAddr
	if port := env("PORT", ""); port != "" {
		addr = ":" + port
	}
	addr = env("MATHPRESS_ADDR", addr)

	maxMB := int64(defaultMaxUploadMB)
	if raw := env("MATHPRESS_MAX_UPLOAD_MB", ""); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("MATHPRESS_MAX_UPLOAD_MB 无效: %q", raw)
		}
		maxMB = v
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		cfg       Config
		level     string
		origins   string
		maxUpload int64
	)
	fs.StringVar(&cfg.Addr, "addr", addr, "监听地址")
	fs.StringVar(&cfg.Backend, "backend", env("MATHPRESS_RASTER_BACKEND", rasterize.BackendFitz), "PDF 光栅化后端：fitz 或 mutool")
	fs.StringVar(&cfg.MutoolPath, "mutool", env("MUPDF_BIN", ""), "mutool 可执行文件路径")
	fs.Int64Var(&maxUpload, "max-upload-mb", maxMB, "上传 PDF 的大小上限（MB）")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", defaultTimeout, "单个请求的读写超时")
	fs.StringVar(&level, "log-level", env("MATHPRESS_LOG_LEVEL", "info"), "日志级别：debug/info/warn/error")
	fs.StringVar(&cfg.LogFormat, "log-format", env("MATHPRESS_LOG_FORMAT", "text"), "日志格式：text 或 json")
	fs.StringVar(&cfg.FontRegular, "font-regular", env("MATHPRESS_FONT_REGULAR", ""), "正文字体 TTF 路径")
	fs.StringVar(&cfg.FontBold, "font-bold", env("MATHPRESS_FONT_BOLD", ""), "粗体字体 TTF 路径")
	fs.StringVar(&origins, "cors-origins", env("MATHPRESS_CORS_ORIGINS", ""), "允许的跨域来源，逗号分隔；为空时允许全部")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("解析参数失败: %w", err)
	}

	switch cfg.Backend {
	case rasterize.BackendFitz, rasterize.BackendMutool:
	default:
		return Config{}, fmt.Errorf("未知的光栅化后端: %s", cfg.Backend)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("日志级别无效: %w", err)
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("日志格式无效: %s", cfg.LogFormat)
	}
	if maxUpload <= 0 {
		return Config{}, fmt.Errorf("上传大小上限无效: %d", maxUpload)
	}
	cfg.MaxUploadBytes = maxUpload << 20
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}

// NewLogger 按配置创建 slog 日志器。
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
