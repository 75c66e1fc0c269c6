package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/mathpress/config"
	"github.com/ByLCY/mathpress/convert"
	"github.com/ByLCY/mathpress/layout"
	"github.com/ByLCY/mathpress/rasterize"
	canvasrenderer "github.com/ByLCY/mathpress/renderer/canvas"
	"github.com/ByLCY/mathpress/server"
)

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		if err := serve(args); err != nil {
			log.Fatalf("启动服务失败: %v", err)
		}
	case "render":
		if err := render(args); err != nil {
			log.Fatalf("渲染失败: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知子命令 %q\n用法: mathpress [serve|render] [flags]\n", cmd)
		os.Exit(2)
	}
}

func serve(args []string) error {
	cfg, err := config.Load(args, os.Getenv)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg, os.Stderr)

	r, err := newRenderer(cfg.FontRegular, cfg.FontBold)
	if err != nil {
		return err
	}
	raster, err := rasterize.New(cfg.Backend, cfg.MutoolPath)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Options{
		Converter:      convert.New(r),
		Rasterizer:     raster,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("starting", "backend", cfg.Backend, "timeout", cfg.RequestTimeout)
	return srv.Run(ctx, cfg.Addr, cfg.RequestTimeout)
}

func render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	input := fs.String("in", "", "输入文本文件路径，留空则读取标准输入")
	output := fs.String("out", "output/math-formulas.pdf", "输出路径，扩展名决定格式：.pdf/.jpg/.svg")
	debug := fs.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := fs.String("data", "", "绑定到文本的 JSON 数据")
	fontRegular := fs.String("font-regular", os.Getenv("MATHPRESS_FONT_REGULAR"), "正文字体 TTF 路径")
	fontBold := fs.String("font-bold", os.Getenv("MATHPRESS_FONT_BOLD"), "粗体字体 TTF 路径")
	fs.Parse(args)

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			return fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}

	r, err := newRenderer(*fontRegular, *fontBold)
	if err != nil {
		return err
	}
	if err := run(*input, *output, *debug, inputData, convert.New(r)); err != nil {
		return err
	}
	fmt.Printf("已生成：%s\n", *output)
	return nil
}

// run 串联读取、布局与渲染。
func run(inputPath, outputPath, debugPath string, data any, conv *convert.Converter) error {
	text, err := readInput(inputPath)
	if err != nil {
		return err
	}

	var result *layout.Result
	format := formatFor(outputPath)
	switch format {
	case convert.FormatPDF:
		result, err = conv.DocumentLayout(text, layout.DocumentOptions{}, data)
	case convert.FormatJPEG, convert.FormatSVG:
		result, err = conv.ImageLayout(text, layout.ImageOptions{}, data)
	default:
		return fmt.Errorf("不支持的输出扩展名: %s", filepath.Ext(outputPath))
	}
	if err != nil {
		return err
	}

	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := conv.Encode(result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func readInput(path string) (string, error) {
	if path == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("无法打开文本文件 %s: %w", path, err)
	}
	return string(b), nil
}

func formatFor(path string) convert.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return convert.FormatPDF
	case ".jpg", ".jpeg":
		return convert.FormatJPEG
	case ".svg":
		return convert.FormatSVG
	default:
		return ""
	}
}

func newRenderer(regular, bold string) (*canvasrenderer.Renderer, error) {
	fonts := map[string]canvasrenderer.Resource{}
	if regular != "" {
		fonts[layout.FontBody] = canvasrenderer.Resource{Path: regular}
	}
	if bold != "" {
		fonts[layout.FontBold] = canvasrenderer.Resource{Path: bold}
	}
	r, err := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Fonts: fonts})
	if err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}
	return r, nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
