package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Mutool 调用 MuPDF 命令行工具渲染，适用于无法启用 cgo 的部署。
type Mutool struct {
	Bin string
	DPI float64
}

// NewMutool 依次在 bin、$MUPDF_BIN 与 PATH 中查找 mutool。
func NewMutool(bin string) (*Mutool, error) {
	path, err := discover(bin)
	if err != nil {
		return nil, err
	}
	return &Mutool{Bin: path, DPI: DPI}, nil
}

func discover(explicit string) (string, error) {
	var candidates []string
	if s := strings.TrimSpace(explicit); s != "" {
		candidates = append(candidates, s)
	}
	if env := strings.TrimSpace(os.Getenv("MUPDF_BIN")); env != "" {
		candidates = append(candidates, env)
	}
	exe := "mutool"
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}
	candidates = append(candidates, exe)
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", errors.New("未找到 MuPDF 命令行工具 mutool，请安装 mupdf-tools 或设置 $MUPDF_BIN")
}

// Open 把数据写入临时文件，并通过 mutool info 读取页数。
func (m *Mutool) Open(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 内容为空", ErrDecode)
	}
	f, err := os.CreateTemp("", "mathpress-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	name := f.Name()
	cleanup := func() error { return os.Remove(name) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("写入临时文件失败: %w", err)
	}

	count, err := m.pageCount(ctx, name)
	if err != nil {
		cleanup()
		return nil, err
	}
	dpi := m.DPI
	if dpi <= 0 {
		dpi = DPI
	}
	render := func(ctx context.Context, i int) (image.Image, error) {
		return m.drawPage(ctx, name, i+1, dpi)
	}
	return NewDocument(count, render, cleanup), nil
}

func (m *Mutool) pageCount(ctx context.Context, path string) (int, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Bin, "info", path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: mutool info: %v: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) == 2 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				return 0, fmt.Errorf("%w: 无法解析页数 %q", ErrDecode, parts[1])
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: mutool info 输出中没有页数", ErrDecode)
}

func (m *Mutool) drawPage(ctx context.Context, path string, page int, dpi float64) (image.Image, error) {
	args := []string{"draw", "-q", "-r", strconv.FormatFloat(dpi, 'f', -1, 64), "-F", "png", "-o", "-", path, strconv.Itoa(page)}
	slog.DebugContext(ctx, "mutool draw", "bin", m.Bin, "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: mutool draw 第 %d 页: %v: %s", ErrDecode, page, err, strings.TrimSpace(stderr.String()))
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: 解码第 %d 页 PNG 失败: %v", ErrDecode, page, err)
	}
	return img, nil
}
