package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Addr != ":3000" || cfg.Backend != "fitz" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.RequestTimeout != 60*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 32<<20 || len(cfg.CORSOrigins) != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	cfg, err := Load(nil, envMap(map[string]string{
		"PORT":                     "8080",
		"MATHPRESS_RASTER_BACKEND": "mutool",
		"MUPDF_BIN":                "/opt/mupdf/mutool",
		"MATHPRESS_LOG_LEVEL":      "debug",
		"MATHPRESS_LOG_FORMAT":     "JSON",
		"MATHPRESS_MAX_UPLOAD_MB":  "4",
		"MATHPRESS_CORS_ORIGINS":   "https://a.example, https://b.example",
	}))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Backend != "mutool" || cfg.MutoolPath != "/opt/mupdf/mutool" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" || cfg.MaxUploadBytes != 4<<20 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins mismatch: %v", cfg.CORSOrigins)
	}
}

func TestLoadFlagsWinOverEnv(t *testing.T) {
	env := envMap(map[string]string{"PORT": "8080", "MATHPRESS_ADDR": "127.0.0.1:9000", "MATHPRESS_LOG_LEVEL": "debug"})
	cfg, err := Load([]string{"-addr", ":7000", "-log-level", "warn"}, env)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("flags should win: %+v", cfg)
	}
	cfg, err = Load(nil, env)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("MATHPRESS_ADDR should win over PORT: %s", cfg.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		args []string
		env  map[string]string
	}{
		{args: []string{"-backend", "ghostscript"}},
		{args: []string{"-log-level", "loud"}},
		{args: []string{"-log-format", "xml"}},
		{args: []string{"-max-upload-mb", "0"}},
		{args: []string{"-unknown"}},
		{env: map[string]string{"MATHPRESS_MAX_UPLOAD_MB": "lots"}},
	}
	for _, tc := range cases {
		if _, err := Load(tc.args, envMap(tc.env)); err == nil {
			t.Fatalf("expected error for args=%v env=%v", tc.args, tc.env)
		}
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(Config{LogFormat: "json", LogLevel: slog.LevelInfo}, &buf).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}
	buf.Reset()
	NewLogger(Config{LogFormat: "text", LogLevel: slog.LevelWarn}, &buf).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
}
