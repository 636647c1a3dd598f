package config_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formvalidator/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &config.Config{
		Server: config.ServerConfig{Addr: ":8080", ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second},
		Log:    config.LogConfig{Level: "info", Format: "text"},
		Forms:  config.FormsConfig{Dir: "forms"},
		I18n:   config.I18nConfig{Locale: "en"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FORMVALIDATE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("FORMVALIDATE_LOG_FORMAT", "json")
	t.Setenv("FORMVALIDATE_I18N_LOCALE", "fr")

	cfg, err := config.Load(config.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Log.Format != "json" || cfg.I18n.Locale != "fr" {
		t.Fatalf("expected env overrides, got %#v", cfg)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formvalidate.yaml")
	body := "log:\n  level: debug\nforms:\n  dir: /srv/forms\n  openapi: api.yaml\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	v := config.New()
	v.Set("config", path)
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Forms.Dir != "/srv/forms" || cfg.Forms.OpenAPI != "api.yaml" {
		t.Fatalf("expected file values, got %#v", cfg)
	}

	v = config.New()
	v.Set("config", filepath.Join(dir, "missing.yaml"))
	if _, err := config.Load(v); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"level":  {"log.level", "loud"},
		"format": {"log.format", "xml"},
		"addr":   {"server.addr", " "},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			v := config.New()
			v.Set(kv[0], kv[1])
			if _, err := config.Load(v); !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("dropped")
	logger.Warn("kept", "form", "signup")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "kept" || record["form"] != "signup" {
		t.Fatalf("unexpected record: %v", record)
	}

	buf.Reset()
	config.NewLogger(config.LogConfig{Level: "bogus"}, &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info fallback level, got %q", buf.String())
	}
}
