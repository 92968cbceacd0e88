package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("http_addr: \":9000\"\ngrpc_addr: \":9001\"\nrate_limit_window: 1m\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHATRELAY_GRPC_ADDR", ":9500")
	t.Setenv("CHATRELAY_JWT_REQUIRED", "true")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("file value not applied: %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":9500" {
		t.Fatalf("env did not override file: %q", cfg.GRPCAddr)
	}
	if !cfg.JWTRequired {
		t.Fatalf("env bool not applied")
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("duration not parsed: %v", cfg.RateLimitWindow)
	}
	if cfg.SessionBuffer != Default().SessionBuffer {
		t.Fatalf("default lost: %d", cfg.SessionBuffer)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{HTTPAddr: ":1", LogLevel: "debug"})

	if cfg.HTTPAddr != ":1" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.GRPCAddr != Default().GRPCAddr {
		t.Fatalf("zero value overwrote default")
	}
}
