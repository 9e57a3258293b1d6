package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logship/logship/pkg/log"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "info"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan Config, 1)
	w := NewWatcher(path, DefaultConfig(), nil, log.Noop{}, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to arm before the write.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`log_level = "debug"`), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.LogLevel != "debug" {
			t.Fatalf("reloaded log level = %q, want debug", cfg.LogLevel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reloaded")
	}
}

func TestWatcherReloadKeepsFlagAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "info"
format = "%(message)s"
sink_dir = "/from/file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvSinkDir, "/from/env")

	base := DefaultConfig()
	base.LogLevel = "debug"
	base.SinkDir = "/from/env"
	changed := map[string]bool{"log-level": true}

	reloaded := make(chan Config, 1)
	w := NewWatcher(path, base, changed, log.Noop{}, func(cfg Config) { reloaded <- cfg })
	w.reload()

	select {
	case cfg := <-reloaded:
		if cfg.LogLevel != "debug" {
			t.Fatalf("flag-set log level reverted to %q", cfg.LogLevel)
		}
		if cfg.SinkDir != "/from/env" {
			t.Fatalf("env-set sink dir reverted to %q", cfg.SinkDir)
		}
		if cfg.Format != "%(message)s" {
			t.Fatalf("file format not applied, got %q", cfg.Format)
		}
	case <-time.After(time.Second):
		t.Fatal("reload never fired")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "info"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloaded := make(chan Config, 1)
	w := NewWatcher(path, DefaultConfig(), nil, log.Noop{}, func(cfg Config) { reloaded <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write other file: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("watcher reloaded for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
