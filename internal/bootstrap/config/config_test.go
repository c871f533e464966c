package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  driver: sqlite\n  dsn: /tmp/cf.sqlite\nevents:\n  nats_url: nats://127.0.0.1:4222\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "/tmp/cf.sqlite" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Events.NATSURL != "nats://127.0.0.1:4222" {
		t.Fatalf("nats url = %q", cfg.Events.NATSURL)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log = %#v", cfg.Log)
	}
	if cfg.Events.SubjectPrefix != "claimflow.assessment.stage_changed" {
		t.Fatalf("subject prefix = %q", cfg.Events.SubjectPrefix)
	}
}

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults not applied: %#v", cfg)
	}
}

func TestLoadEnvOverridesDSN(t *testing.T) {
	t.Setenv("CF_DATABASE_DSN", "/tmp/from-env.sqlite")

	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.DSN != "/tmp/from-env.sqlite" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
}
