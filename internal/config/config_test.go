package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/floq/internal/persist"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" || cfg.MaxClients != 32 || cfg.MaxTopicLen != 50 || cfg.ReadBufferSize != 1024 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if mode, err := cfg.Persistence.ParseMode(); err != nil || mode != persist.ModeNone {
		t.Fatalf("default mode = %v, %v", mode, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return file
}

func TestLoadJSON(t *testing.T) {
	file := writeFile(t, "floq.json", `{"addr":":9000","maxClients":8,"persistence":{"mode":"timed","retentionSeconds":30}}`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.MaxClients != 8 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Persistence.Retention() != 30*time.Second {
		t.Fatalf("retention = %v", cfg.Persistence.Retention())
	}
	// untouched keys keep their defaults
	if cfg.MaxTopicLen != 50 || cfg.Persistence.Backend != BackendFile {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	file := writeFile(t, "floq.yaml", `
addr: ":7000"
writeTimeoutMs: 250
adminAddr: "127.0.0.1:9090"
persistence:
  mode: all
  backend: pebble
  fsync: true
`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.AdminAddr != "127.0.0.1:9090" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.WriteTimeout() != 250*time.Millisecond {
		t.Fatalf("write timeout = %v", cfg.WriteTimeout())
	}
	if cfg.Persistence.Backend != BackendPebble || !cfg.Persistence.Fsync {
		t.Fatalf("persistence = %+v", cfg.Persistence)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.yml", "addr: [unterminated")); err == nil {
		t.Fatalf("expected yaml parse error")
	}
	if _, err := Load(writeFile(t, "bad.json", "{")); err == nil {
		t.Fatalf("expected json parse error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("FLOQ_ADDR", ":6000")
	t.Setenv("FLOQ_MAX_CLIENTS", "4")
	t.Setenv("FLOQ_PERSISTENCE_MODE", "timed")
	t.Setenv("FLOQ_PERSISTENCE_RETENTION_SECONDS", "60")
	t.Setenv("FLOQ_PERSISTENCE_FSYNC", "true")
	t.Setenv("FLOQ_MAX_TOPIC_LEN", "not-a-number")
	FromEnv(&cfg)
	if cfg.Addr != ":6000" || cfg.MaxClients != 4 {
		t.Fatalf("env override: %+v", cfg)
	}
	if cfg.Persistence.Mode != "timed" || cfg.Persistence.RetentionSeconds != 60 || !cfg.Persistence.Fsync {
		t.Fatalf("env persistence: %+v", cfg.Persistence)
	}
	if cfg.MaxTopicLen != 50 {
		t.Fatalf("bad number should be ignored, got %d", cfg.MaxTopicLen)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "floq.yaml", "addr: \":7000\"\nmaxClients: 10\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Setenv("FLOQ_MAX_CLIENTS", "3")
	FromEnv(&cfg)
	if cfg.Addr != ":7000" || cfg.MaxClients != 3 {
		t.Fatalf("precedence: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"zero clients", func(c *Config) { c.MaxClients = 0 }, "maxClients"},
		{"tiny buffer", func(c *Config) { c.ReadBufferSize = 10 }, "readBufferSize"},
		{"unknown mode", func(c *Config) { c.Persistence.Mode = "sometimes" }, "unknown mode"},
		{"timed without retention", func(c *Config) { c.Persistence.Mode = "timed" }, "retentionSeconds"},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "s3" }, "backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
