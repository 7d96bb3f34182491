package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/floq/internal/persist"
)

// Backend names accepted in Persistence.Backend.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Addr           string      `json:"addr" yaml:"addr"`
	MaxClients     int         `json:"maxClients" yaml:"maxClients"`
	MaxTopicLen    int         `json:"maxTopicLen" yaml:"maxTopicLen"`
	ReadBufferSize int         `json:"readBufferSize" yaml:"readBufferSize"`
	WriteTimeoutMs int         `json:"writeTimeoutMs" yaml:"writeTimeoutMs"`
	AdminAddr      string      `json:"adminAddr" yaml:"adminAddr"`
	GRPCAddr       string      `json:"grpcAddr" yaml:"grpcAddr"`
	Persistence    Persistence `json:"persistence" yaml:"persistence"`
}

// Persistence selects how published messages are kept for replay.
type Persistence struct {
	Mode             string `json:"mode" yaml:"mode"`
	RetentionSeconds int    `json:"retentionSeconds" yaml:"retentionSeconds"`
	Backend          string `json:"backend" yaml:"backend"`
	Fsync            bool   `json:"fsync" yaml:"fsync"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Addr:           ":8080",
		MaxClients:     32,
		MaxTopicLen:    50,
		ReadBufferSize: 1024,
		WriteTimeoutMs: 5000,
		Persistence: Persistence{
			Mode:    "none",
			Backend: BackendFile,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks that cfg describes a runnable broker.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.MaxClients < 1 {
		errs = append(errs, fmt.Errorf("maxClients must be positive, got %d", c.MaxClients))
	}
	if c.MaxTopicLen < 2 {
		errs = append(errs, fmt.Errorf("maxTopicLen must be at least 2, got %d", c.MaxTopicLen))
	}
	if c.ReadBufferSize < c.MaxTopicLen+5 {
		errs = append(errs, fmt.Errorf("readBufferSize %d cannot hold a full SUB command", c.ReadBufferSize))
	}
	if c.WriteTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("writeTimeoutMs must not be negative, got %d", c.WriteTimeoutMs))
	}
	mode, err := c.Persistence.ParseMode()
	if err != nil {
		errs = append(errs, err)
	}
	if mode == persist.ModeTimed && c.Persistence.RetentionSeconds < 1 {
		errs = append(errs, fmt.Errorf("persistence.retentionSeconds must be positive in timed mode, got %d", c.Persistence.RetentionSeconds))
	}
	switch c.Persistence.Backend {
	case BackendFile, BackendPebble:
	default:
		errs = append(errs, fmt.Errorf("persistence.backend must be %q or %q, got %q", BackendFile, BackendPebble, c.Persistence.Backend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// WriteTimeout is WriteTimeoutMs as a duration.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// ParseMode resolves Mode.
func (p Persistence) ParseMode() (persist.Mode, error) { return persist.ParseMode(p.Mode) }

// Retention is RetentionSeconds as a duration.
func (p Persistence) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}
