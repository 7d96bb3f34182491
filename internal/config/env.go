package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FLOQ_* environment variables onto cfg. Unparsable
// numbers and booleans are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLOQ_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FLOQ_MAX_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxClients = n
		}
	}
	if v := os.Getenv("FLOQ_MAX_TOPIC_LEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTopicLen = n
		}
	}
	if v := os.Getenv("FLOQ_READ_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReadBufferSize = n
		}
	}
	if v := os.Getenv("FLOQ_WRITE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WriteTimeoutMs = n
		}
	}
	if v := os.Getenv("FLOQ_ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}
	if v := os.Getenv("FLOQ_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("FLOQ_PERSISTENCE_MODE"); v != "" {
		cfg.Persistence.Mode = v
	}
	if v := os.Getenv("FLOQ_PERSISTENCE_RETENTION_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Persistence.RetentionSeconds = n
		}
	}
	if v := os.Getenv("FLOQ_PERSISTENCE_BACKEND"); v != "" {
		cfg.Persistence.Backend = v
	}
	if v := os.Getenv("FLOQ_PERSISTENCE_FSYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Persistence.Fsync = b
		}
	}
}
