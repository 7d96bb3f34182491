package log

import (
	"fmt"
	"strings"
)

// Config declares a logger: level, format, outputs and bridge policies.
type Config struct {
	Level      string          `json:"level" yaml:"level"`
	Format     string          `json:"format" yaml:"format"`
	ShowCaller bool            `json:"showCaller" yaml:"showCaller"`
	Outputs    []OutputConfig  `json:"outputs" yaml:"outputs"`
	RedactKeys []string        `json:"redactKeys" yaml:"redactKeys"`
	Sampling   *SamplingConfig `json:"sampling" yaml:"sampling"`
}

// OutputConfig selects an output. Type is console, file or null; Path is
// required for file.
type OutputConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
}

// SamplingConfig logs the first Initial occurrences of a message and every
// Thereafter-th one after that.
type SamplingConfig struct {
	Initial    int `json:"initial" yaml:"initial"`
	Thereafter int `json:"thereafter" yaml:"thereafter"`
}

// ParseLevel parses debug|info|warn|error|fatal, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg. A nil cfg yields an info level text
// logger on stderr.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	opts := []LoggerOption{}

	level := InfoLevel
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	opts = append(opts, WithLevel(level))

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{ShowCaller: cfg.ShowCaller}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{ShowCaller: cfg.ShowCaller}))
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "", "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if oc.Path == "" {
				return nil, fmt.Errorf("log: file output requires a path")
			}
			fo, err := NewFileOutput(oc.Path)
			if err != nil {
				return nil, fmt.Errorf("log: open %s: %w", oc.Path, err)
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("log: unknown output type %q", oc.Type)
		}
	}

	if len(cfg.RedactKeys) > 0 {
		opts = append(opts, WithRedactions(cfg.RedactKeys...))
	}
	if cfg.Sampling != nil {
		opts = append(opts, WithSampling(cfg.Sampling.Initial, cfg.Sampling.Thereafter))
	}
	return NewLogger(opts...), nil
}
