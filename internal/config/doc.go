// Package config loads broker configuration. Default() supplies the
// baseline, Load reads a JSON or YAML file over it, and FromEnv overlays
// FLOQ_* variables. Command-line flags are applied last by the caller.
//
// Example:
//
//	cfg, err := config.Load("/etc/floq.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, err := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Config: cfg})
package config
