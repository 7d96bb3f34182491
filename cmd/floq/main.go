package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/floq/internal/cmd/client"
	serverrun "github.com/rzbill/floq/internal/cmd/server"
	cfgpkg "github.com/rzbill/floq/internal/config"
	"github.com/rzbill/floq/internal/persist"
)

func main() {
	rootCmd := newRootCommand()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "floq",
		Short: "floq topic broker",
		Long:  "floq is a small topic publish/subscribe broker with optional message persistence.",
	}
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverCmd.AddCommand(newServerStartCommand())
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientcmd.NewPubCommand(clientcmd.AddrFromEnv))
	rootCmd.AddCommand(clientcmd.NewSubCommand(clientcmd.AddrFromEnv))
	return rootCmd
}

func newServerStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the broker",
		Aliases: []string{"run"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(cmd)
			if err != nil {
				return err
			}
			dataDir, _ := cmd.Flags().GetString("data-dir")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			if err := serverrun.Run(cmd.Context(), serverrun.Options{
				DataDir:   dataDir,
				Config:    cfg,
				LogLevel:  logLevel,
				LogFormat: logFormat,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.String("config", "", "Config file (.json, .yaml or .yml)")
	f.String("addr", "", "Broker listen address (default :8080)")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.Bool("persist-all", false, "Persist every message and replay full history to new subscribers")
	f.Int("persist-timed", 0, "Persist messages and replay only those newer than this many seconds")
	f.String("backend", "", "Persistence backend: file|pebble (default file)")
	f.Bool("fsync", false, "Sync every persisted message to disk")
	f.Int("max-clients", 0, "Maximum simultaneous connections (default 32)")
	f.String("admin-addr", "", "Admin HTTP address for /v1/healthz, /v1/stats and /metrics (disabled if empty)")
	f.String("grpc", "", "gRPC health listen address (disabled if empty)")
	f.String("log-level", "", "Log level: debug|info|warn|error (default $FLOQ_LOG_LEVEL or info)")
	f.String("log-format", "", "Log format: text|json (default $FLOQ_LOG_FORMAT or text)")
	cmd.MarkFlagsMutuallyExclusive("persist-all", "persist-timed")
	return cmd
}

// loadServerConfig layers defaults, the config file, FLOQ_* variables and
// explicitly set flags, in that order.
func loadServerConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)

	if f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	}
	if f.Changed("persist-all") {
		if all, _ := f.GetBool("persist-all"); all {
			cfg.Persistence.Mode = persist.ModeAll.String()
		}
	}
	if f.Changed("persist-timed") {
		secs, _ := f.GetInt("persist-timed")
		if secs <= 0 {
			return cfgpkg.Config{}, errors.New("--persist-timed requires a positive number of seconds")
		}
		cfg.Persistence.Mode = persist.ModeTimed.String()
		cfg.Persistence.RetentionSeconds = secs
	}
	if f.Changed("backend") {
		cfg.Persistence.Backend, _ = f.GetString("backend")
	}
	if f.Changed("fsync") {
		cfg.Persistence.Fsync, _ = f.GetBool("fsync")
	}
	if f.Changed("max-clients") {
		cfg.MaxClients, _ = f.GetInt("max-clients")
	}
	if f.Changed("admin-addr") {
		cfg.AdminAddr, _ = f.GetString("admin-addr")
	}
	if f.Changed("grpc") {
		cfg.GRPCAddr, _ = f.GetString("grpc")
	}
	return cfg, cfg.Validate()
}
