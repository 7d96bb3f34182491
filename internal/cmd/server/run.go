package serverrun

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rzbill/floq/internal/broker"
	cfgpkg "github.com/rzbill/floq/internal/config"
	"github.com/rzbill/floq/internal/metrics"
	"github.com/rzbill/floq/internal/runtime"
	grpcserver "github.com/rzbill/floq/internal/server/grpc"
	httpserver "github.com/rzbill/floq/internal/server/http"
	logpkg "github.com/rzbill/floq/pkg/log"
)

const healthInterval = 5 * time.Second

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = os.Getenv

type Options struct {
	DataDir string
	Config  cfgpkg.Config
	// LogLevel and LogFormat override FLOQ_LOG_LEVEL and FLOQ_LOG_FORMAT.
	LogLevel  string
	LogFormat string
	// Logger replaces the process logger built from the level and format.
	Logger logpkg.Logger
	// Ready is called with the broker's address once it accepts connections.
	Ready func(addr net.Addr)
}

// Run starts the broker and the optional admin and gRPC servers, and blocks
// until ctx is cancelled or the broker fails.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	logger := opts.Logger
	if logger == nil {
		logger = newProcessLogger(opts.LogLevel, opts.LogFormat)
	}
	restore := logpkg.RedirectStdLog(logger)
	defer restore()

	reg := metrics.NewRegistry()
	bm := metrics.NewBrokerMetrics(reg)
	rt, err := runtime.Open(runtime.Options{
		DataDir:  opts.DataDir,
		Config:   cfg,
		Logger:   logger,
		Metrics:  reg,
		OnExpire: bm.ObserveExpired,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	b := broker.New(broker.Options{
		MaxClients:   cfg.MaxClients,
		BufferSize:   cfg.ReadBufferSize,
		MaxTopicLen:  cfg.MaxTopicLen,
		WriteTimeout: cfg.WriteTimeout(),
		Store:        rt.Store(),
		Logger:       logger,
		Metrics:      bm,
	})

	logger.Info("starting floq",
		logpkg.Str("addr", cfg.Addr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("persistence", rt.Store().Mode().String()),
		logpkg.Str("backend", cfg.Persistence.Backend),
		logpkg.Str("admin", cfg.AdminAddr),
		logpkg.Str("grpc", cfg.GRPCAddr),
	)

	runCtx, cancel := context.WithCancel(sctx)
	defer cancel()

	brokerErr := make(chan error, 1)
	go func() { brokerErr <- b.ListenAndServe(runCtx, cfg.Addr) }()

	var wg sync.WaitGroup
	if cfg.AdminAddr != "" {
		hsrv := httpserver.New(b, rt, reg, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(runCtx, cfg.AdminAddr); err != nil && runCtx.Err() == nil {
				logger.Error("admin server failed", logpkg.Err(err))
			}
		}()
	}
	if cfg.GRPCAddr != "" {
		gsrv := grpcserver.New(logger)
		wg.Add(2)
		go func() {
			defer wg.Done()
			gsrv.Watch(runCtx, nil, healthInterval, func(ctx context.Context) error {
				if !b.Running() {
					return broker.ErrClosed
				}
				return rt.CheckHealth(ctx)
			})
		}()
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(runCtx, cfg.GRPCAddr); err != nil && runCtx.Err() == nil {
				logger.Error("grpc server failed", logpkg.Err(err))
			}
		}()
	}

	var runErr error
	select {
	case <-b.Ready():
		if opts.Ready != nil {
			opts.Ready(b.Addr())
		}
		runErr = <-brokerErr
	case runErr = <-brokerErr:
	}
	cancel()
	wg.Wait()
	if runErr != nil {
		logger.Error("floq stopped", logpkg.Err(runErr))
		return runErr
	}
	logger.Info("floq stopped")
	return nil
}

// newProcessLogger builds the process-wide logger from explicit values,
// then FLOQ_LOG_LEVEL/FLOQ_LOG_FORMAT, then info/text.
func newProcessLogger(level, format string) logpkg.Logger {
	if level == "" {
		level = getenvDefault("FLOQ_LOG_LEVEL", "info")
	}
	if format == "" {
		format = getenvDefault("FLOQ_LOG_FORMAT", "text")
	}
	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: level, Format: format})
	if err == nil {
		return logger
	}
	lvl := logpkg.InfoLevel
	if l, e := logpkg.ParseLevel(level); e == nil {
		lvl = l
	}
	logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	logger.Warn("invalid log configuration; using text output", logpkg.Err(err))
	return logger
}
