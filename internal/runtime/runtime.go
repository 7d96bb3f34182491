package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/floq/internal/config"
	"github.com/rzbill/floq/internal/metrics"
	"github.com/rzbill/floq/internal/persist"
	pebblestore "github.com/rzbill/floq/internal/storage/pebble"
	logpkg "github.com/rzbill/floq/pkg/log"
)

// Subdirectories of the data dir used by each backend.
const (
	LogsDir  = "logs"
	StoreDir = "store"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Config  cfgpkg.Config
	Logger  logpkg.Logger
	// Metrics receives storage metrics when the pebble backend is used. Optional.
	Metrics prometheus.Registerer
	// OnExpire is passed to the store. Optional.
	OnExpire func(topic string, n int)
	// Clock stamps timed entries. Optional.
	Clock clockwork.Clock
}

// Runtime owns the persistence backend selected by the configuration.
type Runtime struct {
	db    *pebblestore.DB
	store persist.Store
}

// Open creates the configured store. With persistence disabled nothing is
// created on disk.
func Open(opts Options) (*Runtime, error) {
	mode, err := opts.Config.Persistence.ParseMode()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{}
	if mode == persist.ModeNone {
		rt.store = persist.Nop()
		return rt, nil
	}
	if opts.DataDir == "" {
		return nil, errors.New("runtime: data dir is required when persistence is enabled")
	}
	popts := persist.Options{
		Mode:      mode,
		Retention: opts.Config.Persistence.Retention(),
		Fsync:     opts.Config.Persistence.Fsync,
		Clock:     opts.Clock,
		OnExpire:  opts.OnExpire,
	}

	switch opts.Config.Persistence.Backend {
	case cfgpkg.BackendPebble:
		po := pebblestore.Options{
			DataDir: filepath.Join(opts.DataDir, StoreDir),
			Fsync:   pebblestore.FsyncModeInterval,
		}
		if opts.Config.Persistence.Fsync {
			po.Fsync = pebblestore.FsyncModeAlways
		}
		if opts.Metrics != nil {
			po.Metrics = metrics.NewStorageMetrics(opts.Metrics)
		}
		if opts.Logger != nil {
			po.Logger = opts.Logger.With(logpkg.Component("pebble"))
		}
		db, err := pebblestore.Open(po)
		if err != nil {
			return nil, err
		}
		store, err := persist.NewPebbleStore(db, popts)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		rt.db, rt.store = db, store
	case cfgpkg.BackendFile, "":
		store, err := persist.NewFileStore(filepath.Join(opts.DataDir, LogsDir), popts)
		if err != nil {
			return nil, err
		}
		rt.store = store
	default:
		return nil, fmt.Errorf("runtime: unknown backend %q", opts.Config.Persistence.Backend)
	}
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	var err error
	if r.store != nil {
		err = r.store.Close()
	}
	if r.db != nil {
		err = errors.Join(err, r.db.Close())
	}
	return err
}

// CheckHealth reports whether the store is still usable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.store == nil {
		return errors.New("store not open")
	}
	if r.db != nil {
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		return it.Close()
	}
	if fs, ok := r.store.(*persist.FileStore); ok {
		info, err := os.Stat(fs.Dir())
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", fs.Dir())
		}
	}
	return nil
}

// Store returns the persistence backend.
func (r *Runtime) Store() persist.Store { return r.store }

