package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	cfgpkg "github.com/rzbill/floq/internal/config"
	"github.com/rzbill/floq/internal/persist"
)

func configWith(mode, backend string) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Persistence.Mode = mode
	cfg.Persistence.Backend = backend
	cfg.Persistence.RetentionSeconds = 60
	return cfg
}

func TestOpenNoneCreatesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	rt, err := Open(Options{DataDir: dir, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if rt.Store().Mode() != persist.ModeNone {
		t.Fatalf("mode = %v", rt.Store().Mode())
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("data dir should not exist, stat err = %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenFileBackend(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{DataDir: dir, Config: configWith("all", cfgpkg.BackendFile)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := rt.Store().Append(context.Background(), "orders", []byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, LogsDir, "orders.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(b) != "hello\n" {
		t.Fatalf("log = %q", b)
	}
}

func TestOpenPebbleBackend(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, err := Open(Options{DataDir: t.TempDir(), Config: configWith("timed", cfgpkg.BackendPebble), Metrics: reg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.Store().(*persist.PebbleStore); !ok {
		t.Fatalf("store = %T want *persist.PebbleStore", rt.Store())
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	ctx := context.Background()
	if err := rt.Store().Append(ctx, "orders", []byte("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	var buf bytes.Buffer
	res, err := rt.Store().Replay(ctx, "orders", &buf)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Delivered != 1 || buf.String() != "hello\n" {
		t.Fatalf("replay = %+v %q", res, buf.String())
	}
	if n := testutil.CollectAndCount(reg, "floq_storage_batch_commit_duration_seconds"); n != 1 {
		t.Fatalf("storage metrics not registered: %d", n)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(Options{DataDir: t.TempDir(), Config: configWith("sometimes", cfgpkg.BackendFile)}); err == nil {
		t.Fatalf("expected mode error")
	}
	if _, err := Open(Options{DataDir: t.TempDir(), Config: configWith("all", "s3")}); err == nil {
		t.Fatalf("expected backend error")
	}
	if _, err := Open(Options{Config: configWith("all", cfgpkg.BackendFile)}); err == nil {
		t.Fatalf("expected data dir error")
	}
}

func TestHealthFailsWhenLogDirRemoved(t *testing.T) {
	dir := t.TempDir()
	rt, err := Open(Options{DataDir: dir, Config: configWith("all", cfgpkg.BackendFile)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if err := os.RemoveAll(filepath.Join(dir, LogsDir)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("expected health failure")
	}
}
