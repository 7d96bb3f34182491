package persist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facebookgo/atomicfile"
)

const logExt = ".log"

// FileStore keeps one text log per topic under a directory.
type FileStore struct {
	dir  string
	opts Options
}

// NewFileStore returns a FileStore rooted at dir, creating dir unless the
// mode is ModeNone.
func NewFileStore(dir string, opts Options) (*FileStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Mode != ModeNone {
		if dir == "" {
			return nil, errors.New("persist: log directory is required")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persist: create %s: %w", dir, err)
		}
	}
	return &FileStore{dir: dir, opts: opts}, nil
}

func (s *FileStore) Mode() Mode { return s.opts.Mode }

// Dir is the directory holding the topic logs.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the log file for topic. The topic is path-escaped so it
// always names a file directly inside Dir.
func (s *FileStore) Path(topic string) string {
	return filepath.Join(s.dir, url.PathEscape(topic)+logExt)
}

// Append writes one entry to the topic log.
func (s *FileStore) Append(ctx context.Context, topic string, message []byte) error {
	if s.opts.Mode == ModeNone {
		return nil
	}
	if err := checkTopic(topic); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(topic)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w", path, err)
	}
	entry := FormatEntry(s.opts.Mode == ModeTimed, s.opts.Clock.Now().Unix(), message)
	if _, err := f.Write(entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("persist: append %s: %w", path, err)
	}
	if s.opts.Fsync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("persist: sync %s: %w", path, err)
		}
	}
	return f.Close()
}

// Replay streams the topic log to w. In timed mode the log is rewritten
// without expired entries through a temporary file renamed over the
// original, so a crash leaves either the old or the new log.
func (s *FileStore) Replay(ctx context.Context, topic string, w io.Writer) (ReplayResult, error) {
	if s.opts.Mode == ModeNone {
		return ReplayResult{}, nil
	}
	if err := checkTopic(topic); err != nil {
		return ReplayResult{}, err
	}
	path := s.Path(topic)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ReplayResult{}, nil
	}
	if err != nil {
		return ReplayResult{}, fmt.Errorf("persist: open %s: %w", path, err)
	}
	defer f.Close()

	if s.opts.Mode == ModeAll {
		return s.replayAll(ctx, f, w)
	}
	res, err := s.replayTimed(ctx, path, f, w)
	if res.Expired > 0 {
		s.opts.OnExpire(topic, res.Expired)
	}
	return res, err
}

func (s *FileStore) replayAll(ctx context.Context, r io.Reader, w io.Writer) (ReplayResult, error) {
	var res ReplayResult
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line, rerr := br.ReadBytes('\n')
		if len(line) > 0 {
			if _, err := w.Write(line); err != nil {
				return res, err
			}
			res.Delivered++
		}
		if rerr == io.EOF {
			return res, nil
		}
		if rerr != nil {
			return res, rerr
		}
	}
}

func (s *FileStore) replayTimed(ctx context.Context, path string, r io.Reader, w io.Writer) (res ReplayResult, err error) {
	tmp, err := atomicfile.New(path, 0o644)
	if err != nil {
		return res, fmt.Errorf("persist: temp file for %s: %w", path, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Abort()
		}
	}()

	now := s.opts.Clock.Now().Unix()
	retention := s.opts.retentionSeconds()
	bw := bufio.NewWriter(tmp)
	br := bufio.NewReader(r)
	var deliverErr error
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line, rerr := br.ReadBytes('\n')
		if len(line) > 0 {
			ts, msg := ParseEntry(line)
			if !expired(now, ts, retention) {
				if deliverErr == nil {
					if _, werr := w.Write(msg); werr != nil {
						deliverErr = werr
					} else {
						res.Delivered++
					}
				}
				if _, werr := bw.Write(FormatEntry(true, ts, msg)); werr != nil {
					return res, fmt.Errorf("persist: rewrite %s: %w", path, werr)
				}
			} else {
				res.Expired++
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return res, fmt.Errorf("persist: read %s: %w", path, rerr)
		}
	}

	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("persist: rewrite %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return res, fmt.Errorf("persist: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return res, fmt.Errorf("persist: replace %s: %w", path, err)
	}
	committed = true
	return res, deliverErr
}

// Topics lists topics with a log file in Dir.
func (s *FileStore) Topics() ([]string, error) {
	if s.opts.Mode == ModeNone {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, logExt) {
			continue
		}
		topic, err := url.PathUnescape(strings.TrimSuffix(name, logExt))
		if err != nil || topic == "" {
			continue
		}
		out = append(out, topic)
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
