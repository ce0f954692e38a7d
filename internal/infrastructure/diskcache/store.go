package diskcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// envelope is the on-disk record shape. Timestamp is unix seconds at
// write time and drives TTL checks on load.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Store persists one JSON file per (kind, id) pair under a single
// directory. Writes can be detached; Close drains them.
type Store struct {
	dir    string
	logger *logging.Logger
	wg     conc.WaitGroup

	now func() time.Time
}

func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, crerr.Wrap(err, "create cache directory")
	}

	return &Store{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Store) path(kind, id string) string {
	sum := md5.Sum([]byte(id))
	return filepath.Join(s.dir, kind+"_"+hex.EncodeToString(sum[:])+".json")
}

// Save writes the value for (kind, id) synchronously.
func (s *Store) Save(kind, id string, value any) error {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return crerr.Wrapf(err, "marshal %s %q", kind, id)
	}

	blob, err := sonic.Marshal(envelope{
		Data:      raw,
		Timestamp: s.now().Unix(),
	})
	if err != nil {
		return crerr.Wrapf(err, "marshal envelope for %s %q", kind, id)
	}

	if err := os.WriteFile(s.path(kind, id), blob, 0o644); err != nil {
		return crerr.Wrapf(err, "write cache file for %s %q", kind, id)
	}
	return nil
}

// SaveAsync writes in the background. Failures are logged and dropped;
// the memory tier already holds the value.
func (s *Store) SaveAsync(kind, id string, value any) {
	s.wg.Go(func() {
		if err := s.Save(kind, id, value); err != nil {
			s.logger.Warn("background cache write failed",
				"kind", kind,
				"id", id,
				"error", err,
			)
		}
	})
}

// Load reads the stored value for (kind, id) into out. The second
// return is the write timestamp; ok is false when no usable file
// exists. A corrupt file is removed and treated as a miss.
func (s *Store) Load(kind, id string, out any) (int64, bool) {
	path := s.path(kind, id)
	blob, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	var env envelope
	if err := sonic.Unmarshal(blob, &env); err != nil {
		s.logger.Warn("corrupt cache file removed", "path", path, "error", err)
		_ = os.Remove(path)
		return 0, false
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		s.logger.Warn("corrupt cache payload removed", "path", path, "error", err)
		_ = os.Remove(path)
		return 0, false
	}

	return env.Timestamp, true
}

// Sweep removes cache files older than ttl and reports how many were
// deleted.
func (s *Store) Sweep(ttl time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("cache sweep failed", "dir", s.dir, "error", err)
		return 0
	}

	cutoff := s.now().Unix() - int64(ttl.Seconds())
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		blob, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var env envelope
		if err := sonic.Unmarshal(blob, &env); err != nil || env.Timestamp < cutoff {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Info("cache sweep complete", "removed", removed)
	}
	return removed
}

// Close waits for outstanding background writes.
func (s *Store) Close() {
	s.wg.Wait()
}
