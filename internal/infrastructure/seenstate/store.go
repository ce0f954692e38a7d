package seenstate

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

// Store tracks which match ids each rule has already alerted on. State
// lives in one <rule>.seen.json file per rule and only ever grows.
type Store struct {
	dir    string
	logger *logging.Logger

	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, crerr.Wrap(err, "create seen-state directory")
	}

	return &Store{
		dir:    dir,
		logger: logger,
		seen:   make(map[string]map[string]struct{}),
	}, nil
}

func (s *Store) path(rule string) string {
	return filepath.Join(s.dir, rule+".seen.json")
}

// load reads a rule's file into memory. Missing or corrupt files load
// as the empty set. Caller holds the lock.
func (s *Store) load(rule string) map[string]struct{} {
	if ids, ok := s.seen[rule]; ok {
		return ids
	}

	ids := make(map[string]struct{})
	s.seen[rule] = ids

	blob, err := os.ReadFile(s.path(rule))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("seen-state read failed, starting empty", "rule", rule, "error", err)
		}
		return ids
	}

	var list []string
	if err := sonic.Unmarshal(blob, &list); err != nil {
		s.logger.Warn("seen-state file corrupt, starting empty", "rule", rule, "error", err)
		return ids
	}

	for _, id := range list {
		ids[id] = struct{}{}
	}
	return ids
}

// Seen reports whether the rule already fired for the match id.
func (s *Store) Seen(rule, matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.load(rule)[matchID]
	return ok
}

// MarkFired records the id and rewrites the rule's file synchronously,
// so a crash after dispatch cannot replay the alert.
func (s *Store) MarkFired(rule, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.load(rule)
	if _, ok := ids[matchID]; ok {
		return nil
	}
	ids[matchID] = struct{}{}

	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	blob, err := sonic.Marshal(list)
	if err != nil {
		return crerr.Wrapf(err, "marshal seen ids for rule %q", rule)
	}
	if err := os.WriteFile(s.path(rule), blob, 0o644); err != nil {
		return crerr.Wrapf(err, "write seen-state file for rule %q", rule)
	}
	return nil
}

// Count reports how many ids a rule has recorded.
func (s *Store) Count(rule string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(rule))
}
