// Package tokens owns the per-account credential lifecycle: a durable
// tokens.json store and the manager that decides when a refresh is due.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"stork_verifier/models"
)

// Store is the durable username -> token bundle mapping, persisted as a
// single JSON object. An unreadable or corrupt file is treated as an
// empty map and rebuilt on the next save.
type Store struct {
	path string
	log  *zap.SugaredLogger
	mu   sync.Mutex
}

func NewStore(path string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{path: path, log: log}
}

// Load reads the whole map. Never fails: corruption degrades to empty.
func (s *Store) Load() map[string]models.TokenBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() map[string]models.TokenBundle {
	all := make(map[string]models.TokenBundle)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnw("Token store unreadable, starting empty", "path", s.path, "error", err)
		}
		return all
	}
	if len(data) == 0 {
		return all
	}
	if err := json.Unmarshal(data, &all); err != nil {
		s.log.Warnw("Token store corrupt, starting empty", "path", s.path, "error", err)
		return make(map[string]models.TokenBundle)
	}
	return all
}

// Get returns the stored bundle for username, if any.
func (s *Store) Get(username string) (models.TokenBundle, bool) {
	b, ok := s.Load()[username]
	return b, ok
}

// Save writes one account's bundle through to disk, keeping the other
// accounts' entries intact.
func (s *Store) Save(username string, bundle models.TokenBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked()
	all[username] = bundle

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}
