// Package profile implements the read-only session profile store: mutuelle
// level, geographic defaults and known conditions by session id. The core
// never writes profiles; the in-memory implementation can be seeded from a
// YAML file for development and tests.
package profile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.ProfileStore = (*Store)(nil)

// Store is the in-memory profile store.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]entities.Profile
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]entities.Profile)}
}

// seedFile is the YAML shape of a profile seed: session ids mapped to
// profiles.
type seedFile struct {
	Profiles map[string]seedProfile `yaml:"profiles"`
}

type seedProfile struct {
	Mutuelle        string   `yaml:"mutuelle"`
	Department      string   `yaml:"department"`
	City            string   `yaml:"city"`
	KnownConditions []string `yaml:"known_conditions"`
}

// NewStoreFromSeed creates a store pre-filled from a YAML seed file. An
// empty path yields an empty store.
func NewStoreFromSeed(path string) (*Store, error) {
	store := NewStore()
	if path == "" {
		return store, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile seed %s: %w", path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parsing profile seed %s: %w", path, err)
	}

	for id, p := range seed.Profiles {
		level := entities.MutuelleLevel(p.Mutuelle)
		switch level {
		case entities.MutuelleNone, entities.MutuelleBasic, entities.MutuellePremium:
		default:
			return nil, fmt.Errorf("profile seed %s: unknown mutuelle level %q for session %q", path, p.Mutuelle, id)
		}
		store.put(id, entities.Profile{
			Mutuelle:        level,
			Department:      p.Department,
			City:            p.City,
			KnownConditions: p.KnownConditions,
		})
	}
	return store, nil
}

func (s *Store) put(sessionID string, p entities.Profile) {
	s.mu.Lock()
	s.profiles[sessionID] = p
	s.mu.Unlock()
}

// Fetch returns the profile stored for sessionID, false when none exists.
func (s *Store) Fetch(_ context.Context, sessionID string) (entities.Profile, bool) {
	if sessionID == "" {
		return entities.Profile{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[sessionID]
	return p, ok
}

// Len reports how many profiles are loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
