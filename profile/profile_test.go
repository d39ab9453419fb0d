package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediflux/assistant-api/entities"
)

const seedYAML = `profiles:
  session-alice:
    mutuelle: premium
    department: "75"
    city: paris
    known_conditions:
      - diabete_type2
  session-bob:
    mutuelle: basic
    department: "69"
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write seed: %v", err)
	}
	return path
}

func TestFetchFromSeed(t *testing.T) {
	store, err := NewStoreFromSeed(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("Failed to load seed: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Expected 2 profiles, got %d", store.Len())
	}

	p, ok := store.Fetch(context.Background(), "session-alice")
	if !ok {
		t.Fatal("Expected a profile for session-alice")
	}
	if p.Mutuelle != entities.MutuellePremium {
		t.Errorf("Expected premium mutuelle, got %s", p.Mutuelle)
	}
	if p.Department != "75" {
		t.Errorf("Expected department 75, got %s", p.Department)
	}
	if len(p.KnownConditions) != 1 || p.KnownConditions[0] != "diabete_type2" {
		t.Errorf("Expected known condition diabete_type2, got %v", p.KnownConditions)
	}
}

func TestFetchUnknownSession(t *testing.T) {
	store := NewStore()

	if _, ok := store.Fetch(context.Background(), "nobody"); ok {
		t.Error("Expected a miss for an unknown session")
	}
	if _, ok := store.Fetch(context.Background(), ""); ok {
		t.Error("Expected a miss for an empty session id")
	}
}

func TestNewStoreFromSeedEmptyPath(t *testing.T) {
	store, err := NewStoreFromSeed("")
	if err != nil {
		t.Fatalf("Expected no error for an empty path, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected an empty store, got %d profiles", store.Len())
	}
}

func TestNewStoreFromSeedRejectsBadLevel(t *testing.T) {
	path := writeSeed(t, "profiles:\n  s:\n    mutuelle: platinum\n")

	if _, err := NewStoreFromSeed(path); err == nil {
		t.Error("Expected an error for an unknown mutuelle level")
	}
}

func TestNewStoreFromSeedMissingFile(t *testing.T) {
	if _, err := NewStoreFromSeed("/nonexistent/profiles.yaml"); err == nil {
		t.Error("Expected an error for a missing seed file")
	}
}
