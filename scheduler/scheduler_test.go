package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediflux/assistant-api/cache"
	"github.com/mediflux/assistant-api/data"
	"github.com/mediflux/assistant-api/entities"
)

func testReference() (entities.Reference, *entities.ReferenceIndex) {
	ref := entities.Reference{
		Conditions:  []entities.ConditionEntry{{Canonical: "mal de dos"}},
		Medications: []entities.MedicationEntry{{Canonical: "Doliprane"}},
		Specialties: []entities.SpecialtyEntry{{Canonical: "dentiste", Code: "86"}},
	}
	return ref, data.BuildIndex(ref)
}

// ===== Reference reload =====

func TestReloadReferenceSwapsTables(t *testing.T) {
	store := data.NewContainer()
	var calls atomic.Int32

	load := func(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
		calls.Add(1)
		ref, idx := testReference()
		return ref, idx, nil
	}

	s := NewScheduler(store, cache.NewMemory(), load, "")

	if err := s.reloadReference(); err != nil {
		t.Fatalf("Expected reload to succeed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 load call, got %d", calls.Load())
	}

	ref := store.GetReference()
	if len(ref.Conditions) != 1 || ref.Conditions[0].Canonical != "mal de dos" {
		t.Errorf("Expected the new tables swapped in, got %+v", ref.Conditions)
	}
	if store.GetLastLoaded().IsZero() {
		t.Error("Expected the load timestamp updated")
	}
	if store.IsReloading() {
		t.Error("Expected the reload flag cleared")
	}
}

func TestReloadReferenceKeepsTablesOnFailure(t *testing.T) {
	store := data.NewContainer()
	ref, idx := testReference()
	store.UpdateReference(ref, idx)

	load := func(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
		return entities.Reference{}, nil, errors.New("yaml broken")
	}

	s := NewScheduler(store, cache.NewMemory(), load, "")

	if err := s.reloadReference(); err == nil {
		t.Fatal("Expected the reload to report the load failure")
	}

	// The previous tables must survive a failed reload
	if got := store.GetReference(); len(got.Conditions) != 1 {
		t.Errorf("Expected the previous tables kept, got %+v", got.Conditions)
	}
	if store.IsReloading() {
		t.Error("Expected the reload flag cleared after failure")
	}
}

func TestReloadReferenceSkipsWhenAlreadyReloading(t *testing.T) {
	store := data.NewContainer()
	var calls atomic.Int32

	load := func(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
		calls.Add(1)
		ref, idx := testReference()
		return ref, idx, nil
	}

	s := NewScheduler(store, cache.NewMemory(), load, "")

	if !store.BeginReload() {
		t.Fatal("Expected to acquire the reload flag")
	}
	defer store.EndReload()

	if err := s.reloadReference(); err != nil {
		t.Fatalf("Expected a skipped reload to succeed silently, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no load call while another reload runs, got %d", calls.Load())
	}
}

// ===== Lifecycle =====

func TestStartPerformsInitialLoad(t *testing.T) {
	store := data.NewContainer()
	var calls atomic.Int32

	load := func(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
		calls.Add(1)
		ref, idx := testReference()
		return ref, idx, nil
	}

	s := NewScheduler(store, cache.NewMemory(), load, "")
	if err := s.Start(); err != nil {
		t.Fatalf("Expected Start to succeed, got %v", err)
	}
	defer s.Stop()

	if calls.Load() != 1 {
		t.Errorf("Expected the initial load on Start, got %d calls", calls.Load())
	}
	if len(store.GetReference().Medications) != 1 {
		t.Error("Expected the tables available after Start")
	}
}

func TestStartFailsWhenInitialLoadFails(t *testing.T) {
	store := data.NewContainer()

	load := func(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
		return entities.Reference{}, nil, errors.New("missing files")
	}

	s := NewScheduler(store, cache.NewMemory(), load, "")
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Expected Start to fail when the initial load fails")
	}
}

// ===== Cache purge =====

func TestCachePurgeRemovesExpiredEntries(t *testing.T) {
	mem := cache.NewMemory()
	ctx := context.Background()

	mem.Set(ctx, "assistant:bdpm:doliprane", []byte(`{}`), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if removed := mem.Purge(ctx); removed != 1 {
		t.Errorf("Expected 1 purged entry, got %d", removed)
	}
}
