// Package scheduler runs the recurring maintenance jobs of the assistant:
// the daily reference-table reload, periodic cache purges and a staleness
// watchdog over the last successful reload.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
)

// LoadFunc loads the reference tables and their derived index, usually
// data.Load. Injected so tests control reload outcomes.
type LoadFunc func(dir string) (entities.Reference, *entities.ReferenceIndex, error)

// Scheduler coordinates reference reloads and cache maintenance
type Scheduler struct {
	dataStore    interfaces.DataStore
	cache        interfaces.Cache
	load         LoadFunc
	referenceDir string
	scheduler    *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, cache interfaces.Cache, load LoadFunc, referenceDir string) *Scheduler {
	return &Scheduler{
		dataStore:    dataStore,
		cache:        cache,
		load:         load,
		referenceDir: referenceDir,
		scheduler:    gocron.NewScheduler(time.Local),
	}
}

// Start performs the initial reference load and schedules the recurring jobs
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.reloadReference(); err != nil {
		logging.Error("Failed to perform initial reference load", "error", err)
		return fmt.Errorf("initial reference load failed: %w", err)
	}

	// Reload the reference tables daily at 06:00
	_, err := s.scheduler.Every(1).Day().At("06:00").Do(func() {
		if err := s.reloadReference(); err != nil {
			logging.Error("Failed to reload reference tables", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule reference reloads", "error", err)
		return fmt.Errorf("failed to schedule reference reloads: %w", err)
	}

	// Sweep expired cache entries where the backend does not expire them
	_, err = s.scheduler.Every(15).Minutes().Do(func() {
		if removed := s.cache.Purge(context.Background()); removed > 0 {
			logging.Debug("Purged expired cache entries", "removed", removed)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule cache purges", "error", err)
		return fmt.Errorf("failed to schedule cache purges: %w", err)
	}

	s.scheduler.StartAsync()

	s.startStalenessMonitoring()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// reloadReference loads the reference tables and swaps them in atomically
func (s *Scheduler) reloadReference() error {
	// Prevent concurrent reloads
	if !s.dataStore.BeginReload() {
		logging.Info("Reload already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndReload()

	logging.Info("Starting reference reload", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	ref, idx, err := s.load(s.referenceDir)
	if err != nil {
		logging.Error("Failed to load reference tables", "error", err)
		return fmt.Errorf("failed to load reference tables: %w", err)
	}

	s.dataStore.UpdateReference(ref, idx)

	logging.Info("Reference reload completed",
		"duration", time.Since(start).String(),
		"conditions", len(ref.Conditions),
		"medications", len(ref.Medications),
		"specialties", len(ref.Specialties),
		"pathways", len(ref.Pathways))

	return nil
}

// startStalenessMonitoring warns when the daily reload has been missed
func (s *Scheduler) startStalenessMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			lastLoaded := s.dataStore.GetLastLoaded()
			if time.Since(lastLoaded) > 25*time.Hour {
				logging.Warn("Reference tables have not been reloaded in over 25 hours")
			}
		}
	}()
}
