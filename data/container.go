// Package data provides thread-safe storage for the assistant's reference
// tables. The Container swaps the whole Reference and its derived index
// atomically, so query-time readers never see a partially reloaded table.
package data

import (
	"sync/atomic"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
)

// Compile-time check to ensure Container implements DataStore
var _ interfaces.DataStore = (*Container)(nil)

// Container holds the reference tables with atomic pointers for
// zero-downtime reloads.
type Container struct {
	reference       atomic.Value // entities.Reference
	index           atomic.Value // *entities.ReferenceIndex
	lastLoaded      atomic.Value // time.Time
	reloading       atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewContainer creates a Container with empty tables.
func NewContainer() *Container {
	c := &Container{}
	c.reference.Store(entities.Reference{})
	c.index.Store(emptyIndex())
	c.lastLoaded.Store(time.Time{})
	c.serverStartTime.Store(time.Time{})
	return c
}

func emptyIndex() *entities.ReferenceIndex {
	return &entities.ReferenceIndex{
		Keywords:            make(map[string][]entities.KeywordTarget),
		Cities:              make(map[string]string),
		SpecialtyCode:       make(map[string]string),
		ConditionByName:     make(map[string]entities.ConditionEntry),
		MedicationByName:    make(map[string]entities.MedicationEntry),
		PathwayByName:       make(map[string]entities.PathwayTemplate),
		PathwayForCondition: make(map[string]string),
		SourceScore:         make(map[string]float64),
	}
}

// GetReference returns the current reference tables.
func (c *Container) GetReference() entities.Reference {
	if v := c.reference.Load(); v != nil {
		if ref, ok := v.(entities.Reference); ok {
			return ref
		}
	}

	logging.Warn("Reference tables are empty or invalid")
	return entities.Reference{}
}

// GetIndex returns the derived lookup index.
func (c *Container) GetIndex() *entities.ReferenceIndex {
	if v := c.index.Load(); v != nil {
		if idx, ok := v.(*entities.ReferenceIndex); ok && idx != nil {
			return idx
		}
	}

	logging.Warn("Reference index is empty or invalid")
	return emptyIndex()
}

// GetLastLoaded returns the timestamp of the last successful load.
func (c *Container) GetLastLoaded() time.Time {
	if v := c.lastLoaded.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last loaded value")
	return time.Time{}
}

// IsReloading returns true while a reload is in progress.
func (c *Container) IsReloading() bool {
	return c.reloading.Load()
}

// SetServerStartTime records when the service came up.
func (c *Container) SetServerStartTime(t time.Time) {
	c.serverStartTime.Store(t)
}

// GetServerStartTime returns when the service came up.
func (c *Container) GetServerStartTime() time.Time {
	if v := c.serverStartTime.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateReference atomically swaps the tables and their index.
func (c *Container) UpdateReference(ref entities.Reference, idx *entities.ReferenceIndex) {
	c.reference.Store(ref)
	c.index.Store(idx)
	c.lastLoaded.Store(time.Now())
}

// BeginReload marks the start of a reload. Returns false when another
// reload is already running.
func (c *Container) BeginReload() bool {
	return c.reloading.CompareAndSwap(false, true)
}

// EndReload marks the end of a reload.
func (c *Container) EndReload() {
	c.reloading.Store(false)
}
