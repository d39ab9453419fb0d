// Package interfaces defines the core abstractions of the assistant to keep
// the pipeline stages testable and separately replaceable.
package interfaces

import (
	"context"
	"time"

	"github.com/mediflux/assistant-api/entities"
)

// DataStore is the thread-safe holder of the reference tables (conditions,
// medications, specialties, pathways, source scores) and their derived
// index. Implementations swap data atomically so readers never block.
type DataStore interface {
	GetReference() entities.Reference
	GetIndex() *entities.ReferenceIndex
	GetLastLoaded() time.Time
	IsReloading() bool
	GetServerStartTime() time.Time
	SetServerStartTime(t time.Time)

	UpdateReference(ref entities.Reference, idx *entities.ReferenceIndex)
	BeginReload() bool
	EndReload()
}

// Extractor resolves free text into normalized entities. It never fails;
// an empty slice means nothing matched.
type Extractor interface {
	Extract(text string) []entities.ExtractedEntity
}

// Classifier assigns exactly one intent to a query. It never returns an
// error: when rules and the LLM fallback both fail the result is
// general_query with confidence 0.
type Classifier interface {
	Classify(ctx context.Context, q entities.Query, ents []entities.ExtractedEntity) entities.Classification
}

// Orchestrator runs the full pipeline for one query and always produces a
// Result, degraded if necessary.
type Orchestrator interface {
	Resolve(ctx context.Context, q entities.Query) entities.Result
}

// Formatter converts a Result into the wire response. Pure, side-effect
// free.
type Formatter interface {
	Format(res entities.Result) entities.FormattedResponse
}

// MedicationSource is the public medication database boundary.
type MedicationSource interface {
	SearchByName(ctx context.Context, name string, limit int) ([]entities.MedicationRecord, error)
	SearchBySubstance(ctx context.Context, substance string, limit int) ([]entities.MedicationRecord, error)
	FetchByCIS(ctx context.Context, cis int) (entities.MedicationRecord, error)
}

// DirectorySource is the practitioner/organization directory boundary.
// Specialty and name searches are mutually exclusive strategies; callers
// pick one per call, never both. The upstream directory has no reliable
// address filter, so geographic narrowing is the orchestrator's post-fetch
// concern, not a client parameter.
type DirectorySource interface {
	PractitionersBySpecialty(ctx context.Context, roleCode string, limit int) ([]entities.PractitionerRecord, error)
	PractitionersByName(ctx context.Context, family, given string, limit int) ([]entities.PractitionerRecord, error)
	Organizations(ctx context.Context, name string, limit int) ([]entities.OrganizationRecord, error)
}

// StatsSource is the regional access-to-care statistics boundary.
type StatsSource interface {
	Indicators(ctx context.Context, department, specialty string) (entities.RegionalStatsRecord, error)
}

// LLMClient is the seam for the interpretation fallback. Implementations
// must validate the model output before returning it; callers treat any
// error as LLM failure and degrade.
type LLMClient interface {
	Interpret(ctx context.Context, text string) (entities.Interpretation, error)
}

// Cache is the TTL response cache collaborator. Implementations log their
// own failures; a miss and an internal error look the same to callers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Purge drops expired entries where the backend does not expire them
	// itself; it returns the number of entries removed.
	Purge(ctx context.Context) int
	Close() error
}

// ProfileStore is the read-only session profile collaborator.
type ProfileStore interface {
	Fetch(ctx context.Context, sessionID string) (entities.Profile, bool)
}

// HealthChecker reports service health for the HTTP endpoint.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
	CalculateNextReload() time.Time
}

// QueryValidator guards the service boundary against abusive input.
type QueryValidator interface {
	ValidateQueryText(text string) error
	ValidateSessionID(id string) error
	ValidateCIS(input string) (int, error)
}
