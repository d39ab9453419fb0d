// Package orchestrator runs the full pipeline for one query: extract
// entities, classify the intent, dispatch to the external sources the
// intent needs, merge their responses and build a single Result with
// provenance. Every failure mode degrades into a confidence-reduced Result;
// Resolve never returns an error.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/metrics"
)

// Compile-time check
var _ interfaces.Orchestrator = (*Orchestrator)(nil)

// Deps are the collaborators behind one orchestrator. All of them are
// required except Profiles, Stats and Cache, which may be nil-equivalent
// no-op implementations in tests.
type Deps struct {
	Store       interfaces.DataStore
	Extractor   interfaces.Extractor
	Classifier  interfaces.Classifier
	Medications interfaces.MedicationSource
	Directory   interfaces.DirectorySource
	Stats       interfaces.StatsSource
	Profiles    interfaces.ProfileStore
	Cache       interfaces.Cache
}

// Config tunes timeouts, caching and result sizing.
type Config struct {
	// SourceTimeout bounds each external call attempt.
	SourceTimeout time.Duration
	// CacheTTL is how long source responses stay reusable.
	CacheTTL time.Duration
	// ResultLimit caps the records fetched per source.
	ResultLimit int
}

// Orchestrator resolves queries against the configured sources.
type Orchestrator struct {
	store       interfaces.DataStore
	extractor   interfaces.Extractor
	classifier  interfaces.Classifier
	medications interfaces.MedicationSource
	directory   interfaces.DirectorySource
	stats       interfaces.StatsSource
	profiles    interfaces.ProfileStore
	cache       interfaces.Cache

	timeout  time.Duration
	cacheTTL time.Duration
	limit    int
}

// New creates an orchestrator. Zero config values fall back to 5s timeout,
// 30m TTL and 10 records.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 10
	}
	return &Orchestrator{
		store:       deps.Store,
		extractor:   deps.Extractor,
		classifier:  deps.Classifier,
		medications: deps.Medications,
		directory:   deps.Directory,
		stats:       deps.Stats,
		profiles:    deps.Profiles,
		cache:       deps.Cache,
		timeout:     cfg.SourceTimeout,
		cacheTTL:    cfg.CacheTTL,
		limit:       cfg.ResultLimit,
	}
}

// Resolve runs the pipeline for one query and always produces a Result.
func (o *Orchestrator) Resolve(ctx context.Context, q entities.Query) entities.Result {
	if strings.TrimSpace(q.Text) == "" {
		return entities.Result{
			Intent:        entities.IntentGeneralQuery,
			Confidence:    0,
			NarrativeText: "Je n'ai pas compris votre demande. Pouvez-vous la reformuler ? Par exemple : « Combien coûte le Doliprane ? » ou « Trouver un dentiste à Lyon ».",
			Clarification: true,
		}
	}

	q.Profile = o.resolveProfile(ctx, q)
	ents := o.extractor.Extract(q.Text)
	cls := o.classifier.Classify(ctx, q, ents)
	metrics.RecordQuery(string(cls.Intent), string(cls.Method))

	var res entities.Result
	switch cls.Intent {
	case entities.IntentMedicationSearch:
		res = o.medicationSearch(ctx, cls, ents)
	case entities.IntentReimbursementSimulation:
		res = o.reimbursementSimulation(ctx, q, cls, ents)
	case entities.IntentPractitionerSearch:
		res = o.practitionerSearch(ctx, q, cls, ents)
	case entities.IntentOrganizationSearch:
		res = o.organizationSearch(ctx, q, cls, ents)
	case entities.IntentCarePathway:
		res = o.carePathway(ctx, q, cls, ents)
	case entities.IntentDocumentAnalysis:
		res = o.documentAnalysis(cls)
	default:
		res = o.generalQuery(cls)
	}

	res.Intent = cls.Intent
	res.EntitiesUsed = ents
	return res
}

// resolveProfile completes the query profile from the session store when the
// request itself carried none.
func (o *Orchestrator) resolveProfile(ctx context.Context, q entities.Query) entities.Profile {
	if !q.Profile.IsZero() || q.SessionID == "" || o.profiles == nil {
		return q.Profile
	}
	if p, ok := o.profiles.Fetch(ctx, q.SessionID); ok {
		return p
	}
	return q.Profile
}
