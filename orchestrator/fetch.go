package orchestrator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mediflux/assistant-api/cache"
	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/logging"
	"github.com/mediflux/assistant-api/metrics"
	"github.com/mediflux/assistant-api/sources"
)

// tracker collects which sources were attempted and which failed while one
// Result is being assembled. Safe for the concurrent fan-out of composite
// intents.
type tracker struct {
	mu       sync.Mutex
	outcomes map[string]bool // source -> succeeded
}

func newTracker() *tracker {
	return &tracker{outcomes: make(map[string]bool)}
}

// record notes one attempted source. A source recorded failed stays failed
// even if a later call to it succeeds; a degraded answer must say so.
func (t *tracker) record(source string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok, seen := t.outcomes[source]
	t.outcomes[source] = (err == nil) && (!seen || ok)
}

// evidence builds the provenance entries for every attempted source, scored
// from the reference source registry, in stable name order.
func (t *tracker) evidence(idx *entities.ReferenceIndex) []entities.Evidence {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.outcomes))
	for name := range t.outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]entities.Evidence, 0, len(names))
	for _, name := range names {
		out = append(out, entities.Evidence{
			SourceName:   name,
			QualityScore: idx.SourceScore[name],
			Available:    t.outcomes[name],
		})
	}
	return out
}

// degrade reduces a confidence by the fraction of attempted sources that
// failed. With nothing attempted the confidence is unchanged.
func (t *tracker) degrade(confidence float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempted := len(t.outcomes)
	if attempted == 0 {
		return confidence
	}
	failed := 0
	for _, ok := range t.outcomes {
		if !ok {
			failed++
		}
	}
	return confidence * float64(attempted-failed) / float64(attempted)
}

// callSource runs one external call with the per-attempt timeout and a
// single retry on transient failure, recording latency and outcome.
func callSource[T any](ctx context.Context, o *Orchestrator, source string, fetch func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := callOnce(ctx, o.timeout, fetch)
	if err != nil && sources.IsTransient(err) && ctx.Err() == nil {
		logging.Warn("Transient source failure, retrying once", "source", source, "error", err)
		v, err = callOnce(ctx, o.timeout, fetch)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logging.Warn("Source call failed", "source", source, "error", err)
	}
	metrics.RecordSourceCall(source, outcome, time.Since(start))
	return v, err
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fetch(callCtx)
}

// fetchCached serves a source call from the TTL cache when possible and
// stores fresh responses back. Cache problems look like misses.
func fetchCached[T any](ctx context.Context, o *Orchestrator, source, query string, fetch func(context.Context) (T, error)) (T, error) {
	key := cache.Key(source, query)
	if raw, ok := o.cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.RecordCacheLookup(true)
			return v, nil
		}
		logging.Warn("Dropping undecodable cache entry", "key", key)
	}
	metrics.RecordCacheLookup(false)

	v, err := callSource(ctx, o, source, fetch)
	if err != nil {
		var zero T
		return zero, err
	}
	if raw, err := json.Marshal(v); err == nil {
		o.cache.Set(ctx, key, raw, o.cacheTTL)
	}
	return v, nil
}
