package entities

// EntityKind identifies what a text span was resolved to.
type EntityKind string

const (
	KindCondition  EntityKind = "condition"
	KindMedication EntityKind = "medication"
	KindSpecialty  EntityKind = "specialty"
	KindLocation   EntityKind = "location"
	KindName       EntityKind = "name"
)

// ExtractionMethod identifies which pass of the extractor produced an entity.
// The ordering of the constants is the precedence order used to break exact
// confidence ties between overlapping spans.
type ExtractionMethod string

const (
	MethodExact      ExtractionMethod = "exact"
	MethodFuzzy      ExtractionMethod = "fuzzy"
	MethodPattern    ExtractionMethod = "pattern"
	MethodNameRecog  ExtractionMethod = "name_recognition"
	MethodContextual ExtractionMethod = "contextual"
	// MethodSession marks values inherited from a prior turn rather than
	// extracted from the current text.
	MethodSession ExtractionMethod = "session"
	// MethodLLM marks entities returned by the interpretation fallback.
	MethodLLM ExtractionMethod = "llm"
)

// methodRank maps methods to their precedence, lower is stronger.
var methodRank = map[ExtractionMethod]int{
	MethodExact:      0,
	MethodFuzzy:      1,
	MethodPattern:    2,
	MethodNameRecog:  3,
	MethodContextual: 4,
	MethodSession:    5,
	MethodLLM:        6,
}

// ExtractedEntity is one normalized value recognized in the query text.
// Duplicates for the same span are allowed; consumers pick the best one.
type ExtractedEntity struct {
	Kind           EntityKind       `json:"kind"`
	CanonicalValue string           `json:"canonical_value"`
	RawSpan        string           `json:"raw_span"`
	SpanStart      int              `json:"span_start"`
	SpanEnd        int              `json:"span_end"`
	Confidence     float64          `json:"confidence"`
	Method         ExtractionMethod `json:"method"`
}

// Overlaps reports whether two entities cover intersecting byte ranges.
func (e ExtractedEntity) Overlaps(other ExtractedEntity) bool {
	return e.SpanStart < other.SpanEnd && other.SpanStart < e.SpanEnd
}

// Beats reports whether e should be kept over other when both cover the same
// span: higher confidence wins, exact ties keep the earlier method.
func (e ExtractedEntity) Beats(other ExtractedEntity) bool {
	if e.Confidence != other.Confidence {
		return e.Confidence > other.Confidence
	}
	return methodRank[e.Method] < methodRank[other.Method]
}

// BestEntity returns the highest-confidence entity of the given kind, or
// false when none exists.
func BestEntity(ents []ExtractedEntity, kind EntityKind) (ExtractedEntity, bool) {
	var best ExtractedEntity
	found := false
	for _, e := range ents {
		if e.Kind != kind {
			continue
		}
		if !found || e.Beats(best) {
			best = e
			found = true
		}
	}
	return best, found
}

// HasKind reports whether any entity of the given kind was extracted.
func HasKind(ents []ExtractedEntity, kind EntityKind) bool {
	for _, e := range ents {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
