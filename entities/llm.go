package entities

// Interpretation is the validated shape of an LLM fallback response. The
// raw model output is untrusted; it only becomes an Interpretation after
// schema validation.
type Interpretation struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   []ExtractedEntity `json:"entities,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
}
