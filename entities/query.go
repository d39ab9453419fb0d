// Package entities defines the core domain types shared across the assistant:
// queries, extracted entities, intents, external records, results and the
// reference tables they are matched against.
package entities

// Query is a single user request. It is immutable once received: the
// orchestrator and classifier read it but never modify it.
type Query struct {
	Text      string  `json:"text"`
	SessionID string  `json:"session_id,omitempty"`
	Profile   Profile `json:"profile,omitempty"`
	// PriorTurns carries the conversation history for follow-up
	// disambiguation, oldest first.
	PriorTurns []Turn `json:"prior_turns,omitempty"`
}

// Turn is one completed query/result exchange from earlier in the session.
type Turn struct {
	Text   string `json:"text"`
	Intent Intent `json:"intent"`
	// EntityValues keeps the canonical values that were consumed, by kind,
	// so a follow-up can inherit them without re-extraction.
	EntityValues map[EntityKind]string `json:"entity_values,omitempty"`
}
