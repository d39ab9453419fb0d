package entities

// Evidence records where a Result's data came from and how trustworthy that
// source is. Available is false when the source was attempted but failed,
// which also lowers the Result confidence.
type Evidence struct {
	SourceName   string  `json:"source_name"`
	QualityScore float64 `json:"quality_score"`
	Available    bool    `json:"available"`
}

// Result is the orchestrator's structured answer for one query. It is
// created per query, never mutated after construction, formatted and then
// discarded.
type Result struct {
	Intent        Intent            `json:"intent"`
	Confidence    float64           `json:"confidence"`
	EntitiesUsed  []ExtractedEntity `json:"entities_used,omitempty"`
	Records       []ExternalRecord  `json:"records,omitempty"`
	NarrativeText string            `json:"narrative_text"`
	Evidence      []Evidence        `json:"evidence,omitempty"`
	// Breakdown is set for reimbursement simulations only.
	Breakdown *CostBreakdown `json:"breakdown,omitempty"`
	// Clarification marks the degraded answer produced for an empty or
	// invalid query.
	Clarification bool `json:"clarification,omitempty"`
}

// CostBreakdown is the outcome of a reimbursement simulation in euros.
type CostBreakdown struct {
	Label          string  `json:"label"`
	BaseEuros      float64 `json:"base_euros"`
	SecuRate       float64 `json:"secu_rate"`
	SecuEuros      float64 `json:"secu_euros"`
	MutuelleLevel  string  `json:"mutuelle_level"`
	MutuelleEuros  float64 `json:"mutuelle_euros"`
	RemainderEuros float64 `json:"remainder_euros"`
	SavingsTips    []string `json:"savings_tips,omitempty"`
}
