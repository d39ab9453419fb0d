package entities

// CardType identifies the renderable card variants sent to the UI.
type CardType string

const (
	CardMedication   CardType = "medication"
	CardPractitioner CardType = "practitioner"
	CardOrganization CardType = "organization"
	CardPathwayStep  CardType = "pathway_step"
)

// CardField is one label/value pair on a card. Order matters for display.
type CardField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is a typed display block derived from one ExternalRecord.
type Card struct {
	Type     CardType    `json:"type"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle,omitempty"`
	Fields   []CardField `json:"fields,omitempty"`
}

// EvidenceBadge is the user-facing form of an Evidence entry: the numeric
// quality score mapped to a letter grade.
type EvidenceBadge struct {
	Source       string  `json:"source"`
	Grade        string  `json:"grade"`
	QualityScore float64 `json:"quality_score"`
	Available    bool    `json:"available"`
}

// FormattedResponse is the wire shape handed to the consuming service.
type FormattedResponse struct {
	Intent     Intent          `json:"intent"`
	Confidence float64         `json:"confidence"`
	Grade      string          `json:"grade"`
	Narrative  string          `json:"narrative"`
	Cards      []Card          `json:"cards,omitempty"`
	Evidence   []EvidenceBadge `json:"evidence,omitempty"`
	Breakdown  *CostBreakdown  `json:"breakdown,omitempty"`
}
