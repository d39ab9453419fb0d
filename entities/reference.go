package entities

// Reference bundles the data tables the extractor, classifier and pathway
// builder match against. Everything here is data loaded from YAML files:
// supporting a new condition, medication or pathway is a data change only.
type Reference struct {
	Conditions  []ConditionEntry  `yaml:"conditions" json:"conditions"`
	Medications []MedicationEntry `yaml:"medications" json:"medications"`
	Specialties []SpecialtyEntry  `yaml:"specialties" json:"specialties"`
	Cities      []string          `yaml:"cities" json:"cities"`
	Pathways    []PathwayTemplate `yaml:"pathways" json:"pathways"`
	Sources     []SourceScore     `yaml:"sources" json:"sources"`
}

// ConditionEntry maps a canonical medical condition to its known surface
// forms, its symptom-adjacent keywords, and its coding metadata.
type ConditionEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Synonyms  []string `yaml:"synonyms" json:"synonyms"`
	Category  string   `yaml:"category" json:"category"`
	ICD10     string   `yaml:"icd10" json:"icd10"`
	// Keywords trigger the contextual pass: words that suggest the
	// condition without naming it.
	Keywords []string `yaml:"keywords" json:"keywords"`
	// Pathway names the care-pathway template for this condition, empty
	// when only the general template applies.
	Pathway string `yaml:"pathway" json:"pathway,omitempty"`
}

// MedicationEntry maps a canonical medication (or substance class) to its
// surface forms. Substance is set when database lookups should go through
// the active-substance query rather than the denomination query.
type MedicationEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Synonyms  []string `yaml:"synonyms" json:"synonyms"`
	Substance string   `yaml:"substance" json:"substance,omitempty"`
	// Class marks entries like "anti-inflammatoire" that resolve to a
	// representative substance instead of a brand name.
	Class bool `yaml:"class" json:"class,omitempty"`
	// Keywords trigger the contextual pass: drug-class or usage words that
	// suggest this medication without naming it.
	Keywords []string `yaml:"keywords" json:"keywords,omitempty"`
}

// SpecialtyEntry maps a profession/specialty to its directory role code.
type SpecialtyEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Code      string   `yaml:"code" json:"code"`
	Aliases   []string `yaml:"aliases" json:"aliases"`
}

// PathwayTemplate is an ordered sequence of recommended care steps for a
// family of conditions.
type PathwayTemplate struct {
	Name       string                `yaml:"name" json:"name"`
	Conditions []string              `yaml:"conditions" json:"conditions"`
	Steps      []PathwayTemplateStep `yaml:"steps" json:"steps"`
}

// PathwayTemplateStep is one template step before costs and delays are
// personalized.
type PathwayTemplateStep struct {
	Type       string  `yaml:"type" json:"type"`
	Label      string  `yaml:"label" json:"label"`
	Urgency    string  `yaml:"urgency" json:"urgency"`
	Condition  string  `yaml:"condition" json:"condition,omitempty"`
	CostEuros  float64 `yaml:"cost_euros" json:"cost_euros"`
	SecuRate   float64 `yaml:"secu_rate" json:"secu_rate"`
	DelayWeeks float64 `yaml:"delay_weeks" json:"delay_weeks"`
}

// SourceScore is the trust score of one external source, used for evidence
// grading.
type SourceScore struct {
	Name         string  `yaml:"name" json:"name"`
	QualityScore float64 `yaml:"quality_score" json:"quality_score"`
}
