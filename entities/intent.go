package entities

// Intent is the coarse capability domain a query belongs to.
type Intent string

const (
	IntentMedicationSearch        Intent = "medication_search"
	IntentReimbursementSimulation Intent = "reimbursement_simulation"
	IntentCarePathway             Intent = "care_pathway"
	IntentDocumentAnalysis        Intent = "document_analysis"
	IntentOrganizationSearch      Intent = "organization_search"
	IntentPractitionerSearch      Intent = "practitioner_search"
	IntentGeneralQuery            Intent = "general_query"
)

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentMedicationSearch, IntentReimbursementSimulation, IntentCarePathway,
		IntentDocumentAnalysis, IntentOrganizationSearch, IntentPractitionerSearch,
		IntentGeneralQuery:
		return true
	}
	return false
}

// ClassificationMethod tags which path produced the classification.
type ClassificationMethod string

const (
	ClassifiedByRule    ClassificationMethod = "rule"
	ClassifiedByLLM     ClassificationMethod = "llm"
	ClassifiedBySession ClassificationMethod = "session"
	ClassifiedByDefault ClassificationMethod = "default"
)

// Classification is the outcome of intent classification. Locked is set when
// a rule-table match reached the confidence floor; enrichment steps must
// check it before reassigning Intent.
type Classification struct {
	Intent     Intent               `json:"intent"`
	Confidence float64              `json:"confidence"`
	Method     ClassificationMethod `json:"method"`
	Locked     bool                 `json:"-"`
}
