package entities

import "time"

// GeoFilter narrows a directory search to a city or postal code. Filtering
// happens client-side after fetch; the upstream directory does not expose a
// reliable address filter on role traversals.
type GeoFilter struct {
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsZero reports whether no geographic constraint is set.
func (g GeoFilter) IsZero() bool { return g.City == "" && g.PostalCode == "" }

// RecordKind identifies the payload carried by an ExternalRecord.
type RecordKind string

const (
	RecordMedication    RecordKind = "medication"
	RecordPractitioner  RecordKind = "practitioner"
	RecordOrganization  RecordKind = "organization"
	RecordPathwayStep   RecordKind = "pathway_step"
	RecordRegionalStats RecordKind = "regional_stats"
)

// ExternalRecord is one normalized record fetched from an external source.
// Exactly one payload pointer is set, matching Kind. Records are owned by
// the Result that aggregates them and are never shared across Results.
type ExternalRecord struct {
	Source    string     `json:"source"`
	FetchedAt time.Time  `json:"fetched_at"`
	Kind      RecordKind `json:"kind"`

	Medication    *MedicationRecord    `json:"medication,omitempty"`
	Practitioner  *PractitionerRecord  `json:"practitioner,omitempty"`
	Organization  *OrganizationRecord  `json:"organization,omitempty"`
	PathwayStep   *PathwayStepRecord   `json:"pathway_step,omitempty"`
	RegionalStats *RegionalStatsRecord `json:"regional_stats,omitempty"`
}

// Substance is one active component of a medication with its dosage.
type Substance struct {
	Code         int    `json:"code,omitempty"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	RefDosage    string `json:"reference_dosage,omitempty"`
	MatchedQuery bool   `json:"matched_query,omitempty"`
}

// MedicationRecord is the normalized shape of a public-database medication.
// Price and reimbursement come from the best priced presentation; both are
// nil when the medication has no reimbursable presentation.
type MedicationRecord struct {
	Cis                    int          `json:"cis"`
	Name                   string       `json:"name"`
	Form                   string       `json:"form,omitempty"`
	Routes                 []string     `json:"routes,omitempty"`
	Substances             []Substance  `json:"substances,omitempty"`
	PriceEuros             *float64     `json:"price_euros,omitempty"`
	ReimbursementRate      *int         `json:"reimbursement_rate,omitempty"`
	Cip13                  string       `json:"cip13,omitempty"`
	PresentationLabel      string       `json:"presentation_label,omitempty"`
	PrescriptionConditions []string     `json:"prescription_conditions,omitempty"`
	EnhancedSurveillance   bool         `json:"enhanced_surveillance,omitempty"`
	GenericGroup           *GenericInfo `json:"generic_group,omitempty"`
}

// GenericInfo describes the generic group a medication belongs to.
type GenericInfo struct {
	GroupID   string   `json:"group_id"`
	Label     string   `json:"label"`
	Princeps  []string `json:"princeps,omitempty"`
	Generics  []string `json:"generics,omitempty"`
	GroupSize int      `json:"group_size"`
}

// PractitionerRecord is a directory entry for a health professional.
type PractitionerRecord struct {
	ID            string `json:"id,omitempty"`
	Family        string `json:"family"`
	Given         string `json:"given,omitempty"`
	Specialty     string `json:"specialty,omitempty"`
	SpecialtyCode string `json:"specialty_code,omitempty"`
	Organization  string `json:"organization,omitempty"`
	City          string `json:"city,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Active        bool   `json:"active"`
}

// FullName returns "Given Family" with whichever parts are present.
func (p PractitionerRecord) FullName() string {
	if p.Given == "" {
		return p.Family
	}
	return p.Given + " " + p.Family
}

// OrganizationRecord is a directory entry for a care structure.
type OrganizationRecord struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	TypeCode    string  `json:"type_code,omitempty"`
	Address     Address `json:"address"`
	Active      bool    `json:"active"`
	LastUpdated string  `json:"last_updated,omitempty"`
}

// Address is a postal address as returned by the directory.
type Address struct {
	Text       string   `json:"text,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
}

// PathwayStepRecord is one ordered step of a recommended care pathway with
// its cost split and expected delay.
type PathwayStepRecord struct {
	Order          int     `json:"order"`
	StepType       string  `json:"step_type"`
	Label          string  `json:"label"`
	Urgency        string  `json:"urgency,omitempty"`
	Condition      string  `json:"condition,omitempty"`
	CostEuros      float64 `json:"cost_euros"`
	SecuEuros      float64 `json:"secu_euros"`
	MutuelleEuros  float64 `json:"mutuelle_euros"`
	RemainderEuros float64 `json:"remainder_euros"`
	DelayWeeks     float64 `json:"delay_weeks"`
}

// RegionalStatsRecord summarizes access-to-care indicators for an area.
type RegionalStatsRecord struct {
	Department         string  `json:"department,omitempty"`
	Region             string  `json:"region"`
	DensityLevel       string  `json:"density_level"`
	GPPer1000          float64 `json:"gp_per_1000"`
	SpecialistsPer1000 float64 `json:"specialists_per_1000"`
	Specialty          string  `json:"specialty,omitempty"`
	AvgDelayDays       int     `json:"avg_delay_days"`
	DelayCategory      string  `json:"delay_category"`
}
