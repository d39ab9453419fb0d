package entities

// IndexedTerm is one normalized surface form pointing back to its canonical
// entity. Term is pre-normalized (lowercase, accents folded) so matching
// never re-normalizes table data.
type IndexedTerm struct {
	Term      string
	Kind      EntityKind
	Canonical string
}

// KeywordTarget is the canonical entity a contextual keyword points to.
type KeywordTarget struct {
	Kind      EntityKind
	Canonical string
}

// ReferenceIndex holds the lookup structures derived from a Reference.
// It is built once per load and swapped atomically with the Reference.
type ReferenceIndex struct {
	// Terms lists every normalized synonym/alias, longest first, for the
	// exact and fuzzy passes.
	Terms []IndexedTerm
	// Keywords maps one normalized keyword to the entities it suggests.
	Keywords map[string][]KeywordTarget
	// Cities holds normalized city names for the location passes.
	Cities map[string]string

	SpecialtyCode       map[string]string
	ConditionByName     map[string]ConditionEntry
	MedicationByName    map[string]MedicationEntry
	PathwayByName       map[string]PathwayTemplate
	PathwayForCondition map[string]string
	SourceScore         map[string]float64
}
