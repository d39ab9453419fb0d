package entities

// MutuelleLevel is the complementary-insurance tier used by cost
// simulations.
type MutuelleLevel string

const (
	MutuelleNone    MutuelleLevel = ""
	MutuelleBasic   MutuelleLevel = "basic"
	MutuellePremium MutuelleLevel = "premium"
)

// Profile is the read-only session context consumed by the orchestrator to
// personalize cost calculations and geographic defaults. This core never
// writes profiles back.
type Profile struct {
	Mutuelle        MutuelleLevel `json:"mutuelle,omitempty"`
	Department      string        `json:"department,omitempty"`
	City            string        `json:"city,omitempty"`
	KnownConditions []string      `json:"known_conditions,omitempty"`
}

// IsZero reports whether no profile information is present.
func (p Profile) IsZero() bool {
	return p.Mutuelle == MutuelleNone && p.Department == "" && p.City == "" && len(p.KnownConditions) == 0
}
