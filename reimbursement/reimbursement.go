// Package reimbursement computes out-of-pocket cost splits for medications
// and consultations: Sécurité Sociale share, mutuelle complement on the
// ticket modérateur, and the remainder left to the patient. Pure
// computation, no external calls.
package reimbursement

import (
	"fmt"
	"math"

	"github.com/mediflux/assistant-api/entities"
)

// Standard Sécurité Sociale coverage for consultations (secteur 1).
const ConsultationSecuRate = 0.70

// Conventioned consultation base prices in euros.
const (
	GPConsultationEuros         = 25.00
	SpecialistConsultationEuros = 30.00
	PhysiotherapyEuros          = 16.50
)

// ConsultationKind selects a conventioned consultation tariff.
type ConsultationKind string

const (
	ConsultationGP            ConsultationKind = "generaliste"
	ConsultationSpecialist    ConsultationKind = "specialiste"
	ConsultationPhysiotherapy ConsultationKind = "kinesitherapie"
)

// mutuelleShare is the fraction of the ticket modérateur each level covers.
func mutuelleShare(level entities.MutuelleLevel) float64 {
	switch level {
	case entities.MutuelleBasic:
		return 0.5
	case entities.MutuellePremium:
		return 1.0
	default:
		return 0
	}
}

// Split applies a Sécurité Sociale rate and a mutuelle level to a base
// price. The mutuelle covers its share of what the Sécu leaves.
func Split(base, secuRate float64, level entities.MutuelleLevel) (secu, mutuelle, remainder float64) {
	secu = round2(base * secuRate)
	mutuelle = round2((base - secu) * mutuelleShare(level))
	remainder = round2(base - secu - mutuelle)
	if remainder < 0 {
		remainder = 0
	}
	return secu, mutuelle, remainder
}

// Medication builds the cost breakdown for a priced medication record. The
// second return is false when the record carries no public price, in which
// case no simulation is possible.
func Medication(med entities.MedicationRecord, level entities.MutuelleLevel) (entities.CostBreakdown, bool) {
	if med.PriceEuros == nil {
		return entities.CostBreakdown{}, false
	}

	base := *med.PriceEuros
	rate := 0.0
	if med.ReimbursementRate != nil {
		rate = float64(*med.ReimbursementRate) / 100
	}
	secu, mutuelle, remainder := Split(base, rate, level)

	return entities.CostBreakdown{
		Label:          med.Name,
		BaseEuros:      base,
		SecuRate:       rate,
		SecuEuros:      secu,
		MutuelleLevel:  string(level),
		MutuelleEuros:  mutuelle,
		RemainderEuros: remainder,
		SavingsTips:    medicationTips(med, remainder),
	}, true
}

// Consultation builds the cost breakdown for a conventioned consultation.
func Consultation(kind ConsultationKind, level entities.MutuelleLevel) entities.CostBreakdown {
	var base float64
	var label string
	switch kind {
	case ConsultationSpecialist:
		base = SpecialistConsultationEuros
		label = "Consultation spécialiste"
	case ConsultationPhysiotherapy:
		base = PhysiotherapyEuros
		label = "Séance de kinésithérapie"
	default:
		base = GPConsultationEuros
		label = "Consultation médecin généraliste"
	}

	secu, mutuelle, remainder := Split(base, ConsultationSecuRate, level)
	return entities.CostBreakdown{
		Label:          label,
		BaseEuros:      base,
		SecuRate:       ConsultationSecuRate,
		SecuEuros:      secu,
		MutuelleLevel:  string(level),
		MutuelleEuros:  mutuelle,
		RemainderEuros: remainder,
		SavingsTips:    consultationTips(level),
	}
}

// CompareLevels recomputes the remainder of a breakdown for every mutuelle
// level, keyed by level name. Used to annotate the narrative with what a
// better contract would change.
func CompareLevels(base, secuRate float64) map[entities.MutuelleLevel]float64 {
	out := make(map[entities.MutuelleLevel]float64, 3)
	for _, level := range []entities.MutuelleLevel{entities.MutuelleNone, entities.MutuelleBasic, entities.MutuellePremium} {
		_, _, remainder := Split(base, secuRate, level)
		out[level] = remainder
	}
	return out
}

func medicationTips(med entities.MedicationRecord, remainder float64) []string {
	var tips []string
	if g := med.GenericGroup; g != nil && len(g.Generics) > 0 {
		tips = append(tips, fmt.Sprintf("Un générique existe (%s) : demandez-le à votre pharmacien pour réduire le reste à charge.", g.Generics[0]))
	}
	if med.ReimbursementRate == nil || *med.ReimbursementRate == 0 {
		tips = append(tips, "Ce médicament n'est pas remboursé par la Sécurité Sociale : comparez les prix, ils sont libres en pharmacie.")
	}
	if remainder > 0 {
		tips = append(tips, "Vérifiez si votre pharmacie pratique le tiers payant pour éviter l'avance de frais.")
	}
	return tips
}

func consultationTips(level entities.MutuelleLevel) []string {
	tips := []string{
		"Choisissez un praticien de secteur 1 pour éviter les dépassements d'honoraires.",
		"Respectez le parcours de soins coordonnés (médecin traitant d'abord) pour le taux de remboursement maximal.",
	}
	if level == entities.MutuelleNone {
		tips = append(tips, "Sans mutuelle, le ticket modérateur reste à votre charge : une complémentaire santé le couvrirait.")
	}
	return tips
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
