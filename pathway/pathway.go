// Package pathway turns care-pathway templates into personalized ordered
// steps: per-step cost splits for the session's mutuelle level, timeline
// estimates adjusted with regional access-to-care statistics, and
// optimization tips. Pure computation over reference data.
package pathway

import (
	"fmt"
	"math"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/reimbursement"
)

// GeneralTemplate names the fallback pathway used when no condition-specific
// template exists.
const GeneralTemplate = "general"

// specialistDelayFloorWeeks separates quick-access steps from specialist
// steps whose delay follows regional availability.
const specialistDelayFloorWeeks = 2

// ForCondition resolves the pathway template for a canonical condition,
// falling back to the general template.
func ForCondition(idx *entities.ReferenceIndex, condition string) entities.PathwayTemplate {
	if name, ok := idx.PathwayForCondition[condition]; ok {
		if tpl, ok := idx.PathwayByName[name]; ok {
			return tpl
		}
	}
	return idx.PathwayByName[GeneralTemplate]
}

// Build personalizes a template: ordered steps with cost splits for the
// given mutuelle level and delays stretched by the regional delay category
// when statistics are available. stats may be nil.
func Build(tpl entities.PathwayTemplate, level entities.MutuelleLevel, stats *entities.RegionalStatsRecord) []entities.PathwayStepRecord {
	steps := make([]entities.PathwayStepRecord, 0, len(tpl.Steps))
	for i, s := range tpl.Steps {
		secu, mutuelle, remainder := reimbursement.Split(s.CostEuros, s.SecuRate, level)
		steps = append(steps, entities.PathwayStepRecord{
			Order:          i + 1,
			StepType:       s.Type,
			Label:          s.Label,
			Urgency:        s.Urgency,
			Condition:      s.Condition,
			CostEuros:      s.CostEuros,
			SecuEuros:      secu,
			MutuelleEuros:  mutuelle,
			RemainderEuros: remainder,
			DelayWeeks:     adjustDelay(s.DelayWeeks, stats),
		})
	}
	return steps
}

// adjustDelay stretches specialist access delays according to the regional
// delay category. Quick steps (GP, urgences) keep their template delay.
func adjustDelay(weeks float64, stats *entities.RegionalStatsRecord) float64 {
	if stats == nil || weeks < specialistDelayFloorWeeks {
		return weeks
	}
	factor := 1.0
	switch stats.DelayCategory {
	case "moderate":
		factor = 1.25
	case "long":
		factor = 1.5
	}
	return math.Round(weeks*factor*10) / 10
}

// TotalRemainder sums the out-of-pocket cost across the pathway.
func TotalRemainder(steps []entities.PathwayStepRecord) float64 {
	total := 0.0
	for _, s := range steps {
		total += s.RemainderEuros
	}
	return math.Round(total*100) / 100
}

// TotalWeeks returns the longest step delay, the pathway's expected horizon.
func TotalWeeks(steps []entities.PathwayStepRecord) float64 {
	max := 0.0
	for _, s := range steps {
		if s.DelayWeeks > max {
			max = s.DelayWeeks
		}
	}
	return max
}

// Tips builds optimization advice for the personalized pathway. stats may be
// nil.
func Tips(steps []entities.PathwayStepRecord, level entities.MutuelleLevel, stats *entities.RegionalStatsRecord) []string {
	tips := []string{
		"Commencez par votre médecin traitant pour rester dans le parcours de soins coordonnés.",
		"Privilégiez les praticiens de secteur 1 pour limiter les dépassements d'honoraires.",
	}
	if stats != nil && stats.DelayCategory == "long" {
		tips = append(tips, fmt.Sprintf("Les délais de rendez-vous sont longs dans votre région (%d jours en moyenne) : pensez à la téléconsultation pour un premier avis.", stats.AvgDelayDays))
	}
	if level == entities.MutuelleNone && TotalRemainder(steps) > 0 {
		tips = append(tips, "Une complémentaire santé couvrirait le ticket modérateur de ce parcours.")
	}
	return tips
}
