// Package formatter converts orchestrator Results into the wire response:
// a French narrative, typed cards per record kind and evidence badges with
// letter grades. Format is a pure function and handles every intent,
// including narrative-only general_query answers.
package formatter

import (
	"fmt"
	"strings"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.Formatter = (*Formatter)(nil)

// Formatter is stateless; one instance serves all queries.
type Formatter struct{}

// New creates a formatter.
func New() *Formatter { return &Formatter{} }

// Format builds the wire response for a Result.
func (f *Formatter) Format(res entities.Result) entities.FormattedResponse {
	out := entities.FormattedResponse{
		Intent:     res.Intent,
		Confidence: res.Confidence,
		Grade:      Grade(res.Confidence),
		Narrative:  res.NarrativeText,
		Breakdown:  res.Breakdown,
	}
	for _, rec := range res.Records {
		if card, ok := buildCard(rec); ok {
			out.Cards = append(out.Cards, card)
		}
	}
	for _, ev := range res.Evidence {
		out.Evidence = append(out.Evidence, entities.EvidenceBadge{
			Source:       ev.SourceName,
			Grade:        Grade(ev.QualityScore),
			QualityScore: ev.QualityScore,
			Available:    ev.Available,
		})
	}
	return out
}

// Grade maps a confidence or quality score to its letter grade. Boundaries
// are inclusive: 0.9 is an A, 0.7 a B.
func Grade(score float64) string {
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.7:
		return "B"
	default:
		return "C"
	}
}

func buildCard(rec entities.ExternalRecord) (entities.Card, bool) {
	switch rec.Kind {
	case entities.RecordMedication:
		if rec.Medication != nil {
			return medicationCard(*rec.Medication), true
		}
	case entities.RecordPractitioner:
		if rec.Practitioner != nil {
			return practitionerCard(*rec.Practitioner), true
		}
	case entities.RecordOrganization:
		if rec.Organization != nil {
			return organizationCard(*rec.Organization), true
		}
	case entities.RecordPathwayStep:
		if rec.PathwayStep != nil {
			return pathwayStepCard(*rec.PathwayStep), true
		}
	}
	// Regional statistics feed the narrative, not a card.
	return entities.Card{}, false
}

func medicationCard(med entities.MedicationRecord) entities.Card {
	card := entities.Card{
		Type:     entities.CardMedication,
		Title:    med.Name,
		Subtitle: med.Form,
	}
	if med.Cis != 0 {
		card.Fields = append(card.Fields, entities.CardField{Label: "Code CIS", Value: fmt.Sprintf("%d", med.Cis)})
	}
	if med.PriceEuros != nil {
		card.Fields = append(card.Fields, entities.CardField{Label: "Prix public", Value: fmt.Sprintf("%.2f €", *med.PriceEuros)})
	}
	if med.ReimbursementRate != nil {
		card.Fields = append(card.Fields, entities.CardField{Label: "Taux Sécurité Sociale", Value: fmt.Sprintf("%d %%", *med.ReimbursementRate)})
	}
	if len(med.Substances) > 0 {
		names := make([]string, 0, len(med.Substances))
		for _, s := range med.Substances {
			names = append(names, s.Name)
		}
		card.Fields = append(card.Fields, entities.CardField{Label: "Substances actives", Value: strings.Join(names, ", ")})
	}
	if len(med.PrescriptionConditions) > 0 {
		card.Fields = append(card.Fields, entities.CardField{Label: "Prescription", Value: strings.Join(med.PrescriptionConditions, " ; ")})
	}
	if med.EnhancedSurveillance {
		card.Fields = append(card.Fields, entities.CardField{Label: "Surveillance renforcée", Value: "oui"})
	}
	if g := med.GenericGroup; g != nil {
		card.Fields = append(card.Fields, entities.CardField{Label: "Groupe générique", Value: fmt.Sprintf("%s (%d spécialités)", g.Label, g.GroupSize)})
	}
	return card
}

func practitionerCard(p entities.PractitionerRecord) entities.Card {
	card := entities.Card{
		Type:     entities.CardPractitioner,
		Title:    p.FullName(),
		Subtitle: p.Specialty,
	}
	if p.Organization != "" {
		card.Fields = append(card.Fields, entities.CardField{Label: "Structure", Value: p.Organization})
	}
	if p.City != "" || p.PostalCode != "" {
		card.Fields = append(card.Fields, entities.CardField{Label: "Localisation", Value: strings.TrimSpace(p.PostalCode + " " + p.City)})
	}
	if !p.Active {
		card.Fields = append(card.Fields, entities.CardField{Label: "Statut", Value: "inactif"})
	}
	return card
}

func organizationCard(org entities.OrganizationRecord) entities.Card {
	card := entities.Card{
		Type:     entities.CardOrganization,
		Title:    org.Name,
		Subtitle: org.Type,
	}
	addr := org.Address.Text
	if addr == "" {
		parts := append([]string{}, org.Address.Lines...)
		if loc := strings.TrimSpace(org.Address.PostalCode + " " + org.Address.City); loc != "" {
			parts = append(parts, loc)
		}
		addr = strings.Join(parts, ", ")
	}
	if addr != "" {
		card.Fields = append(card.Fields, entities.CardField{Label: "Adresse", Value: addr})
	}
	return card
}

func pathwayStepCard(step entities.PathwayStepRecord) entities.Card {
	card := entities.Card{
		Type:     entities.CardPathwayStep,
		Title:    fmt.Sprintf("Étape %d : %s", step.Order, step.Label),
		Subtitle: urgencyLabel(step.Urgency),
	}
	card.Fields = append(card.Fields,
		entities.CardField{Label: "Coût", Value: fmt.Sprintf("%.2f €", step.CostEuros)},
		entities.CardField{Label: "Reste à charge", Value: fmt.Sprintf("%.2f €", step.RemainderEuros)},
		entities.CardField{Label: "Délai estimé", Value: delayLabel(step.DelayWeeks)},
	)
	if step.Condition != "" {
		card.Fields = append(card.Fields, entities.CardField{Label: "Condition", Value: conditionLabel(step.Condition)})
	}
	return card
}

func urgencyLabel(urgency string) string {
	switch urgency {
	case "high":
		return "Urgence élevée"
	case "medium":
		return "Urgence modérée"
	case "low":
		return "Non urgent"
	default:
		return ""
	}
}

func delayLabel(weeks float64) string {
	switch {
	case weeks <= 0:
		return "immédiat"
	case weeks < 1:
		return "quelques jours"
	case weeks == 1:
		return "1 semaine"
	default:
		return fmt.Sprintf("%.1f semaines", weeks)
	}
}

func conditionLabel(condition string) string {
	switch condition {
	case "if_chronic":
		return "si douleur persistante"
	case "if_severe":
		return "si symptômes sévères"
	default:
		return strings.ReplaceAll(condition, "_", " ")
	}
}
