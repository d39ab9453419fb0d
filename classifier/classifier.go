// Package classifier assigns exactly one intent to each query. An ordered
// rule table is evaluated first match wins; queries no rule resolves go to
// the LLM interpretation fallback, and when that fails too the result is
// general_query at confidence zero. Classification never returns an error.
package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
	"github.com/mediflux/assistant-api/logging"
)

// Compile-time check
var _ interfaces.Classifier = (*Classifier)(nil)

// Rule patterns run against Normalize()d text, so they are written without
// accents and in lower case.
var (
	documentRegex = regexp.MustCompile(`tiers payant|feuille de soins|carte vitale|(analys|telecharg|scann)\w*\s.*(document|ordonnance|courrier)`)

	costRegex = regexp.MustCompile(`combien|\bcoute\b|\bprix\b|rembours\w*|\btarif\b|reste a charge|\bfranchise\b`)

	pathwayRegex = regexp.MustCompile(`parcours|prise en charge|comment (traiter|soigner)|traitement pour|suivi medical|protocole de soins|etapes du traitement|ou consulter`)

	medicationWordRegex = regexp.MustCompile(`medicament|sans ordonnance|substance active|automedication|posologie|generique`)

	practitionerWordRegex = regexp.MustCompile(`\bmedecin\b|\bdocteur\b|praticien|specialiste|generaliste|rendez-vous`)

	organizationRegex = regexp.MustCompile(`hopital|hopitaux|clinique|pharmacie|centre medical|centre de sante|maison de sante|laboratoire`)
)

// rule is one row of the intent table. Order in the table is the tie-break:
// medication rules sit above person-name rules so a medication name can
// never be read as a practitioner search.
type rule struct {
	intent     entities.Intent
	confidence float64
	matches    func(norm string, ents []entities.ExtractedEntity) bool
}

func textMatch(re *regexp.Regexp) func(string, []entities.ExtractedEntity) bool {
	return func(norm string, _ []entities.ExtractedEntity) bool {
		return re.MatchString(norm)
	}
}

func kindMatch(kind entities.EntityKind) func(string, []entities.ExtractedEntity) bool {
	return func(_ string, ents []entities.ExtractedEntity) bool {
		return entities.HasKind(ents, kind)
	}
}

var ruleTable = []rule{
	{entities.IntentDocumentAnalysis, 0.85, textMatch(documentRegex)},
	{entities.IntentReimbursementSimulation, 0.9, func(norm string, ents []entities.ExtractedEntity) bool {
		return costRegex.MatchString(norm) && entities.HasKind(ents, entities.KindMedication)
	}},
	{entities.IntentReimbursementSimulation, 0.75, textMatch(costRegex)},
	{entities.IntentCarePathway, 0.85, textMatch(pathwayRegex)},
	{entities.IntentMedicationSearch, 0.85, kindMatch(entities.KindMedication)},
	{entities.IntentMedicationSearch, 0.7, textMatch(medicationWordRegex)},
	{entities.IntentPractitionerSearch, 0.85, kindMatch(entities.KindSpecialty)},
	{entities.IntentOrganizationSearch, 0.8, textMatch(organizationRegex)},
	{entities.IntentPractitionerSearch, 0.8, textMatch(practitionerWordRegex)},
	{entities.IntentPractitionerSearch, 0.7, kindMatch(entities.KindName)},
	{entities.IntentCarePathway, 0.6, kindMatch(entities.KindCondition)},
}

// followUpMaxWords bounds session inheritance to short follow-ups like
// "et pour un enfant ?".
const followUpMaxWords = 6

// Classifier runs the rule table with an LLM fallback behind it.
type Classifier struct {
	llm   interfaces.LLMClient
	floor float64
}

// New creates a classifier. llm may be a disabled client; floor is the
// minimum rule confidence that locks an intent.
func New(llm interfaces.LLMClient, floor float64) *Classifier {
	return &Classifier{llm: llm, floor: floor}
}

// Classify resolves the query to exactly one intent. A rule match at or
// above the floor locks the classification; enrichment downstream may refine
// entities but must not reassign a locked intent.
func (c *Classifier) Classify(ctx context.Context, q entities.Query, ents []entities.ExtractedEntity) entities.Classification {
	norm := entities.Normalize(q.Text)

	for _, r := range ruleTable {
		if !r.matches(norm, ents) {
			continue
		}
		cls := entities.Classification{
			Intent:     r.intent,
			Confidence: r.confidence,
			Method:     entities.ClassifiedByRule,
			Locked:     r.confidence >= c.floor,
		}
		if cls.Locked {
			return cls
		}
		// Sub-floor rule match: fall through to the fallbacks below.
		break
	}

	if cls, ok := c.inheritFromSession(q, norm); ok {
		return cls
	}

	return c.llmFallback(ctx, q.Text)
}

// inheritFromSession lets a short follow-up reuse the previous turn's intent
// at reduced confidence. It never locks.
func (c *Classifier) inheritFromSession(q entities.Query, norm string) (entities.Classification, bool) {
	if len(q.PriorTurns) == 0 || len(strings.Fields(norm)) > followUpMaxWords {
		return entities.Classification{}, false
	}
	prior := q.PriorTurns[len(q.PriorTurns)-1]
	if !prior.Intent.Valid() || prior.Intent == entities.IntentGeneralQuery {
		return entities.Classification{}, false
	}
	return entities.Classification{
		Intent:     prior.Intent,
		Confidence: 0.55,
		Method:     entities.ClassifiedBySession,
	}, true
}

// llmFallback asks the interpretation seam; any failure degrades to
// general_query at confidence zero.
func (c *Classifier) llmFallback(ctx context.Context, text string) entities.Classification {
	interp, err := c.llm.Interpret(ctx, text)
	if err != nil {
		logging.Debug("LLM fallback unavailable, degrading to general_query", "error", err)
		return entities.Classification{
			Intent:     entities.IntentGeneralQuery,
			Confidence: 0.0,
			Method:     entities.ClassifiedByDefault,
		}
	}
	if !interp.Intent.Valid() {
		return entities.Classification{
			Intent:     entities.IntentGeneralQuery,
			Confidence: 0.0,
			Method:     entities.ClassifiedByDefault,
		}
	}
	return entities.Classification{
		Intent:     interp.Intent,
		Confidence: interp.Confidence,
		Method:     entities.ClassifiedByLLM,
	}
}
