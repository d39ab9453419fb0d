package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/mediflux/assistant-api/entities"
)

// stubLLM is a canned interfaces.LLMClient for classifier tests.
type stubLLM struct {
	interp entities.Interpretation
	err    error
	calls  int
}

func (s *stubLLM) Interpret(ctx context.Context, text string) (entities.Interpretation, error) {
	s.calls++
	return s.interp, s.err
}

func medicationEntity(value string) entities.ExtractedEntity {
	return entities.ExtractedEntity{
		Kind:           entities.KindMedication,
		CanonicalValue: value,
		RawSpan:        value,
		Confidence:     1.0,
		Method:         entities.MethodExact,
	}
}

// ===== Rule table =====

func TestClassifyReimbursementWithMedication(t *testing.T) {
	llm := &stubLLM{err: errors.New("should not be called")}
	c := New(llm, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "Combien coûte le Doliprane avec ma mutuelle?"},
		[]entities.ExtractedEntity{medicationEntity("Doliprane")})

	if got.Intent != entities.IntentReimbursementSimulation {
		t.Errorf("Expected reimbursement_simulation, got %s", got.Intent)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", got.Confidence)
	}
	if !got.Locked {
		t.Error("Expected the rule match to lock the intent")
	}
	if got.Method != entities.ClassifiedByRule {
		t.Errorf("Expected rule method, got %s", got.Method)
	}
	if llm.calls != 0 {
		t.Errorf("Expected no LLM calls, got %d", llm.calls)
	}
}

func TestClassifyReimbursementWithoutMedication(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "combien ça coûte une consultation"}, nil)

	if got.Intent != entities.IntentReimbursementSimulation {
		t.Errorf("Expected reimbursement_simulation, got %s", got.Intent)
	}
	if got.Confidence != 0.75 {
		t.Errorf("Expected confidence 0.75, got %v", got.Confidence)
	}
}

func TestClassifyMedicationBeatsPersonName(t *testing.T) {
	// A medication entity and a name entity together must resolve to
	// medication_search: the medication rule sits above the name rule.
	c := New(&stubLLM{}, 0.5)

	ents := []entities.ExtractedEntity{
		medicationEntity("Doliprane"),
		{Kind: entities.KindName, CanonicalValue: "Doliprane", Confidence: 0.75, Method: entities.MethodNameRecog},
	}
	got := c.Classify(context.Background(), entities.Query{Text: "je veux du Doliprane"}, ents)

	if got.Intent != entities.IntentMedicationSearch {
		t.Errorf("Expected medication_search, got %s", got.Intent)
	}
	if !got.Locked {
		t.Error("Expected the medication intent to be locked")
	}
}

func TestClassifyPractitionerBySpecialty(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	ents := []entities.ExtractedEntity{
		{Kind: entities.KindSpecialty, CanonicalValue: "dentiste", Confidence: 1.0, Method: entities.MethodExact},
		{Kind: entities.KindLocation, CanonicalValue: "75011", Confidence: 0.85, Method: entities.MethodPattern},
	}
	got := c.Classify(context.Background(), entities.Query{Text: "cherche un dentiste autour de 75011"}, ents)

	if got.Intent != entities.IntentPractitionerSearch {
		t.Errorf("Expected practitioner_search, got %s", got.Intent)
	}
}

func TestClassifyPractitionerByName(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	ents := []entities.ExtractedEntity{
		{Kind: entities.KindName, CanonicalValue: "Sophie Prach", Confidence: 0.85, Method: entities.MethodPattern},
	}
	got := c.Classify(context.Background(), entities.Query{Text: "find Dr. Sophie Prach"}, ents)

	if got.Intent != entities.IntentPractitionerSearch {
		t.Errorf("Expected practitioner_search, got %s", got.Intent)
	}
	if got.Confidence != 0.7 {
		t.Errorf("Expected confidence 0.7, got %v", got.Confidence)
	}
}

func TestClassifyMedicationWithoutEntityKeyword(t *testing.T) {
	// "sans ordonnance" alone must stay medication_search, not become
	// document_analysis on the bare "ordonnance" token.
	c := New(&stubLLM{}, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "que prendre sans ordonnance"}, nil)

	if got.Intent != entities.IntentMedicationSearch {
		t.Errorf("Expected medication_search, got %s", got.Intent)
	}
}

func TestClassifyDocumentAnalysis(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	tests := []string{
		"ma carte de tiers payant",
		"analyser cette ordonnance",
		"feuille de soins à envoyer",
	}
	for _, text := range tests {
		got := c.Classify(context.Background(), entities.Query{Text: text}, nil)
		if got.Intent != entities.IntentDocumentAnalysis {
			t.Errorf("Expected document_analysis for %q, got %s", text, got.Intent)
		}
	}
}

func TestClassifyCarePathway(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "quel est le parcours de soins pour le diabète"}, nil)
	if got.Intent != entities.IntentCarePathway {
		t.Errorf("Expected care_pathway, got %s", got.Intent)
	}

	// A bare condition entity also routes to care_pathway, at lower
	// confidence.
	ents := []entities.ExtractedEntity{
		{Kind: entities.KindCondition, CanonicalValue: "mal_de_dos", Confidence: 1.0, Method: entities.MethodExact},
	}
	got = c.Classify(context.Background(), entities.Query{Text: "j'ai mal au dos depuis trois jours"}, ents)
	if got.Intent != entities.IntentCarePathway {
		t.Errorf("Expected care_pathway for a condition entity, got %s", got.Intent)
	}
	if got.Confidence != 0.6 {
		t.Errorf("Expected confidence 0.6, got %v", got.Confidence)
	}
}

func TestClassifyOrganization(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "une clinique ouverte ce soir"}, nil)
	if got.Intent != entities.IntentOrganizationSearch {
		t.Errorf("Expected organization_search, got %s", got.Intent)
	}
}

// ===== Session inheritance =====

func TestClassifySessionInheritance(t *testing.T) {
	llm := &stubLLM{err: errors.New("down")}
	c := New(llm, 0.5)

	q := entities.Query{
		Text: "et pour un enfant ?",
		PriorTurns: []entities.Turn{
			{Text: "Combien coûte le Doliprane?", Intent: entities.IntentReimbursementSimulation},
		},
	}
	got := c.Classify(context.Background(), q, nil)

	if got.Intent != entities.IntentReimbursementSimulation {
		t.Errorf("Expected the prior intent to be inherited, got %s", got.Intent)
	}
	if got.Method != entities.ClassifiedBySession {
		t.Errorf("Expected session method, got %s", got.Method)
	}
	if got.Locked {
		t.Error("Session inheritance must not lock")
	}
	if got.Confidence != 0.55 {
		t.Errorf("Expected confidence 0.55, got %v", got.Confidence)
	}
	if llm.calls != 0 {
		t.Errorf("Expected the LLM to be skipped, got %d calls", llm.calls)
	}
}

func TestClassifySessionInheritanceSkipsLongQueries(t *testing.T) {
	llm := &stubLLM{err: errors.New("down")}
	c := New(llm, 0.5)

	q := entities.Query{
		Text: "je voudrais maintenant savoir autre chose de complètement différent merci",
		PriorTurns: []entities.Turn{
			{Text: "Combien coûte le Doliprane?", Intent: entities.IntentReimbursementSimulation},
		},
	}
	got := c.Classify(context.Background(), q, nil)

	if got.Method == entities.ClassifiedBySession {
		t.Error("Long queries must not inherit the prior intent")
	}
	if got.Intent != entities.IntentGeneralQuery {
		t.Errorf("Expected general_query after LLM failure, got %s", got.Intent)
	}
}

func TestClassifySessionInheritanceNeverOverridesRule(t *testing.T) {
	c := New(&stubLLM{}, 0.5)

	q := entities.Query{
		Text: "prix du Doliprane ?",
		PriorTurns: []entities.Turn{
			{Text: "trouve un dentiste", Intent: entities.IntentPractitionerSearch},
		},
	}
	got := c.Classify(context.Background(), q, []entities.ExtractedEntity{medicationEntity("Doliprane")})

	if got.Intent != entities.IntentReimbursementSimulation {
		t.Errorf("Expected the rule match to win over session history, got %s", got.Intent)
	}
	if got.Method != entities.ClassifiedByRule {
		t.Errorf("Expected rule method, got %s", got.Method)
	}
}

// ===== LLM fallback =====

func TestClassifyLLMFallback(t *testing.T) {
	llm := &stubLLM{interp: entities.Interpretation{
		Intent:     entities.IntentCarePathway,
		Confidence: 0.7,
	}}
	c := New(llm, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "je ne sais pas trop quoi faire pour ma santé en ce moment"}, nil)

	if got.Intent != entities.IntentCarePathway {
		t.Errorf("Expected the LLM intent, got %s", got.Intent)
	}
	if got.Method != entities.ClassifiedByLLM {
		t.Errorf("Expected llm method, got %s", got.Method)
	}
	if got.Locked {
		t.Error("LLM classification must not lock")
	}
	if llm.calls != 1 {
		t.Errorf("Expected 1 LLM call, got %d", llm.calls)
	}
}

func TestClassifyLLMFailureDegrades(t *testing.T) {
	llm := &stubLLM{err: errors.New("timeout")}
	c := New(llm, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "une question très vague"}, nil)

	if got.Intent != entities.IntentGeneralQuery {
		t.Errorf("Expected general_query, got %s", got.Intent)
	}
	if got.Confidence != 0.0 {
		t.Errorf("Expected confidence 0.0, got %v", got.Confidence)
	}
	if got.Method != entities.ClassifiedByDefault {
		t.Errorf("Expected default method, got %s", got.Method)
	}
}

func TestClassifyLLMInvalidIntentDegrades(t *testing.T) {
	llm := &stubLLM{interp: entities.Interpretation{Intent: "nonsense", Confidence: 0.9}}
	c := New(llm, 0.5)

	got := c.Classify(context.Background(), entities.Query{Text: "une question très vague"}, nil)

	if got.Intent != entities.IntentGeneralQuery {
		t.Errorf("Expected general_query, got %s", got.Intent)
	}
}
