package validation

import (
	"strings"
	"testing"
)

// ===== Query text =====

func TestValidateQueryTextAcceptsFrenchQueries(t *testing.T) {
	v := NewQueryValidator()

	queries := []string{
		"Combien coûte le Doliprane ?",
		"Trouver un médecin généraliste à Saint-Étienne",
		"J'ai mal au dos depuis 3 semaines, que faire ?",
		"Le reste à charge est-il de 1,50 € (65 %) ?",
		"Où est l'hôpital « Pitié-Salpêtrière » ?",
	}

	for _, q := range queries {
		if err := v.ValidateQueryText(q); err != nil {
			t.Errorf("Expected %q accepted, got %v", q, err)
		}
	}
}

func TestValidateQueryTextAcceptsEmpty(t *testing.T) {
	v := NewQueryValidator()

	// Empty queries pass here; the clarification flow handles them later
	if err := v.ValidateQueryText("   "); err != nil {
		t.Errorf("Expected whitespace accepted, got %v", err)
	}
}

func TestValidateQueryTextRejectsDangerousContent(t *testing.T) {
	v := NewQueryValidator()

	queries := []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"'; drop table users",
		"../../etc/passwd",
		"{$where: 'sleep(1000)'}",
		"$(rm -rf /)",
	}

	for _, q := range queries {
		if err := v.ValidateQueryText(q); err == nil {
			t.Errorf("Expected %q rejected", q)
		}
	}
}

func TestValidateQueryTextRejectsTooLong(t *testing.T) {
	v := NewQueryValidator()

	if err := v.ValidateQueryText(strings.Repeat("a", 501)); err == nil {
		t.Error("Expected a 501-character query rejected")
	}
	if err := v.ValidateQueryText(strings.Repeat("ou ", 100)); err == nil {
		t.Error("Expected a 100-word query rejected")
	}
}

func TestValidateQueryTextRejectsExcessiveRepetition(t *testing.T) {
	v := NewQueryValidator()

	if err := v.ValidateQueryText("aidez moi " + strings.Repeat("!", 20)); err == nil {
		t.Error("Expected excessive repetition rejected")
	}
}

func TestValidateQueryTextRejectsInvalidCharacters(t *testing.T) {
	v := NewQueryValidator()

	if err := v.ValidateQueryText("doliprane <> paracétamol"); err == nil {
		t.Error("Expected angle brackets rejected")
	}
}

// ===== Session IDs =====

func TestValidateSessionID(t *testing.T) {
	v := NewQueryValidator()

	valid := []string{"", "sess-1", "user_42", "Abc123", strings.Repeat("a", 64)}
	for _, id := range valid {
		if err := v.ValidateSessionID(id); err != nil {
			t.Errorf("Expected %q accepted, got %v", id, err)
		}
	}

	invalid := []string{"bad session", "sess.1", "é", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if err := v.ValidateSessionID(id); err == nil {
			t.Errorf("Expected %q rejected", id)
		}
	}
}

// ===== CIS codes =====

func TestValidateCIS(t *testing.T) {
	v := NewQueryValidator()

	cis, err := v.ValidateCIS("60234100")
	if err != nil {
		t.Fatalf("Expected a valid CIS, got %v", err)
	}
	if cis != 60234100 {
		t.Errorf("Expected 60234100, got %d", cis)
	}

	invalid := []string{"", "1234567", "123456789", "6023410a", "6023 410", " 60234100"}
	for _, input := range invalid {
		if _, err := v.ValidateCIS(input); err == nil {
			t.Errorf("Expected %q rejected", input)
		}
	}
}
