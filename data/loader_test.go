package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mediflux/assistant-api/entities"
)

// ===== Embedded tables =====

func TestLoadEmbeddedReference(t *testing.T) {
	ref, idx, err := Load("")
	if err != nil {
		t.Fatalf("Expected the embedded tables to load, got %v", err)
	}

	if len(ref.Conditions) == 0 {
		t.Error("Expected conditions in the embedded tables")
	}
	if len(ref.Medications) == 0 {
		t.Error("Expected medications in the embedded tables")
	}
	if len(ref.Specialties) == 0 {
		t.Error("Expected specialties in the embedded tables")
	}
	if len(ref.Pathways) == 0 {
		t.Error("Expected pathway templates in the embedded tables")
	}
	if len(idx.SourceScore) == 0 {
		t.Error("Expected source scores in the index")
	}
}

func TestLoadIndexesKnownEntries(t *testing.T) {
	_, idx, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := idx.MedicationByName["Doliprane"]; !ok {
		t.Error("Expected Doliprane indexed by canonical name")
	}
	if code, ok := idx.SpecialtyCode["dentiste"]; !ok || code != "86" {
		t.Errorf("Expected role code 86 for dentiste, got %q", code)
	}
	// City lookups go through normalized keys
	if _, ok := idx.Cities[entities.Normalize("Lyon")]; !ok {
		t.Error("Expected Lyon in the normalized city index")
	}
}

// ===== Directory override =====

func TestLoadFromDirectoryOverride(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"conditions.yaml": `conditions:
  - canonical: "mal de dos"
    synonyms: ["lombalgie"]
    category: "musculoskeletal"
`,
		"medications.yaml": `medications:
  - canonical: "Doliprane"
    synonyms: ["doliprane 1000"]
    substance: "paracétamol"
`,
		"specialties.yaml": `specialties:
  - canonical: "dentiste"
    code: "86"
    aliases: ["chirurgien-dentiste"]
cities:
  - "Paris"
sources:
  - name: "bdpm"
    quality_score: 0.99
`,
		"pathways.yaml": `pathways:
  - name: "general"
    conditions: []
    steps:
      - type: "gp_consultation"
        label: "Consultation médecin généraliste"
        urgency: "low"
        cost_euros: 25.0
        secu_rate: 0.7
        delay_weeks: 0.5
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	ref, idx, err := Load(dir)
	if err != nil {
		t.Fatalf("Expected the directory tables to load, got %v", err)
	}

	if len(ref.Conditions) != 1 || ref.Conditions[0].Canonical != "mal de dos" {
		t.Errorf("Expected the override conditions, got %+v", ref.Conditions)
	}
	if idx.SourceScore["bdpm"] != 0.99 {
		t.Errorf("Expected the override source score, got %v", idx.SourceScore)
	}
}

func TestLoadFallsBackToEmbeddedForMissingFiles(t *testing.T) {
	// A directory without reference files serves the embedded defaults
	ref, _, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Expected the embedded fallback to load, got %v", err)
	}
	if len(ref.Conditions) == 0 {
		t.Error("Expected the embedded conditions via fallback")
	}
}
