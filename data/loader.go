package data

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mediflux/assistant-api/entities"
)

//go:embed reference/*.yaml
var embeddedReference embed.FS

// referenceFiles lists the YAML files that together form one Reference.
// Each file may contribute any subset of the Reference sections.
var referenceFiles = []string{
	"conditions.yaml",
	"medications.yaml",
	"specialties.yaml",
	"pathways.yaml",
}

// Load reads the reference tables. When dir is empty the embedded defaults
// are used; otherwise files are read from dir, falling back to the embedded
// copy for any file missing there. The returned index is ready for use.
func Load(dir string) (entities.Reference, *entities.ReferenceIndex, error) {
	var ref entities.Reference

	for _, name := range referenceFiles {
		raw, err := readReferenceFile(dir, name)
		if err != nil {
			return entities.Reference{}, nil, fmt.Errorf("reading reference file %s: %w", name, err)
		}

		var part entities.Reference
		if err := yaml.Unmarshal(raw, &part); err != nil {
			return entities.Reference{}, nil, fmt.Errorf("parsing reference file %s: %w", name, err)
		}
		mergeReference(&ref, part)
	}

	if err := validateReference(ref); err != nil {
		return entities.Reference{}, nil, fmt.Errorf("invalid reference data: %w", err)
	}

	return ref, BuildIndex(ref), nil
}

func readReferenceFile(dir, name string) ([]byte, error) {
	if dir != "" {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return raw, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return embeddedReference.ReadFile("reference/" + name)
}

func mergeReference(dst *entities.Reference, part entities.Reference) {
	dst.Conditions = append(dst.Conditions, part.Conditions...)
	dst.Medications = append(dst.Medications, part.Medications...)
	dst.Specialties = append(dst.Specialties, part.Specialties...)
	dst.Cities = append(dst.Cities, part.Cities...)
	dst.Pathways = append(dst.Pathways, part.Pathways...)
	dst.Sources = append(dst.Sources, part.Sources...)
}

func validateReference(ref entities.Reference) error {
	if len(ref.Conditions) == 0 {
		return fmt.Errorf("no conditions defined")
	}
	if len(ref.Medications) == 0 {
		return fmt.Errorf("no medications defined")
	}
	if len(ref.Specialties) == 0 {
		return fmt.Errorf("no specialties defined")
	}
	if len(ref.Pathways) == 0 {
		return fmt.Errorf("no pathway templates defined")
	}

	for _, c := range ref.Conditions {
		if c.Canonical == "" {
			return fmt.Errorf("condition with empty canonical name")
		}
	}
	for _, m := range ref.Medications {
		if m.Canonical == "" {
			return fmt.Errorf("medication with empty canonical name")
		}
	}
	for _, s := range ref.Specialties {
		if s.Canonical == "" || s.Code == "" {
			return fmt.Errorf("specialty %q missing canonical name or role code", s.Canonical)
		}
	}
	for _, src := range ref.Sources {
		if src.QualityScore < 0 || src.QualityScore > 1 {
			return fmt.Errorf("source %q quality score %v out of [0,1]", src.Name, src.QualityScore)
		}
	}
	return nil
}

// BuildIndex derives the lookup structures from the reference tables. Terms
// are normalized once here so the extractor compares pre-folded strings.
func BuildIndex(ref entities.Reference) *entities.ReferenceIndex {
	idx := emptyIndex()

	addTerm := func(term string, kind entities.EntityKind, canonical string) {
		n := entities.Normalize(term)
		if n == "" {
			return
		}
		idx.Terms = append(idx.Terms, entities.IndexedTerm{Term: n, Kind: kind, Canonical: canonical})
	}
	addKeyword := func(word string, kind entities.EntityKind, canonical string) {
		n := entities.Normalize(word)
		if n == "" {
			return
		}
		idx.Keywords[n] = append(idx.Keywords[n], entities.KeywordTarget{Kind: kind, Canonical: canonical})
	}

	for _, c := range ref.Conditions {
		idx.ConditionByName[c.Canonical] = c
		addTerm(c.Canonical, entities.KindCondition, c.Canonical)
		for _, s := range c.Synonyms {
			addTerm(s, entities.KindCondition, c.Canonical)
		}
		for _, k := range c.Keywords {
			addKeyword(k, entities.KindCondition, c.Canonical)
		}
		if c.Pathway != "" {
			idx.PathwayForCondition[c.Canonical] = c.Pathway
		}
	}

	for _, m := range ref.Medications {
		idx.MedicationByName[m.Canonical] = m
		addTerm(m.Canonical, entities.KindMedication, m.Canonical)
		for _, s := range m.Synonyms {
			addTerm(s, entities.KindMedication, m.Canonical)
		}
		for _, k := range m.Keywords {
			addKeyword(k, entities.KindMedication, m.Canonical)
		}
	}

	for _, s := range ref.Specialties {
		idx.SpecialtyCode[s.Canonical] = s.Code
		addTerm(s.Canonical, entities.KindSpecialty, s.Canonical)
		for _, a := range s.Aliases {
			addTerm(a, entities.KindSpecialty, s.Canonical)
		}
	}

	for _, city := range ref.Cities {
		idx.Cities[entities.Normalize(city)] = city
	}

	for _, p := range ref.Pathways {
		idx.PathwayByName[p.Name] = p
	}

	for _, src := range ref.Sources {
		idx.SourceScore[src.Name] = src.QualityScore
	}

	// Longest term first, so multi-word synonyms win over their fragments
	// during span scanning.
	sort.SliceStable(idx.Terms, func(i, j int) bool {
		return len(idx.Terms[i].Term) > len(idx.Terms[j].Term)
	})

	return idx
}
