// Package extractor resolves free-text queries into normalized domain
// entities (conditions, medications, specialties, locations, person names).
// It cascades five passes with fixed confidences: exact synonym lookup,
// fuzzy matching, structural regex patterns, proper-name recognition and
// contextual keywords. Extending coverage for a new condition or medication
// is a reference-data change only.
package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.Extractor = (*Extractor)(nil)

// Pass confidences.
const (
	confExact      = 1.0
	confPattern    = 0.85
	confFuzzy      = 0.8
	confNameRecog  = 0.75
	confContextual = 0.65
)

// fuzzyThreshold is the minimum normalized edit similarity for the fuzzy
// pass.
const fuzzyThreshold = 0.8

// Pre-compiled structural patterns.
var (
	drNameRegex = regexp.MustCompile(`(?i)\b(?:dr|docteur)\.?\s+(\p{Lu}[\p{L}'-]*(?:\s+\p{Lu}[\p{L}'-]*){0,2})`)

	postalCodeRegex = regexp.MustCompile(`\b(\d{5})\b`)

	dosageRegex = regexp.MustCompile(`(?i)\b(\p{L}[\p{L}-]{2,})\s+\d+(?:[.,]\d+)?\s*(?:mg|g|ml|µg)\b`)
)

// French words that look like proper-name candidates at the start of a
// capitalized run but never are.
var nameStopwords = map[string]bool{
	"je": true, "tu": true, "il": true, "elle": true, "nous": true,
	"vous": true, "ils": true, "elles": true, "le": true, "la": true,
	"les": true, "un": true, "une": true, "des": true, "mon": true,
	"ma": true, "mes": true, "combien": true, "comment": true, "trouve": true,
	"cherche": true, "trouver": true, "chercher": true, "quel": true,
	"quelle": true, "bonjour": true, "merci": true, "dr": true,
	"docteur": true, "find": true, "search": true,
}

// Extractor matches query text against the reference index.
type Extractor struct {
	store interfaces.DataStore
}

// New creates an extractor reading the reference tables from store.
func New(store interfaces.DataStore) *Extractor {
	return &Extractor{store: store}
}

// token is one word of the query with its byte span in the original text.
type token struct {
	raw   string
	norm  string
	start int
	end   int
}

// Extract runs the full cascade. It never fails; an empty slice means
// nothing matched. Output is deterministic for a given text and reference
// data: overlapping spans are resolved by confidence, then by pass
// precedence, and the survivors are ordered by span position.
func (e *Extractor) Extract(text string) []entities.ExtractedEntity {
	if strings.TrimSpace(text) == "" {
		return []entities.ExtractedEntity{}
	}

	idx := e.store.GetIndex()
	tokens := tokenize(text)

	var candidates []entities.ExtractedEntity
	candidates = append(candidates, matchTerms(tokens, idx)...)
	candidates = append(candidates, matchFuzzy(tokens, idx)...)
	candidates = append(candidates, matchPatterns(text)...)
	candidates = append(candidates, matchNames(text, tokens, idx)...)
	candidates = append(candidates, matchKeywords(tokens, idx)...)

	return resolveOverlaps(candidates)
}

// tokenize splits text into words with byte offsets. Hyphens stay inside
// words ("anti-inflammatoire"); apostrophes split ("d'angoisse").
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'
		if isWord && start == -1 {
			start = i
		}
		if !isWord && start != -1 {
			tokens = appendToken(tokens, text, start, i)
			start = -1
		}
	}
	if start != -1 {
		tokens = appendToken(tokens, text, start, len(text))
	}
	return tokens
}

func appendToken(tokens []token, text string, start, end int) []token {
	raw := strings.Trim(text[start:end], "-")
	if raw == "" {
		return tokens
	}
	offset := strings.Index(text[start:end], raw)
	start += offset
	end = start + len(raw)
	return append(tokens, token{raw: raw, norm: entities.Normalize(raw), start: start, end: end})
}

// matchTerms is the exact pass: every indexed synonym, longest first, slid
// over the token sequence.
func matchTerms(tokens []token, idx *entities.ReferenceIndex) []entities.ExtractedEntity {
	var out []entities.ExtractedEntity
	for _, term := range idx.Terms {
		words := strings.Fields(term.Term)
		if len(words) == 0 {
			continue
		}
		for i := 0; i+len(words) <= len(tokens); i++ {
			if !windowEquals(tokens[i:i+len(words)], words) {
				continue
			}
			start := tokens[i].start
			end := tokens[i+len(words)-1].end
			out = append(out, entities.ExtractedEntity{
				Kind:           term.Kind,
				CanonicalValue: term.Canonical,
				RawSpan:        spanText(tokens, i, i+len(words)),
				SpanStart:      start,
				SpanEnd:        end,
				Confidence:     confExact,
				Method:         entities.MethodExact,
			})
		}
	}
	return out
}

func windowEquals(window []token, words []string) bool {
	for i, w := range words {
		if window[i].norm != w {
			return false
		}
	}
	return true
}

func spanText(tokens []token, from, to int) string {
	parts := make([]string, 0, to-from)
	for _, t := range tokens[from:to] {
		parts = append(parts, t.raw)
	}
	return strings.Join(parts, " ")
}

// matchFuzzy compares tokens against the synonym table with normalized
// edit similarity. Only windows of the term's own word count are tried, and
// short tokens are skipped to keep noise out.
func matchFuzzy(tokens []token, idx *entities.ReferenceIndex) []entities.ExtractedEntity {
	var out []entities.ExtractedEntity
	for _, term := range idx.Terms {
		words := strings.Fields(term.Term)
		if len(words) == 0 || len(term.Term) < 4 {
			continue
		}
		for i := 0; i+len(words) <= len(tokens); i++ {
			window := tokens[i : i+len(words)]
			if len(window) == 1 && len(window[0].norm) < 4 {
				continue
			}
			joined := spanNorm(window)
			if joined == term.Term {
				continue // exact pass already covers it
			}
			if similarity(joined, term.Term) < fuzzyThreshold {
				continue
			}
			out = append(out, entities.ExtractedEntity{
				Kind:           term.Kind,
				CanonicalValue: term.Canonical,
				RawSpan:        spanText(tokens, i, i+len(words)),
				SpanStart:      window[0].start,
				SpanEnd:        window[len(window)-1].end,
				Confidence:     confFuzzy,
				Method:         entities.MethodFuzzy,
			})
		}
	}
	return out
}

func spanNorm(window []token) string {
	parts := make([]string, 0, len(window))
	for _, t := range window {
		parts = append(parts, t.norm)
	}
	return strings.Join(parts, " ")
}

// matchPatterns is the structural pass: "Dr <name>", postal codes and
// dosage forms.
func matchPatterns(text string) []entities.ExtractedEntity {
	var out []entities.ExtractedEntity

	for _, m := range drNameRegex.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		out = append(out, entities.ExtractedEntity{
			Kind:           entities.KindName,
			CanonicalValue: name,
			RawSpan:        text[m[0]:m[1]],
			SpanStart:      m[0],
			SpanEnd:        m[1],
			Confidence:     confPattern,
			Method:         entities.MethodPattern,
		})
	}

	for _, m := range postalCodeRegex.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, entities.ExtractedEntity{
			Kind:           entities.KindLocation,
			CanonicalValue: text[m[2]:m[3]],
			RawSpan:        text[m[2]:m[3]],
			SpanStart:      m[2],
			SpanEnd:        m[3],
			Confidence:     confPattern,
			Method:         entities.MethodPattern,
		})
	}

	for _, m := range dosageRegex.FindAllStringSubmatchIndex(text, -1) {
		word := text[m[2]:m[3]]
		if nameStopwords[entities.Normalize(word)] {
			continue
		}
		out = append(out, entities.ExtractedEntity{
			Kind:           entities.KindMedication,
			CanonicalValue: word,
			RawSpan:        text[m[0]:m[1]],
			SpanStart:      m[0],
			SpanEnd:        m[1],
			Confidence:     confPattern,
			Method:         entities.MethodPattern,
		})
	}

	return out
}

// matchNames is the recognition pass for proper names and known cities not
// caught by the earlier passes.
func matchNames(text string, tokens []token, idx *entities.ReferenceIndex) []entities.ExtractedEntity {
	var out []entities.ExtractedEntity

	known := make(map[string]bool)
	for _, term := range idx.Terms {
		if !strings.Contains(term.Term, " ") {
			known[term.Term] = true
		}
	}

	for i, t := range tokens {
		if city, ok := idx.Cities[t.norm]; ok {
			out = append(out, entities.ExtractedEntity{
				Kind:           entities.KindLocation,
				CanonicalValue: city,
				RawSpan:        t.raw,
				SpanStart:      t.start,
				SpanEnd:        t.end,
				Confidence:     confNameRecog,
				Method:         entities.MethodNameRecog,
			})
			continue
		}

		// Capitalized runs past the sentence start, unknown to the
		// reference tables, read as person names.
		if i == 0 || !startsUpper(t.raw) || known[t.norm] || nameStopwords[t.norm] || len([]rune(t.raw)) < 2 {
			continue
		}
		j := i
		for j+1 < len(tokens) && startsUpper(tokens[j+1].raw) && !known[tokens[j+1].norm] &&
			idx.Cities[tokens[j+1].norm] == "" && tokens[j+1].start-tokens[j].end <= 1 {
			j++
		}
		out = append(out, entities.ExtractedEntity{
			Kind:           entities.KindName,
			CanonicalValue: spanText(tokens, i, j+1),
			RawSpan:        text[tokens[i].start:tokens[j].end],
			SpanStart:      tokens[i].start,
			SpanEnd:        tokens[j].end,
			Confidence:     confNameRecog,
			Method:         entities.MethodNameRecog,
		})
	}
	return out
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// matchKeywords is the contextual pass: symptom-adjacent or drug-class
// words mapped to the entity they suggest without naming it.
func matchKeywords(tokens []token, idx *entities.ReferenceIndex) []entities.ExtractedEntity {
	var out []entities.ExtractedEntity
	for _, t := range tokens {
		for _, target := range idx.Keywords[t.norm] {
			out = append(out, entities.ExtractedEntity{
				Kind:           target.Kind,
				CanonicalValue: target.Canonical,
				RawSpan:        t.raw,
				SpanStart:      t.start,
				SpanEnd:        t.end,
				Confidence:     confContextual,
				Method:         entities.MethodContextual,
			})
		}
	}
	return out
}

// resolveOverlaps keeps the winner of every overlapping span group: higher
// confidence first, pass precedence on exact ties. Survivors come back in
// span order.
func resolveOverlaps(candidates []entities.ExtractedEntity) []entities.ExtractedEntity {
	if len(candidates) == 0 {
		return []entities.ExtractedEntity{}
	}

	ranked := make([]entities.ExtractedEntity, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Beats(ranked[j])
	})

	kept := make([]entities.ExtractedEntity, 0, len(ranked))
	for _, cand := range ranked {
		conflict := false
		for _, k := range kept {
			if cand.Overlaps(k) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, cand)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].SpanStart != kept[j].SpanStart {
			return kept[i].SpanStart < kept[j].SpanStart
		}
		return kept[i].Confidence > kept[j].Confidence
	})
	return kept
}
