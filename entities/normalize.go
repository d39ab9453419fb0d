package entities

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after NFD decomposition, so
// "kinésithérapeute" and "kinesitherapeute" normalize identically.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s and folds French accents for matching. Reference
// tables and query text must both go through it before comparison.
// Typographic apostrophes fold to the ASCII one so "crise d’angoisse" and
// "crise d'angoisse" compare equal.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "’", "'")
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform failures on valid UTF-8 do not happen in practice;
		// degrade to plain lowercasing.
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// NormalizeWords splits s into normalized words, dropping punctuation edges.
func NormalizeWords(s string) []string {
	raw := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '?' || r == '!' || r == '.' || r == '(' || r == ')' || r == ':' || r == '\''
	})
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.Trim(w, "'\"-")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
