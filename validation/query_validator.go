// Package validation guards the service boundary: free-text queries,
// session identifiers and medication codes are checked here before they
// reach the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mediflux/assistant-api/interfaces"
)

// Pre-compiled patterns, compiled once at package initialization.
var (
	// Query text: any letters/digits plus the punctuation of natural
	// French questions. Unicode classes cover accented characters.
	queryTextRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'’?!,;:()€%/°"«»]+$`)

	sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// Dangerous substrings scanned with strings.Contains, which is much
	// faster than regex for plain patterns. Shell/SQL separators that
	// occur in normal prose are deliberately absent: query text is never
	// executed, only matched and forwarded as JSON.
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "@import", "binding(", "behavior(",
		"union select", "drop table", "delete from", "insert into",
		"xp_", "sp_", "exec(", "execute(",
		"$(", "${", "`",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}
)

const (
	maxQueryLength = 500
	maxQueryWords  = 80
)

// QueryValidatorImpl implements the interfaces.QueryValidator interface
type QueryValidatorImpl struct{}

// Compile-time check
var _ interfaces.QueryValidator = (*QueryValidatorImpl)(nil)

// NewQueryValidator creates a new query validator
func NewQueryValidator() *QueryValidatorImpl {
	return &QueryValidatorImpl{}
}

// ValidateQueryText checks a free-text query for abusive input. An empty
// query is NOT rejected here: the orchestrator owns the empty-query
// clarification flow, this validator only blocks hostile payloads.
func (v *QueryValidatorImpl) ValidateQueryText(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) > maxQueryLength {
		return fmt.Errorf("query too long: maximum %d characters", maxQueryLength)
	}

	if words := strings.Fields(text); len(words) > maxQueryWords {
		return fmt.Errorf("query too complex: maximum %d words allowed", maxQueryWords)
	}

	lowerText := strings.ToLower(text)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerText, pattern) {
			return fmt.Errorf("query contains potentially dangerous content")
		}
	}

	if !queryTextRegex.MatchString(text) {
		return fmt.Errorf("query contains invalid characters. Only letters, numbers and common punctuation are allowed")
	}

	if hasExcessiveRepetition(text) {
		return fmt.Errorf("query contains excessive character repetition")
	}

	return nil
}

// ValidateSessionID checks a session identifier. Empty means anonymous and
// is accepted.
func (v *QueryValidatorImpl) ValidateSessionID(id string) error {
	if id == "" {
		return nil
	}

	if !sessionIDRegex.MatchString(id) {
		return fmt.Errorf("session id must be 1-64 characters of letters, digits, hyphen or underscore")
	}

	return nil
}

// ValidateCIS validates CIS codes
// CIS codes are numeric identifiers 8 digits long
// No regex used - strconv.Atoi() validates numeric format for free
func (v *QueryValidatorImpl) ValidateCIS(input string) (int, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return -1, fmt.Errorf("input cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return -1, fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
	}

	if len(trimmedInput) != 8 {
		return -1, fmt.Errorf("CIS should have 8 digits")
	}

	cis, err := strconv.Atoi(trimmedInput)
	if err != nil {
		return -1, fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
	}

	return cis, nil
}

// hasExcessiveRepetition checks for the same byte repeated more than 10
// times consecutively.
func hasExcessiveRepetition(input string) bool {
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
