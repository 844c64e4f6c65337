package normalize

import (
	"regexp"
	"strings"
)

var (
	dateTokenRe  = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	numberRe     = regexp.MustCompile(`\b\d+\b`)
	nonAlphaRe   = regexp.MustCompile(`[^a-z\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// CleanDescription normalizes a raw bank description for matching:
// lower-case, strip embedded dates and reference numbers, drop
// punctuation, collapse whitespace. Deterministic, no learned state.
func CleanDescription(raw string) string {
	s := strings.ToLower(raw)
	s = dateTokenRe.ReplaceAllString(s, " ")
	s = numberRe.ReplaceAllString(s, " ")
	s = nonAlphaRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// VendorHint returns the leading tokens of a cleaned description, the
// part most likely to identify the counterparty.
func VendorHint(cleaned string) string {
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}
