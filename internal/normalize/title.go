// Package normalize holds the pure string-cleanup helpers shared by the
// matcher and the title-cleaning transform. All normalized forms here are
// lossy matching keys and are never used for display.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaceRe  = regexp.MustCompile(`\s{2,}`)
	punctRe       = regexp.MustCompile(`[^\w\s]`)
	legalSuffixRe = regexp.MustCompile(`\b(inc|llc|ltd|corp|corporation)\b`)
	// Leading only: "Plaza A" and "Plaza" are different facilities.
	articleRe = regexp.MustCompile(`^(the|a|an)\b`)

	// Display cleanup: trailing legal suffix with optional comma/period.
	displaySuffixRe = regexp.MustCompile(`(?i)[,\s]+(llc|l\.l\.c\.?|inc|corp|ltd)\.?$`)
	slashTailRe     = regexp.MustCompile(`\s*/.*$`)
	ellipsisTailRe  = regexp.MustCompile(`\s*\.\.\..*$`)
	doNotParenRe    = regexp.MustCompile(`(?i)\s*\([^)]*do not[^)]*\)`)
)

// stripDiacritics folds accented characters to their base form so that
// "Café Señora" and "Cafe Senora" produce the same key.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Title produces the lossy matching key for a facility name: lowercase,
// diacritics folded, punctuation stripped, legal suffixes and leading
// articles removed, whitespace collapsed.
func Title(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}
	s = punctRe.ReplaceAllString(s, "")
	s = legalSuffixRe.ReplaceAllString(s, "")
	s = articleRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanTitle normalizes a title for display/import: drops slash comments and
// ellipsis tails left by CRM operators, "(do not ...)" parentheticals, and a
// trailing legal suffix. Unlike Title this keeps case and punctuation.
func CleanTitle(s string) string {
	s = slashTailRe.ReplaceAllString(s, "")
	s = ellipsisTailRe.ReplaceAllString(s, "")
	s = doNotParenRe.ReplaceAllString(s, "")
	s = displaySuffixRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// titleBlocklist marks listings whose title is an operational note rather
// than a facility name. Checked against the lowercase title.
var titleBlocklist = []*regexp.Regexp{
	regexp.MustCompile(`\bdo\s+not\s+refer\b`),
	regexp.MustCompile(`\bdo\s+not\s+use\b`),
	regexp.MustCompile(`\bnot\s+signing\b`),
	regexp.MustCompile(`\bsurgery\b`),
	regexp.MustCompile(`\bsurgical\b`),
	regexp.MustCompile(`\breferral\s+only\b`),
	regexp.MustCompile(`\bprivate\s+pay\s+only\b`),
	regexp.MustCompile(`\bmedicaid\s+only\b`),
	regexp.MustCompile(`\bnot\s+accepting\b`),
	regexp.MustCompile(`\btemporarily\s+closed\b`),
	regexp.MustCompile(`\bunder\s+construction\b`),
	regexp.MustCompile(`\bcoming\s+soon\b`),
	regexp.MustCompile(`\bcall\s+for\s+availability\b`),
	regexp.MustCompile(`\breferral\s+fee\b`),
}

// BlockedTitle reports whether a listing title should be excluded from
// import entirely. Empty titles are blocked.
func BlockedTitle(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	if lower == "" {
		return true
	}
	for _, re := range titleBlocklist {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
