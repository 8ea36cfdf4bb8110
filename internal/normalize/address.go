package normalize

import (
	"regexp"
	"strings"
)

// addressRewrites collapses directional and street-type spellings onto one
// canonical abbreviation. Compound directionals come first so "northeast"
// never degrades into "ne ast". Applied to lowercase input.
var addressRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bnortheast\b`), "ne"},
	{regexp.MustCompile(`\bnorthwest\b`), "nw"},
	{regexp.MustCompile(`\bsoutheast\b`), "se"},
	{regexp.MustCompile(`\bsouthwest\b`), "sw"},
	{regexp.MustCompile(`\bnorth\b`), "n"},
	{regexp.MustCompile(`\bsouth\b`), "s"},
	{regexp.MustCompile(`\beast\b`), "e"},
	{regexp.MustCompile(`\bwest\b`), "w"},
	{regexp.MustCompile(`\bstreet\b`), "st"},
	{regexp.MustCompile(`\bavenue\b`), "ave"},
	{regexp.MustCompile(`\bboulevard\b`), "blvd"},
	{regexp.MustCompile(`\bdrive\b`), "dr"},
	{regexp.MustCompile(`\bplace\b`), "pl"},
	{regexp.MustCompile(`\blane\b`), "ln"},
	{regexp.MustCompile(`\broad\b`), "rd"},
	{regexp.MustCompile(`\bcircle\b`), "cir"},
	{regexp.MustCompile(`\bparkway\b`), "pkwy"},
	{regexp.MustCompile(`\bhighway\b`), "hwy"},
	{regexp.MustCompile(`\bapartment\b`), "apt"},
	{regexp.MustCompile(`\bsuite\b`), "ste"},
	{regexp.MustCompile(`\bunit\b`), "ste"},
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

// Address produces the lossy matching key for a postal address. Lowercase,
// abbreviations collapsed, punctuation stripped, whitespace collapsed. The
// result exists only for equality comparison and blocking; it cannot be used
// to reconstruct or display the address.
func Address(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, rw := range addressRewrites {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CityStateKey builds the coarse blocking key used by the fuzzy-title tier
// when addresses differ in detail but the locality matches.
func CityStateKey(city, state string) string {
	city = strings.ToLower(strings.TrimSpace(city))
	state = strings.ToLower(strings.TrimSpace(state))
	if city == "" || state == "" {
		return ""
	}
	return city + "|" + state
}
