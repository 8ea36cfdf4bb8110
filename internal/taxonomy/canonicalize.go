package taxonomy

import (
	"strings"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// Canonicalizer converts raw scraped care-type labels into canonical types.
// It is a pure transform: no I/O, no state beyond the injected Mapping.
type Canonicalizer struct {
	mapping *Mapping
}

// NewCanonicalizer creates a Canonicalizer over the given mapping tables.
func NewCanonicalizer(m *Mapping) *Canonicalizer {
	return &Canonicalizer{mapping: m}
}

// Result holds the outcome of canonicalizing one record's raw labels.
type Result struct {
	// Types is the deduplicated canonical set in fixed priority order.
	// Empty when nothing mapped; the sentinel is applied at serialization,
	// never stored alongside real types.
	Types []model.CanonicalType
	// Unmapped lists labels that were neither mapped nor noise. They are
	// excluded from Types but must be surfaced to the operator.
	Unmapped []string
}

// Canonicalize maps raw labels to the canonical set. Accepts labels exactly
// as scraped: any case, untrimmed, comma-joined, or a whole serialized
// term-ID array. A facility may legitimately map to multiple canonical types
// (continuing-care campuses commonly do); all of them are preserved.
func (c *Canonicalizer) Canonicalize(raw []string) Result {
	seen := make(map[model.CanonicalType]bool)
	var res Result

	for _, label := range expandLabels(raw) {
		lower := strings.ToLower(strings.TrimSpace(label))
		if lower == "" {
			continue
		}

		// Serialized term-ID arrays pass through by ID lookup.
		if strings.HasPrefix(lower, "a:") {
			ids, err := DecodeTermIDs(lower)
			if err != nil {
				res.Unmapped = append(res.Unmapped, label)
				continue
			}
			for _, id := range ids {
				if ct, ok := c.mapping.TypeForID(id); ok && ct != model.TypeUncategorized {
					seen[ct] = true
				}
			}
			continue
		}

		if c.mapping.IsNoise(lower) {
			continue
		}

		ct, ok := c.mapping.Lookup(lower)
		if !ok {
			ct, ok = fallbackMatch(lower)
		}
		if !ok {
			res.Unmapped = append(res.Unmapped, strings.TrimSpace(label))
			continue
		}
		seen[ct] = true
	}

	for _, ct := range model.CanonicalTypeOrder {
		if seen[ct] {
			res.Types = append(res.Types, ct)
		}
	}
	return res
}

// expandLabels splits comma-joined label strings while leaving serialized
// arrays (which contain no commas) intact.
func expandLabels(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// fallbackMatch covers partial labels the table misses, e.g. "Assisted
// Living - Phoenix" badges. Order matters: the more specific phrases first.
func fallbackMatch(lower string) (model.CanonicalType, bool) {
	switch {
	case strings.Contains(lower, "memory care"):
		return model.TypeMemoryCare, true
	case strings.Contains(lower, "home care"),
		strings.Contains(lower, "home health"),
		strings.Contains(lower, "in-home care"):
		return model.TypeHomeCare, true
	case strings.Contains(lower, "board and care"),
		strings.Contains(lower, "care home"):
		return model.TypeAssistedLivingHome, true
	case strings.Contains(lower, "assisted living"):
		return model.TypeAssistedLivingCommunity, true
	case strings.Contains(lower, "independent"):
		return model.TypeIndependentLiving, true
	case strings.Contains(lower, "nursing"):
		return model.TypeNursingHome, true
	default:
		return "", false
	}
}

// Apply canonicalizes a listing in place: fills CanonicalTypes and
// UnmappedTypes from RawCareTypes. The rest of the record is untouched.
func (c *Canonicalizer) Apply(l *model.Listing) Result {
	res := c.Canonicalize(l.RawCareTypes)
	l.CanonicalTypes = res.Types
	l.UnmappedTypes = res.Unmapped
	return res
}
