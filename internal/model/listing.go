package model

// Source identifies which directory a listing was scraped from.
// Merge precedence is driven by this: Senior Place is the operationally
// authoritative CRM source, Seniorly second, anything else last.
type Source string

const (
	SourceSeniorPlace Source = "seniorplace"
	SourceSeniorly    Source = "seniorly"
	SourceOther       Source = "other"
)

// Precedence returns the merge precedence rank for a source. Lower wins.
func (s Source) Precedence() int {
	switch s {
	case SourceSeniorPlace:
		return 0
	case SourceSeniorly:
		return 1
	default:
		return 2
	}
}

// CanonicalType is one of the fixed WordPress taxonomy care-type categories.
// The set never changes shape at runtime; only the label mapping tables are
// configurable.
type CanonicalType string

const (
	TypeAssistedLivingCommunity CanonicalType = "Assisted Living Community"
	TypeAssistedLivingHome      CanonicalType = "Assisted Living Home"
	TypeIndependentLiving       CanonicalType = "Independent Living"
	TypeMemoryCare              CanonicalType = "Memory Care"
	TypeNursingHome             CanonicalType = "Nursing Home"
	TypeHomeCare                CanonicalType = "Home Care"

	// TypeUncategorized is the sentinel for records with no mapped types.
	// It is never assigned alongside real types.
	TypeUncategorized CanonicalType = "Uncategorized"
)

// CanonicalTypeOrder fixes the output ordering for canonical type sets.
// Serialized taxonomy arrays list IDs in this order, not insertion order.
var CanonicalTypeOrder = []CanonicalType{
	TypeAssistedLivingCommunity,
	TypeAssistedLivingHome,
	TypeIndependentLiving,
	TypeMemoryCare,
	TypeNursingHome,
	TypeHomeCare,
}

// PriceFieldNames lists the per-listing price columns carried through the
// pipeline. Each is independently nullable (empty string = unknown).
var PriceFieldNames = []string{
	"monthly_base_price",
	"price_high_end",
	"second_person_fee",
	"assisted_living_price_low",
	"assisted_living_price_high",
	"independent_living_price_low",
	"independent_living_price_high",
	"memory_care_price_low",
	"memory_care_price_high",
}

// Listing is one scraped or imported facility record.
//
// Canonicalization never mutates a Listing beyond filling CanonicalTypes and
// UnmappedTypes (a pure derivation from RawCareTypes). Merging mutates the
// chosen primary record in place, backfill-only.
type Listing struct {
	ID            string            `json:"id,omitempty"`
	Slug          string            `json:"slug,omitempty"`
	Title         string            `json:"title"`
	Address       string            `json:"address"`
	City          string            `json:"city,omitempty"`
	State         string            `json:"state,omitempty"`
	ZipCode       string            `json:"zip_code,omitempty"`
	Website       string            `json:"website,omitempty"`
	SourceURL     string            `json:"source_url,omitempty"`
	Source        Source            `json:"source"`
	RawCareTypes  []string          `json:"raw_care_types,omitempty"`
	CanonicalTypes []CanonicalType  `json:"canonical_types,omitempty"`
	UnmappedTypes []string          `json:"unmapped_types,omitempty"`
	Prices        map[string]string `json:"prices,omitempty"`
	Photos        []string          `json:"photos,omitempty"`
	FeaturedImage string            `json:"featured_image,omitempty"`
	Amenities     []string          `json:"amenities,omitempty"`
}

// HasType reports whether the listing carries the given canonical type.
func (l *Listing) HasType(t CanonicalType) bool {
	for _, ct := range l.CanonicalTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Price returns the named price field, or "" when absent.
func (l *Listing) Price(field string) string {
	if l.Prices == nil {
		return ""
	}
	return l.Prices[field]
}

// SetPrice sets the named price field, allocating the map on first use.
func (l *Listing) SetPrice(field, value string) {
	if l.Prices == nil {
		l.Prices = make(map[string]string)
	}
	l.Prices[field] = value
}

// UnmappedLabel is one raw care-type label that failed to map to the
// canonical taxonomy. Collected for operator audit; never silently dropped.
type UnmappedLabel struct {
	Label     string `json:"label"`
	ListingID string `json:"listing_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Source    Source `json:"source"`
}
