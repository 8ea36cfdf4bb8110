package model

// MatchReason tags how a group of listings was identified as duplicates.
type MatchReason string

const (
	MatchExactTitleAddress         MatchReason = "exact_title_and_address"
	MatchExactSlug                 MatchReason = "exact_slug"
	MatchURL                       MatchReason = "url_match"
	MatchFuzzyTitle                MatchReason = "fuzzy_title_similarity"
	MatchSameAddressDifferentTitle MatchReason = "same_address_different_title"
)

// Confidence grades a match for downstream handling.
type Confidence string

const (
	ConfidenceCertain Confidence = "certain"
	ConfidenceHigh    Confidence = "high"
	// ConfidenceReview marks groups that must never be auto-merged
	// (possible distinct facilities at the same address).
	ConfidenceReview Confidence = "review"
)

// AutoMergeable reports whether groups at this confidence may be merged
// without a human decision.
func (c Confidence) AutoMergeable() bool {
	return c == ConfidenceCertain || c == ConfidenceHigh
}

// MatchGroup is a set of two or more listings believed to describe the same
// physical facility. Tier-4 groups (same address, different title) carry
// ConfidenceReview and are surfaced for manual review only.
type MatchGroup struct {
	ID         string      `json:"id"`
	Records    []*Listing  `json:"records"`
	Reason     MatchReason `json:"reason"`
	Confidence Confidence  `json:"confidence"`
	// Similarity is the lowest pairwise title similarity that bound the
	// group together. 1.0 for exact tiers.
	Similarity float64 `json:"similarity"`
	// PrimaryID is filled by the merger once a surviving record is chosen.
	PrimaryID string `json:"primary_id,omitempty"`
}

// BackfilledField records one field copied into the primary during a merge.
type BackfilledField struct {
	Field      string `json:"field"`
	FromID     string `json:"from_id"`
	FromSource Source `json:"from_source"`
}

// MergeAudit is the per-group audit trail produced by the merger: which IDs
// were absorbed and which fields were backfilled from which source.
type MergeAudit struct {
	GroupID     string            `json:"group_id"`
	Reason      MatchReason       `json:"reason"`
	PrimaryID   string            `json:"primary_id"`
	AbsorbedIDs []string          `json:"absorbed_ids"`
	Backfilled  []BackfilledField `json:"backfilled,omitempty"`
	// PhotosFrom is set when the Seniorly photo override replaced the
	// primary's photo set.
	PhotosFrom string `json:"photos_from,omitempty"`
}
