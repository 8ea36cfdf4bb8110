// Package merge collapses auto-mergeable match groups into one surviving
// record per group. Merging is backfill-only: a populated field on the
// primary is never overwritten, and a field populated anywhere in the group
// is never lost.
package merge

import (
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// Merger applies source-priority field merging to match groups.
type Merger struct {
	log *zap.Logger
}

// New creates a Merger.
func New() *Merger {
	return &Merger{log: zap.L().With(zap.String("component", "merger"))}
}

// Merge collapses a group into its primary record, mutating the primary in
// place, and returns the surviving record plus the audit trail. Deletion of
// the absorbed records is the caller's concern; they are only marked here.
// Callers must only pass auto-mergeable groups; review groups stay untouched.
func (m *Merger) Merge(g *model.MatchGroup) (*model.Listing, model.MergeAudit) {
	primary := selectPrimary(g.Records)
	g.PrimaryID = primary.ID

	audit := model.MergeAudit{
		GroupID:   g.ID,
		Reason:    g.Reason,
		PrimaryID: primary.ID,
	}

	// Secondaries in precedence order: higher-priority sources backfill
	// first, input order breaks ties.
	secondaries := rankSecondaries(g.Records, primary)
	for _, sec := range secondaries {
		audit.AbsorbedIDs = append(audit.AbsorbedIDs, sec.ID)
		m.backfill(primary, sec, &audit)
	}

	// Seniorly photos win even when Senior Place is primary: their photo
	// sets were consistently higher quality.
	if primary.Source != model.SourceSeniorly {
		for _, sec := range secondaries {
			if sec.Source == model.SourceSeniorly && len(sec.Photos) > 0 {
				primary.Photos = sec.Photos
				audit.PhotosFrom = sec.ID
				break
			}
		}
	}

	// Canonical types union across the group: a listing is never narrowed
	// to fewer types by a merge.
	primary.CanonicalTypes = unionTypes(g.Records)

	m.log.Info("merged group",
		zap.String("group_id", g.ID),
		zap.String("reason", string(g.Reason)),
		zap.String("primary_id", primary.ID),
		zap.Strings("absorbed", audit.AbsorbedIDs),
		zap.Int("backfilled", len(audit.Backfilled)),
	)
	return primary, audit
}

// selectPrimary picks the surviving record: Senior Place first (the
// authoritative CRM), then Seniorly, then first-encountered.
func selectPrimary(records []*model.Listing) *model.Listing {
	best := records[0]
	for _, r := range records[1:] {
		if r.Source.Precedence() < best.Source.Precedence() {
			best = r
		}
	}
	return best
}

func rankSecondaries(records []*model.Listing, primary *model.Listing) []*model.Listing {
	var out []*model.Listing
	// Stable: walk by precedence rank, preserving input order within a rank.
	for rank := 0; rank <= 2; rank++ {
		for _, r := range records {
			if r == primary || r.Source.Precedence() != rank {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// backfill copies sec's values into primary for every empty primary field.
func (m *Merger) backfill(primary, sec *model.Listing, audit *model.MergeAudit) {
	fill := func(field string, dst *string, src string) {
		if *dst != "" || src == "" {
			return
		}
		*dst = src
		audit.Backfilled = append(audit.Backfilled, model.BackfilledField{
			Field: field, FromID: sec.ID, FromSource: sec.Source,
		})
	}

	fill("title", &primary.Title, sec.Title)
	fill("address", &primary.Address, sec.Address)
	fill("city", &primary.City, sec.City)
	fill("state", &primary.State, sec.State)
	fill("zip_code", &primary.ZipCode, sec.ZipCode)
	fill("website", &primary.Website, sec.Website)
	fill("source_url", &primary.SourceURL, sec.SourceURL)
	fill("slug", &primary.Slug, sec.Slug)
	fill("featured_image", &primary.FeaturedImage, sec.FeaturedImage)

	for _, field := range model.PriceFieldNames {
		if primary.Price(field) == "" && sec.Price(field) != "" {
			primary.SetPrice(field, sec.Price(field))
			audit.Backfilled = append(audit.Backfilled, model.BackfilledField{
				Field: field, FromID: sec.ID, FromSource: sec.Source,
			})
		}
	}

	if len(primary.Photos) == 0 && len(sec.Photos) > 0 {
		primary.Photos = sec.Photos
		audit.Backfilled = append(audit.Backfilled, model.BackfilledField{
			Field: "photos", FromID: sec.ID, FromSource: sec.Source,
		})
	}
	if len(primary.Amenities) == 0 && len(sec.Amenities) > 0 {
		primary.Amenities = sec.Amenities
		audit.Backfilled = append(audit.Backfilled, model.BackfilledField{
			Field: "amenities", FromID: sec.ID, FromSource: sec.Source,
		})
	}
}

func unionTypes(records []*model.Listing) []model.CanonicalType {
	seen := make(map[model.CanonicalType]bool)
	for _, r := range records {
		for _, ct := range r.CanonicalTypes {
			seen[ct] = true
		}
	}
	var out []model.CanonicalType
	for _, ct := range model.CanonicalTypeOrder {
		if seen[ct] {
			out = append(out, ct)
		}
	}
	return out
}
