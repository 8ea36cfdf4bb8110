// Package pipeline orchestrates the listing cleanup workflow: title
// cleaning, care type canonicalization, duplicate detection, and merging.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/match"
	"github.com/aplaceforseniors/listings-cli/internal/merge"
	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/normalize"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

// Pipeline runs the full cleanup sequence over a corpus of listings.
type Pipeline struct {
	canon   *taxonomy.Canonicalizer
	matcher *match.Matcher
	merger  *merge.Merger
}

// New creates a Pipeline with the given taxonomy mapping and matcher config.
func New(mapping *taxonomy.Mapping, matchCfg match.Config) *Pipeline {
	return &Pipeline{
		canon:   taxonomy.NewCanonicalizer(mapping),
		matcher: match.New(matchCfg),
		merger:  merge.New(),
	}
}

// BlockedTitle records a listing excluded from the corpus because its title
// matched the blocklist.
type BlockedTitle struct {
	ID    string
	Title string
}

// Report summarizes one pipeline run.
type Report struct {
	Total          int
	Blocked        []BlockedTitle
	Uncategorized  int
	UnmappedLabels []model.UnmappedLabel
	Groups         []*model.MatchGroup
	ReviewGroups   []*model.MatchGroup
	Merged         []*model.Listing
	Deletions      []string
	Audits         []model.MergeAudit
}

// Run processes the corpus end to end. The input records are mutated:
// titles are cleaned and canonical types filled in. The returned report
// holds the merged survivors, the IDs marked for deletion, and every group
// left for human review.
func (p *Pipeline) Run(corpus []*model.Listing) *Report {
	log := zap.L().With(zap.String("component", "pipeline"))
	log.Info("starting run", zap.Int("records", len(corpus)))

	report := &Report{Total: len(corpus)}

	// Title cleanup and blocklist filter before anything sees the titles.
	var kept []*model.Listing
	for _, l := range corpus {
		l.Title = normalize.CleanTitle(l.Title)
		if normalize.BlockedTitle(l.Title) {
			report.Blocked = append(report.Blocked, BlockedTitle{ID: l.ID, Title: l.Title})
			log.Info("blocked title", zap.String("id", l.ID), zap.String("title", l.Title))
			continue
		}
		kept = append(kept, l)
	}

	// Canonicalize care types.
	for _, l := range kept {
		p.canon.Apply(l)
		if len(l.CanonicalTypes) == 0 {
			report.Uncategorized++
		}
		for _, label := range l.UnmappedTypes {
			report.UnmappedLabels = append(report.UnmappedLabels, model.UnmappedLabel{
				Label:     label,
				ListingID: l.ID,
				Title:     l.Title,
				Source:    l.Source,
			})
		}
	}

	// Duplicate detection, then merge the auto-mergeable groups.
	res := p.matcher.Match(kept)
	report.Groups = res.Groups
	report.ReviewGroups = res.Review

	merged := make(map[string]bool)
	for _, g := range res.Groups {
		if !g.Confidence.AutoMergeable() {
			continue
		}
		primary, audit := p.merger.Merge(g)
		report.Merged = append(report.Merged, primary)
		report.Deletions = append(report.Deletions, audit.AbsorbedIDs...)
		report.Audits = append(report.Audits, audit)
		for _, r := range g.Records {
			merged[r.ID] = true
		}
	}

	// Records untouched by any merge survive as-is.
	for _, l := range kept {
		if !merged[l.ID] {
			report.Merged = append(report.Merged, l)
		}
	}

	log.Info("run complete",
		zap.Int("total", report.Total),
		zap.Int("blocked", len(report.Blocked)),
		zap.Int("uncategorized", report.Uncategorized),
		zap.Int("groups", len(report.Groups)),
		zap.Int("review_groups", len(report.ReviewGroups)),
		zap.Int("survivors", len(report.Merged)),
		zap.Int("deletions", len(report.Deletions)),
	)
	return report
}
