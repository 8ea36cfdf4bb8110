package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/match"
	"github.com/aplaceforseniors/listings-cli/internal/pipeline"
	"github.com/aplaceforseniors/listings-cli/internal/review"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

var (
	dedupeReviewPath string
	dedupeApply      bool
)

type dedupeSummary struct {
	Total         int `json:"total"`
	Blocked       int `json:"blocked"`
	Uncategorized int `json:"uncategorized"`
	Unmapped      int `json:"unmapped_labels"`
	Groups        int `json:"groups"`
	ReviewGroups  int `json:"review_groups"`
	Merged        int `json:"merged"`
	Deletions     int `json:"deletions"`
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Run the cleanup pipeline over the stored corpus",
	Long:  "Cleans titles, canonicalizes care types, finds cross-source duplicates, and merges the certain ones. Same-address groups with different titles are saved for human review, never merged. Without --apply the store is left untouched and only the summary and review exports are produced.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mapping, err := taxonomy.Load(cfg.Taxonomy.OverridePath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		corpus, err := listAllListings(ctx, st)
		if err != nil {
			return eris.Wrap(err, "load corpus")
		}

		p := pipeline.New(mapping, match.Config{
			TitleSimilarityThreshold: cfg.Matcher.SimilarityThreshold,
			SlugSuffixes:             cfg.Matcher.SlugSuffixes,
		})
		report := p.Run(corpus)

		if dedupeReviewPath != "" {
			if strings.EqualFold(filepath.Ext(dedupeReviewPath), ".xlsx") {
				err = review.WriteWorkbook(dedupeReviewPath, report.ReviewGroups, report.UnmappedLabels)
			} else {
				err = review.WriteReviewCSV(dedupeReviewPath, report.ReviewGroups)
			}
			if err != nil {
				return eris.Wrap(err, "write review export")
			}
		}

		if dedupeApply {
			if _, err := st.UpsertListings(ctx, report.Merged); err != nil {
				return eris.Wrap(err, "save merged listings")
			}
			if _, err := st.DeleteListings(ctx, report.Deletions); err != nil {
				return eris.Wrap(err, "delete absorbed listings")
			}
			if err := st.SaveMatchGroups(ctx, append(report.Groups, report.ReviewGroups...)); err != nil {
				return eris.Wrap(err, "save match groups")
			}
			if err := st.SaveMergeAudits(ctx, report.Audits); err != nil {
				return eris.Wrap(err, "save merge audits")
			}
			if err := st.RecordUnmappedLabels(ctx, report.UnmappedLabels); err != nil {
				return eris.Wrap(err, "record unmapped labels")
			}
		}

		zap.L().Info("dedupe complete",
			zap.Int("groups", len(report.Groups)),
			zap.Int("review_groups", len(report.ReviewGroups)),
			zap.Int("deletions", len(report.Deletions)),
			zap.Bool("applied", dedupeApply),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dedupeSummary{
			Total:         report.Total,
			Blocked:       len(report.Blocked),
			Uncategorized: report.Uncategorized,
			Unmapped:      len(report.UnmappedLabels),
			Groups:        len(report.Groups),
			ReviewGroups:  len(report.ReviewGroups),
			Merged:        len(report.Merged),
			Deletions:     len(report.Deletions),
		})
	},
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeReviewPath, "review-out", "", "path for the review export (.csv or .xlsx)")
	dedupeCmd.Flags().BoolVar(&dedupeApply, "apply", false, "write merges and deletions back to the store")
	rootCmd.AddCommand(dedupeCmd)
}
