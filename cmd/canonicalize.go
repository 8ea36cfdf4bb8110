package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/fetcher"
	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/review"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
)

var (
	canonInPath       string
	canonOutPath      string
	canonSource       string
	canonUnmappedPath string
)

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize",
	Short: "Map raw care-type labels in an export to canonical types",
	Long:  "Reads a facility export, maps every raw care-type label to the canonical taxonomy, and writes the result with the serialized type column filled in. Labels that match nothing land in the unmapped report instead of being dropped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		source, err := parseSource(canonSource)
		if err != nil {
			return err
		}

		mapping, err := taxonomy.Load(cfg.Taxonomy.OverridePath)
		if err != nil {
			return err
		}
		canon := taxonomy.NewCanonicalizer(mapping)

		listings, err := fetcher.ReadListingsFile(cmd.Context(), canonInPath, source)
		if err != nil {
			return eris.Wrapf(err, "read export %s", canonInPath)
		}

		var (
			uncategorized int
			unmapped      []model.UnmappedLabel
		)
		for _, l := range listings {
			canon.Apply(l)
			if len(l.CanonicalTypes) == 0 {
				uncategorized++
			}
			for _, label := range l.UnmappedTypes {
				unmapped = append(unmapped, model.UnmappedLabel{
					Label:     label,
					ListingID: l.ID,
					Title:     l.Title,
					Source:    l.Source,
				})
			}
		}

		if err := fetcher.WriteListingsFile(canonOutPath, listings, mapping); err != nil {
			return eris.Wrapf(err, "write output %s", canonOutPath)
		}

		if canonUnmappedPath != "" {
			if err := review.WriteUnmappedCSV(canonUnmappedPath, unmapped); err != nil {
				return eris.Wrap(err, "write unmapped report")
			}
		}

		zap.L().Info("canonicalize complete",
			zap.Int("listings", len(listings)),
			zap.Int("uncategorized", uncategorized),
			zap.Int("unmapped_labels", len(unmapped)),
			zap.String("out", canonOutPath),
		)
		return nil
	},
}

func init() {
	canonicalizeCmd.Flags().StringVar(&canonInPath, "in", "", "path to CSV export (required)")
	canonicalizeCmd.Flags().StringVar(&canonOutPath, "out", "", "path for the canonicalized CSV (required)")
	canonicalizeCmd.Flags().StringVar(&canonSource, "source", "", "export source: seniorplace, seniorly, or other (required)")
	canonicalizeCmd.Flags().StringVar(&canonUnmappedPath, "unmapped-out", "", "optional CSV path for unmapped labels")
	_ = canonicalizeCmd.MarkFlagRequired("in")
	_ = canonicalizeCmd.MarkFlagRequired("out")
	_ = canonicalizeCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(canonicalizeCmd)
}
