package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

type statusSummary struct {
	Sources        map[model.Source]int `json:"sources"`
	Total          int                  `json:"total"`
	ReviewGroups   int                  `json:"review_groups"`
	UnmappedLabels int                  `json:"unmapped_labels"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus counts and pending review work",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		counts, err := st.CountBySource(ctx)
		if err != nil {
			return eris.Wrap(err, "count by source")
		}

		groups, err := st.ListReviewGroups(ctx)
		if err != nil {
			return eris.Wrap(err, "list review groups")
		}

		labels, err := st.ListUnmappedLabels(ctx)
		if err != nil {
			return eris.Wrap(err, "list unmapped labels")
		}

		summary := statusSummary{
			Sources:        counts,
			ReviewGroups:   len(groups),
			UnmappedLabels: len(labels),
		}
		for _, n := range counts {
			summary.Total += n
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
