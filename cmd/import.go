package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/taxonomy"
	"github.com/aplaceforseniors/listings-cli/pkg/wordpress"
)

var (
	importStatus     string
	importTrashStale bool
)

type importSummary struct {
	Existing int  `json:"existing"`
	Created  int  `json:"created"`
	Updated  int  `json:"updated"`
	Trashed  int  `json:"trashed"`
	DryRun   bool `json:"dry_run"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Sync the cleaned corpus into the WordPress listings site",
	Long:  "Fetches every existing listing post, matches stored listings against them by source URL and normalized address, then creates the missing posts and updates the matched ones. With --trash-stale, posts that match nothing in the store are moved to the trash.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

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

		wp := wordpress.NewClient(
			cfg.WordPress.BaseURL,
			cfg.WordPress.Username,
			cfg.WordPress.AppPassword,
			wordpress.WithRateLimit(cfg.WordPress.RequestsPerSec),
			wordpress.WithDryRun(cfg.WordPress.DryRun),
		)

		index, err := wp.FetchExisting(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch existing listings")
		}

		summary := importSummary{Existing: index.Len(), DryRun: cfg.WordPress.DryRun}
		matched := make(map[int]bool)
		for _, l := range corpus {
			payload := buildPayload(l, mapping)

			if existing := index.Find(l.SourceURL, l.Address); existing != nil {
				matched[existing.ID] = true
				if err := wp.UpdateListing(ctx, existing.ID, payload); err != nil {
					return eris.Wrapf(err, "update listing %d (%s)", existing.ID, l.Title)
				}
				summary.Updated++
				continue
			}

			payload.Status = importStatus
			if _, err := wp.CreateListing(ctx, payload); err != nil {
				return eris.Wrapf(err, "create listing %s", l.Title)
			}
			summary.Created++
		}

		if importTrashStale {
			for _, post := range index.All() {
				if matched[post.ID] {
					continue
				}
				if err := wp.TrashListing(ctx, post.ID); err != nil {
					return eris.Wrapf(err, "trash listing %d", post.ID)
				}
				summary.Trashed++
			}
		}

		zap.L().Info("import complete",
			zap.Int("existing", summary.Existing),
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("trashed", summary.Trashed),
			zap.Bool("dry_run", summary.DryRun),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func buildPayload(l *model.Listing, mapping *taxonomy.Mapping) *wordpress.Payload {
	return &wordpress.Payload{
		Title: l.Title,
		Slug:  l.Slug,
		Meta: &wordpress.Meta{
			Address:        l.Address,
			City:           l.City,
			State:          l.State,
			ZipCode:        l.ZipCode,
			Website:        l.Website,
			SeniorPlaceURL: l.SourceURL,
			Type:           taxonomy.EncodeTypes(l.CanonicalTypes, mapping),
		},
	}
}

func init() {
	importCmd.Flags().StringVar(&importStatus, "status", "draft", "status for newly created posts (draft or publish)")
	importCmd.Flags().BoolVar(&importTrashStale, "trash-stale", false, "trash posts that match nothing in the store")
	rootCmd.AddCommand(importCmd)
}
