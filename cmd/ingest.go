package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aplaceforseniors/listings-cli/internal/fetcher"
	"github.com/aplaceforseniors/listings-cli/internal/model"
)

var (
	ingestInPath string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a CSV or XLSX facility export into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, err := parseSource(ingestSource)
		if err != nil {
			return err
		}

		var listings []*model.Listing
		switch strings.ToLower(filepath.Ext(ingestInPath)) {
		case ".xlsx":
			listings, err = fetcher.ReadListingsXLSX(ingestInPath, source)
		default:
			listings, err = fetcher.ReadListingsFile(ctx, ingestInPath, source)
		}
		if err != nil {
			return eris.Wrapf(err, "read export %s", ingestInPath)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := st.UpsertListings(ctx, listings)
		if err != nil {
			return eris.Wrap(err, "upsert listings")
		}

		zap.L().Info("ingest complete",
			zap.String("file", ingestInPath),
			zap.String("source", string(source)),
			zap.Int("upserted", n),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInPath, "in", "", "path to CSV or XLSX export (required)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "export source: seniorplace, seniorly, or other (required)")
	_ = ingestCmd.MarkFlagRequired("in")
	_ = ingestCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(ingestCmd)
}
