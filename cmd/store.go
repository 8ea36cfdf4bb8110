package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aplaceforseniors/listings-cli/internal/model"
	"github.com/aplaceforseniors/listings-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "listings.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// listAllListings pages through the store until the corpus is exhausted.
func listAllListings(ctx context.Context, st store.Store) ([]*model.Listing, error) {
	const pageSize = 1000

	var out []*model.Listing
	for offset := 0; ; offset += pageSize {
		page, err := st.ListListings(ctx, store.ListingFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		for i := range page {
			out = append(out, &page[i])
		}
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func parseSource(s string) (model.Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seniorplace", "senior-place", "senior_place":
		return model.SourceSeniorPlace, nil
	case "seniorly":
		return model.SourceSeniorly, nil
	case "other":
		return model.SourceOther, nil
	default:
		return "", eris.Errorf("unknown source %q (want seniorplace, seniorly, or other)", s)
	}
}
