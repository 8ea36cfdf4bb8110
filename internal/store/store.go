// Package store persists listings and cleanup artifacts across runs. Two
// drivers exist: SQLite for local one-off runs and Postgres for the shared
// operator database.
package store

import (
	"context"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// ListingFilter specifies criteria for listing queries.
type ListingFilter struct {
	Source model.Source `json:"source,omitempty"`
	City   string       `json:"city,omitempty"`
	State  string       `json:"state,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the cleanup pipeline.
type Store interface {
	// Listings
	UpsertListings(ctx context.Context, listings []*model.Listing) (int, error)
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error)
	DeleteListings(ctx context.Context, ids []string) (int, error)
	CountBySource(ctx context.Context) (map[model.Source]int, error)

	// Match groups and merge audit trail
	SaveMatchGroups(ctx context.Context, groups []*model.MatchGroup) error
	ListReviewGroups(ctx context.Context) ([]model.MatchGroup, error)
	SaveMergeAudits(ctx context.Context, audits []model.MergeAudit) error

	// Unmapped care-type labels
	RecordUnmappedLabels(ctx context.Context, labels []model.UnmappedLabel) error
	ListUnmappedLabels(ctx context.Context) ([]model.UnmappedLabel, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
