package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	slug            TEXT,
	title           TEXT NOT NULL,
	address         TEXT,
	city            TEXT,
	state           TEXT,
	zip_code        TEXT,
	website         TEXT,
	source_url      TEXT,
	source          TEXT NOT NULL,
	raw_care_types  TEXT,
	canonical_types TEXT,
	unmapped_types  TEXT,
	prices          TEXT,
	photos          TEXT,
	featured_image  TEXT,
	amenities       TEXT,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_groups (
	id         TEXT PRIMARY KEY,
	reason     TEXT NOT NULL,
	confidence TEXT NOT NULL,
	similarity REAL NOT NULL DEFAULT 0,
	primary_id TEXT,
	record_ids TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS merge_audits (
	group_id    TEXT PRIMARY KEY,
	reason      TEXT NOT NULL,
	primary_id  TEXT NOT NULL,
	absorbed    TEXT NOT NULL,
	backfilled  TEXT,
	photos_from TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS unmapped_labels (
	label      TEXT NOT NULL,
	listing_id TEXT NOT NULL,
	title      TEXT,
	source     TEXT NOT NULL,
	PRIMARY KEY (label, listing_id)
);

CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source);
CREATE INDEX IF NOT EXISTS idx_listings_city_state ON listings(city, state);
CREATE INDEX IF NOT EXISTS idx_listings_source_url ON listings(source_url);
CREATE INDEX IF NOT EXISTS idx_match_groups_confidence ON match_groups(confidence);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertListings(ctx context.Context, listings []*model.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			id, slug, title, address, city, state, zip_code, website,
			source_url, source, raw_care_types, canonical_types,
			unmapped_types, prices, photos, featured_image, amenities, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			zip_code = excluded.zip_code,
			website = excluded.website,
			source_url = excluded.source_url,
			source = excluded.source,
			raw_care_types = excluded.raw_care_types,
			canonical_types = excluded.canonical_types,
			unmapped_types = excluded.unmapped_types,
			prices = excluded.prices,
			photos = excluded.photos,
			featured_image = excluded.featured_image,
			amenities = excluded.amenities,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range listings {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		cols, err := listingJSONCols(l)
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx,
			l.ID, l.Slug, l.Title, l.Address, l.City, l.State, l.ZipCode,
			l.Website, l.SourceURL, string(l.Source),
			cols.rawTypes, cols.canonTypes, cols.unmapped,
			cols.prices, cols.photos, l.FeaturedImage, cols.amenities, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert listing %s", l.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return len(listings), nil
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("listing not found: %s", id)
	}
	return l, err
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.City != "" {
		query += ` AND city = ? COLLATE NOCASE`
		args = append(args, filter.City)
	}
	if filter.State != "" {
		query += ` AND state = ? COLLATE NOCASE`
		args = append(args, filter.State)
	}
	query += ` ORDER BY title`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) DeleteListings(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM listings WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete listings")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountBySource(ctx context.Context) (map[model.Source]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM listings GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by source")
	}
	defer rows.Close()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[model.Source(src)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count iterate")
}

func (s *SQLiteStore) SaveMatchGroups(ctx context.Context, groups []*model.MatchGroup) error {
	for _, g := range groups {
		var ids []string
		for _, r := range g.Records {
			ids = append(ids, r.ID)
		}
		idsJSON, err := json.Marshal(ids)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal record ids")
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO match_groups (id, reason, confidence, similarity, primary_id, record_ids)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				reason = excluded.reason,
				confidence = excluded.confidence,
				similarity = excluded.similarity,
				primary_id = excluded.primary_id,
				record_ids = excluded.record_ids`,
			g.ID, string(g.Reason), string(g.Confidence), g.Similarity,
			g.PrimaryID, string(idsJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save match group %s", g.ID)
		}
	}
	return nil
}

func (s *SQLiteStore) ListReviewGroups(ctx context.Context) ([]model.MatchGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mg.id, mg.reason, mg.confidence, mg.similarity, mg.primary_id, mg.record_ids
		FROM match_groups mg
		WHERE mg.confidence = ?
		ORDER BY mg.created_at`,
		string(model.ConfidenceReview),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review groups")
	}
	defer rows.Close()

	var groups []model.MatchGroup
	for rows.Next() {
		var g model.MatchGroup
		var primaryID sql.NullString
		var idsJSON string
		if err := rows.Scan(&g.ID, &g.Reason, &g.Confidence, &g.Similarity, &primaryID, &idsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match group")
		}
		g.PrimaryID = primaryID.String

		var ids []string
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record ids")
		}
		for _, id := range ids {
			l, err := s.GetListing(ctx, id)
			if err != nil {
				// Absorbed or deleted since the group was saved.
				continue
			}
			g.Records = append(g.Records, l)
		}
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "sqlite: review groups iterate")
}

func (s *SQLiteStore) SaveMergeAudits(ctx context.Context, audits []model.MergeAudit) error {
	for _, a := range audits {
		absorbedJSON, err := json.Marshal(a.AbsorbedIDs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal absorbed ids")
		}
		backfilledJSON, err := json.Marshal(a.Backfilled)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal backfilled")
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO merge_audits (group_id, reason, primary_id, absorbed, backfilled, photos_from)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(group_id) DO UPDATE SET
				reason = excluded.reason,
				primary_id = excluded.primary_id,
				absorbed = excluded.absorbed,
				backfilled = excluded.backfilled,
				photos_from = excluded.photos_from`,
			a.GroupID, string(a.Reason), a.PrimaryID,
			string(absorbedJSON), string(backfilledJSON), a.PhotosFrom,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save merge audit %s", a.GroupID)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordUnmappedLabels(ctx context.Context, labels []model.UnmappedLabel) error {
	for _, u := range labels {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO unmapped_labels (label, listing_id, title, source)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(label, listing_id) DO NOTHING`,
			u.Label, u.ListingID, u.Title, string(u.Source),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: record unmapped label %q", u.Label)
		}
	}
	return nil
}

func (s *SQLiteStore) ListUnmappedLabels(ctx context.Context) ([]model.UnmappedLabel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, listing_id, title, source FROM unmapped_labels ORDER BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unmapped labels")
	}
	defer rows.Close()

	var out []model.UnmappedLabel
	for rows.Next() {
		var u model.UnmappedLabel
		if err := rows.Scan(&u.Label, &u.ListingID, &u.Title, &u.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unmapped label")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: unmapped iterate")
}

// helpers

const listingColumns = `id, slug, title, address, city, state, zip_code, website,
	source_url, source, raw_care_types, canonical_types, unmapped_types,
	prices, photos, featured_image, amenities`

type jsonCols struct {
	rawTypes, canonTypes, unmapped, prices, photos, amenities string
}

func listingJSONCols(l *model.Listing) (jsonCols, error) {
	var c jsonCols
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&c.rawTypes, l.RawCareTypes},
		{&c.canonTypes, l.CanonicalTypes},
		{&c.unmapped, l.UnmappedTypes},
		{&c.prices, l.Prices},
		{&c.photos, l.Photos},
		{&c.amenities, l.Amenities},
	} {
		b, err := json.Marshal(f.v)
		if err != nil {
			return c, eris.Wrap(err, "sqlite: marshal listing field")
		}
		*f.dst = string(b)
	}
	return c, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (*model.Listing, error) {
	var l model.Listing
	var src string
	var rawTypes, canonTypes, unmapped, prices, photos, amenities sql.NullString

	err := row.Scan(
		&l.ID, &l.Slug, &l.Title, &l.Address, &l.City, &l.State, &l.ZipCode,
		&l.Website, &l.SourceURL, &src,
		&rawTypes, &canonTypes, &unmapped, &prices, &photos,
		&l.FeaturedImage, &amenities,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan listing")
	}
	l.Source = model.Source(src)

	for _, f := range []struct {
		col sql.NullString
		dst any
	}{
		{rawTypes, &l.RawCareTypes},
		{canonTypes, &l.CanonicalTypes},
		{unmapped, &l.UnmappedTypes},
		{prices, &l.Prices},
		{photos, &l.Photos},
		{amenities, &l.Amenities},
	} {
		if !f.col.Valid || f.col.String == "" || f.col.String == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(f.col.String), f.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal listing field")
		}
	}
	return &l, nil
}
