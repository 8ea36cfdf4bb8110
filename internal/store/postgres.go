package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aplaceforseniors/listings-cli/internal/db"
	"github.com/aplaceforseniors/listings-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// newPostgresWithPool wires an existing pool, used by tests with pgxmock.
func newPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
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
	raw_care_types  JSONB,
	canonical_types JSONB,
	unmapped_types  JSONB,
	prices          JSONB,
	photos          JSONB,
	featured_image  TEXT,
	amenities       JSONB,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_groups (
	id         TEXT PRIMARY KEY,
	reason     TEXT NOT NULL,
	confidence TEXT NOT NULL,
	similarity DOUBLE PRECISION NOT NULL DEFAULT 0,
	primary_id TEXT,
	record_ids JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS merge_audits (
	group_id    TEXT PRIMARY KEY,
	reason      TEXT NOT NULL,
	primary_id  TEXT NOT NULL,
	absorbed    JSONB NOT NULL,
	backfilled  JSONB,
	photos_from TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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

var listingUpsertColumns = []string{
	"id", "slug", "title", "address", "city", "state", "zip_code", "website",
	"source_url", "source", "raw_care_types", "canonical_types",
	"unmapped_types", "prices", "photos", "featured_image", "amenities",
	"updated_at",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertListings(ctx context.Context, listings []*model.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		cols, err := listingJSONCols(l)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			l.ID, l.Slug, l.Title, l.Address, l.City, l.State, l.ZipCode,
			l.Website, l.SourceURL, string(l.Source),
			cols.rawTypes, cols.canonTypes, cols.unmapped,
			cols.prices, cols.photos, l.FeaturedImage, cols.amenities, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "listings",
		Columns:      listingUpsertColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert listings")
	}
	return int(n), nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListingPgx(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("listing not found: %s", id)
	}
	return l, err
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Source != "" {
		query += ` AND source = ` + arg(string(filter.Source))
	}
	if filter.City != "" {
		query += ` AND lower(city) = lower(` + arg(filter.City) + `)`
	}
	if filter.State != "" {
		query += ` AND lower(state) = lower(` + arg(filter.State) + `)`
	}
	query += ` ORDER BY title`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListingPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) DeleteListings(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete listings")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountBySource(ctx context.Context) (map[model.Source]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM listings GROUP BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by source")
	}
	defer rows.Close()

	counts := make(map[model.Source]int)
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[model.Source(src)] = int(n)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count iterate")
}

func (s *PostgresStore) SaveMatchGroups(ctx context.Context, groups []*model.MatchGroup) error {
	for _, g := range groups {
		var ids []string
		for _, r := range g.Records {
			ids = append(ids, r.ID)
		}
		idsJSON, err := json.Marshal(ids)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal record ids")
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO match_groups (id, reason, confidence, similarity, primary_id, record_ids)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				reason = EXCLUDED.reason,
				confidence = EXCLUDED.confidence,
				similarity = EXCLUDED.similarity,
				primary_id = EXCLUDED.primary_id,
				record_ids = EXCLUDED.record_ids`,
			g.ID, string(g.Reason), string(g.Confidence), g.Similarity,
			g.PrimaryID, string(idsJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: save match group %s", g.ID)
		}
	}
	return nil
}

func (s *PostgresStore) ListReviewGroups(ctx context.Context) ([]model.MatchGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, reason, confidence, similarity, COALESCE(primary_id, ''), record_ids
		FROM match_groups
		WHERE confidence = $1
		ORDER BY created_at`,
		string(model.ConfidenceReview),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review groups")
	}
	defer rows.Close()

	type rawGroup struct {
		g   model.MatchGroup
		ids []string
	}
	var raws []rawGroup
	for rows.Next() {
		var r rawGroup
		var idsJSON []byte
		if err := rows.Scan(&r.g.ID, &r.g.Reason, &r.g.Confidence, &r.g.Similarity, &r.g.PrimaryID, &idsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match group")
		}
		if err := json.Unmarshal(idsJSON, &r.ids); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record ids")
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: review groups iterate")
	}

	var groups []model.MatchGroup
	for _, r := range raws {
		for _, id := range r.ids {
			l, err := s.GetListing(ctx, id)
			if err != nil {
				continue
			}
			r.g.Records = append(r.g.Records, l)
		}
		groups = append(groups, r.g)
	}
	return groups, nil
}

func (s *PostgresStore) SaveMergeAudits(ctx context.Context, audits []model.MergeAudit) error {
	for _, a := range audits {
		absorbedJSON, err := json.Marshal(a.AbsorbedIDs)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal absorbed ids")
		}
		backfilledJSON, err := json.Marshal(a.Backfilled)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal backfilled")
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO merge_audits (group_id, reason, primary_id, absorbed, backfilled, photos_from)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (group_id) DO UPDATE SET
				reason = EXCLUDED.reason,
				primary_id = EXCLUDED.primary_id,
				absorbed = EXCLUDED.absorbed,
				backfilled = EXCLUDED.backfilled,
				photos_from = EXCLUDED.photos_from`,
			a.GroupID, string(a.Reason), a.PrimaryID,
			string(absorbedJSON), string(backfilledJSON), a.PhotosFrom,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: save merge audit %s", a.GroupID)
		}
	}
	return nil
}

func (s *PostgresStore) RecordUnmappedLabels(ctx context.Context, labels []model.UnmappedLabel) error {
	for _, u := range labels {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO unmapped_labels (label, listing_id, title, source)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (label, listing_id) DO NOTHING`,
			u.Label, u.ListingID, u.Title, string(u.Source),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: record unmapped label %q", u.Label)
		}
	}
	return nil
}

func (s *PostgresStore) ListUnmappedLabels(ctx context.Context) ([]model.UnmappedLabel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT label, listing_id, COALESCE(title, ''), source FROM unmapped_labels ORDER BY label`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unmapped labels")
	}
	defer rows.Close()

	var out []model.UnmappedLabel
	for rows.Next() {
		var u model.UnmappedLabel
		if err := rows.Scan(&u.Label, &u.ListingID, &u.Title, &u.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unmapped label")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: unmapped iterate")
}

// scanListingPgx mirrors scanListing for pgx rows, where JSONB columns
// arrive as []byte.
func scanListingPgx(row scannable) (*model.Listing, error) {
	var l model.Listing
	var src string
	var rawTypes, canonTypes, unmapped, prices, photos, amenities []byte

	err := row.Scan(
		&l.ID, &l.Slug, &l.Title, &l.Address, &l.City, &l.State, &l.ZipCode,
		&l.Website, &l.SourceURL, &src,
		&rawTypes, &canonTypes, &unmapped, &prices, &photos,
		&l.FeaturedImage, &amenities,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan listing")
	}
	l.Source = model.Source(src)

	for _, f := range []struct {
		col []byte
		dst any
	}{
		{rawTypes, &l.RawCareTypes},
		{canonTypes, &l.CanonicalTypes},
		{unmapped, &l.UnmappedTypes},
		{prices, &l.Prices},
		{photos, &l.Photos},
		{amenities, &l.Amenities},
	} {
		if len(f.col) == 0 || string(f.col) == "null" {
			continue
		}
		if err := json.Unmarshal(f.col, f.dst); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal listing field")
		}
	}
	return &l, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
