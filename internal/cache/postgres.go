package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/geocontext/internal/db"
	"github.com/sells-group/geocontext/internal/geo"
)

// PostgresStore persists entries in PostGIS. Containment and per-entry
// reprojection are pushed into SQL (ST_Contains over a point transformed
// into each row's geometry SRID), so the convert collaborator is not
// needed here.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore over the given pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the cache table. PostGIS must already be installed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS context_cache (
			id             UUID PRIMARY KEY,
			descriptor_key TEXT NOT NULL,
			name           TEXT NOT NULL,
			value          TEXT NOT NULL,
			found          BOOLEAN NOT NULL,
			geometry       geometry NOT NULL,
			source_uri     TEXT NOT NULL,
			expires_at     TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_context_cache_key ON context_cache (descriptor_key);
		CREATE INDEX IF NOT EXISTS idx_context_cache_geom ON context_cache USING GIST (geometry);
	`)
	if err != nil {
		return eris.Wrap(err, "postgres: migrate cache table")
	}
	return nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, e *Entry) error {
	data, err := ewkb.Marshal(e.Geometry, ewkb.NDR)
	if err != nil {
		return eris.Wrap(err, "postgres: encode geometry")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO context_cache (id, descriptor_key, name, value, found, geometry, source_uri, expires_at)
		VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6), $7, $8)`,
		e.ID, e.DescriptorKey, e.Name, e.Value, e.Found, data, e.SourceURI, e.ExpiresAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert entry")
	}
	return nil
}

// Containing implements Store.
func (s *PostgresStore) Containing(ctx context.Context, descriptorKey string, pt geo.Point) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, descriptor_key, name, value, found, ST_AsEWKB(geometry), source_uri, expires_at
		FROM context_cache
		WHERE descriptor_key = $1
		  AND ST_Contains(geometry, ST_Transform(ST_SetSRID(ST_MakePoint($2, $3), $4), ST_SRID(geometry)))
		ORDER BY created_at`,
		descriptorKey, pt.X, pt.Y, pt.SRID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query containing")
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate containing")
	}
	return out, nil
}

func scanPostgresEntry(rows pgx.Rows) (*Entry, error) {
	var (
		e       Entry
		data    []byte
		expires time.Time
	)
	if err := rows.Scan(&e.ID, &e.DescriptorKey, &e.Name, &e.Value, &e.Found, &data, &e.SourceURI, &expires); err != nil {
		return nil, eris.Wrap(err, "postgres: scan entry")
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: decode geometry for %s", e.ID)
	}
	e.Geometry = g
	e.ExpiresAt = expires.UTC()
	return &e, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM context_cache WHERE id = $1`, id); err != nil {
		return eris.Wrap(err, "postgres: delete entry")
	}
	return nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM context_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count entries")
	}
	return n, nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM context_cache`); err != nil {
		return eris.Wrap(err, "postgres: clear")
	}
	return nil
}

// Close implements Store. The pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
