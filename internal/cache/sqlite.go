package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geocontext/internal/geo"
)

// SQLiteStore persists entries in an embedded SQLite database. Geometries
// are stored as EWKB blobs and containment is evaluated in Go after
// decoding, since SQLite has no native spatial predicate.
type SQLiteStore struct {
	db      *sql.DB
	convert ConvertFunc
}

// NewSQLite opens (and migrates) a SQLite cache store at the given DSN,
// configuring WAL mode.
func NewSQLite(dsn string, convert ConvertFunc) (*SQLiteStore, error) {
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
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db, convert: convert}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS context_cache (
	id             TEXT PRIMARY KEY,
	descriptor_key TEXT NOT NULL,
	name           TEXT NOT NULL,
	value          TEXT NOT NULL,
	found          INTEGER NOT NULL,
	geometry       BLOB NOT NULL,
	source_uri     TEXT NOT NULL,
	expires_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_context_cache_key ON context_cache(descriptor_key);
`

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, e *Entry) error {
	data, err := ewkb.Marshal(e.Geometry, ewkb.NDR)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode geometry")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_cache (id, descriptor_key, name, value, found, geometry, source_uri, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.DescriptorKey, e.Name, e.Value, e.Found, data,
		e.SourceURI, e.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert entry")
	}
	return nil
}

// Containing implements Store.
func (s *SQLiteStore) Containing(ctx context.Context, descriptorKey string, pt geo.Point) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, descriptor_key, name, value, found, geometry, source_uri, expires_at
		FROM context_cache WHERE descriptor_key = ? ORDER BY rowid`,
		descriptorKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query entries")
	}
	defer rows.Close() //nolint:errcheck

	var out []*Entry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, err
		}
		contains, err := entryContains(e, pt, s.convert)
		if err != nil {
			return nil, err
		}
		if contains {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate entries")
	}
	return out, nil
}

func scanSQLiteEntry(rows *sql.Rows) (*Entry, error) {
	var (
		id, key, name, value, sourceURI, expires string
		found                                    bool
		data                                     []byte
	)
	if err := rows.Scan(&id, &key, &name, &value, &found, &data, &sourceURI, &expires); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan entry")
	}

	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: entry id %q", id)
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode geometry for %s", id)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, expires)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: expires_at %q", expires)
	}

	return &Entry{
		ID:            entryID,
		DescriptorKey: key,
		Name:          name,
		Value:         value,
		Found:         found,
		Geometry:      g,
		SourceURI:     sourceURI,
		ExpiresAt:     expiresAt,
	}, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM context_cache WHERE id = ?`, id.String()); err != nil {
		return eris.Wrap(err, "sqlite: delete entry")
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM context_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count entries")
	}
	return n, nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM context_cache`); err != nil {
		return eris.Wrap(err, "sqlite: clear")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
