package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/geocontext/internal/geo"
)

func TestPostgresStore_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO context_cache").
		WithArgs(pgxmock.AnyArg(), "wma", "wma", "limpopo", true, pgxmock.AnyArg(), "http://svc/wfs?SERVICE=WFS", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgres(mock)
	entry := testEntry(t, "wma", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Containing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := testEntry(t, "wma", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	data, err := ewkb.Marshal(entry.Geometry, ewkb.NDR)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "descriptor_key", "name", "value", "found", "st_asewkb", "source_uri", "expires_at"}).
		AddRow(entry.ID, "wma", "wma", "limpopo", true, data, entry.SourceURI, entry.ExpiresAt)

	mock.ExpectQuery("SELECT (.+) FROM context_cache").
		WithArgs("wma", 5.0, 5.0, 4326).
		WillReturnRows(rows)

	store := NewPostgres(mock)
	got, err := store.Containing(context.Background(), "wma", geo.Point{X: 5, Y: 5, SRID: 4326})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
	assert.Equal(t, "limpopo", got[0].Value)
	assert.Equal(t, 4326, got[0].Geometry.SRID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCountClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := testEntry(t, "wma", time.Now())

	mock.ExpectExec("DELETE FROM context_cache WHERE id").
		WithArgs(entry.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("DELETE FROM context_cache").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	store := NewPostgres(mock)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, entry.ID))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Clear(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
