package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func insertTestUser(t *testing.T, db *SQLiteDB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password_hash, phone, department, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), "Test User", id.String()+"@example.com", "hash", "", "", now, now)
	require.NoError(t, err)
	return id
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, EnsureSchema(context.Background(), db))
}

func TestQueryExecRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ownerID := insertTestUser(t, db)

	pubID := uuid.New()
	now := time.Now().UTC()
	affected, err := db.Exec(ctx,
		`INSERT INTO publications (id, owner_id, title, description, price, state, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pubID.String(), ownerID.String(), "Bike", "A red bike", "149.99", "active", now, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rows, err := db.Query(ctx, `SELECT id, title, price, created_at FROM publications WHERE id = ?`, pubID.String())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, pubID, AsUUID(rows[0]["id"]))
	assert.Equal(t, "Bike", AsString(rows[0]["title"]))
	assert.Equal(t, "149.99", AsDecimal(rows[0]["price"]).StringFixed(2))
	assert.WithinDuration(t, now, AsTime(rows[0]["created_at"]), time.Second)
}

func TestWithTxCommit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ownerID := insertTestUser(t, db)

	pubID := uuid.New()
	now := time.Now().UTC()
	err := db.WithTx(ctx, func(q Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO publications (id, owner_id, title, description, price, state, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			pubID.String(), ownerID.String(), "Chair", "Wooden chair", "20", "active", now, now)
		return err
	})
	require.NoError(t, err)

	rows, err := db.Query(ctx, `SELECT id FROM publications WHERE id = ?`, pubID.String())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ownerID := insertTestUser(t, db)

	pubID := uuid.New()
	now := time.Now().UTC()
	boom := errors.New("boom")
	err := db.WithTx(ctx, func(q Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO publications (id, owner_id, title, description, price, state, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			pubID.String(), ownerID.String(), "Chair", "Wooden chair", "20", "active", now, now)
		if err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := db.Query(ctx, `SELECT id FROM publications WHERE id = ?`, pubID.String())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteCascadesToImages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ownerID := insertTestUser(t, db)

	pubID := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(ctx,
		`INSERT INTO publications (id, owner_id, title, description, price, state, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pubID.String(), ownerID.String(), "Lamp", "Desk lamp", "15", "active", now, now)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO images (id, publication_id, url, storage_key, sort_order) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), pubID.String(), "/uploads/a.jpg", "publications/a.jpg", 0)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `DELETE FROM publications WHERE id = ?`, pubID.String())
	require.NoError(t, err)

	rows, err := db.Query(ctx, `SELECT id FROM images WHERE publication_id = ?`, pubID.String())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
