package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	testutil "github.com/aristath/stonks/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	return testutil.NewMemoryDB(t, "cache")
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	data := map[string]interface{}{"title": "SkibidiCoin to the moon", "score": 42.0}
	require.NoError(t, repo.Store("news", "feed", data, time.Hour))

	raw, err := repo.GetIfFresh("news", "feed")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "SkibidiCoin to the moon", parsed["title"])
	assert.Equal(t, 42.0, parsed["score"])
}

func TestStore_Upserts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Store("news", "feed", "first", time.Hour))
	require.NoError(t, repo.Store("news", "feed", "second", time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM news").Scan(&count))
	assert.Equal(t, 1, count)

	raw, err := repo.Get("news", "feed")
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(raw))
}

func TestGetIfFresh_ExpiredReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Store("news", "feed", "old", -time.Hour))

	raw, err := repo.GetIfFresh("news", "feed")
	require.NoError(t, err)
	assert.Nil(t, raw)

	// Stale fallback still returns it
	raw, err = repo.Get("news", "feed")
	require.NoError(t, err)
	assert.JSONEq(t, `"old"`, string(raw))
}

func TestGet_MissingKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	raw, err := repo.Get("news", "nope")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestInvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	assert.Error(t, repo.Store("news; DROP TABLE news", "k", "v", time.Hour))
	_, err := repo.Get("unknown", "k")
	assert.Error(t, err)
	_, err = repo.GetIfFresh("unknown", "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete("unknown", "k"))
	_, err = repo.DeleteExpired("unknown")
	assert.Error(t, err)
}

func TestDeleteAndDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Store("news", "fresh", "a", time.Hour))
	require.NoError(t, repo.Store("news", "stale1", "b", -time.Hour))
	require.NoError(t, repo.Store("news", "stale2", "c", -time.Minute))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), results["news"])

	require.NoError(t, repo.Delete("news", "fresh"))
	raw, err := repo.Get("news", "fresh")
	require.NoError(t, err)
	assert.Nil(t, raw)
}
