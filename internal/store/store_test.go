package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "crys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testKV(t *testing.T, kv KV) {
	ctx := context.Background()

	got, err := kv.Get(ctx, "mergeQueue", "currentStep")
	require.NoError(t, err)
	assert.Empty(t, got, "missing keys are absent")

	require.NoError(t, kv.Set(ctx, map[string]any{
		"mergeQueue":      []string{"a", "b"},
		"currentStep":     3,
		"lastScrapedData": (*parse.ScrapeResult)(nil),
		"raw":             json.RawMessage(`{"x":1}`),
	}))

	got, err = kv.Get(ctx, "mergeQueue", "currentStep", "lastScrapedData", "raw", "nope")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(got["mergeQueue"]))
	assert.JSONEq(t, `3`, string(got["currentStep"]))
	assert.Equal(t, "null", string(got["lastScrapedData"]))
	assert.JSONEq(t, `{"x":1}`, string(got["raw"]))
	_, ok := got["nope"]
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, map[string]any{"currentStep": 4}))
	got, err = kv.Get(ctx, "currentStep", "mergeQueue")
	require.NoError(t, err)
	assert.JSONEq(t, `4`, string(got["currentStep"]))
	assert.JSONEq(t, `["a","b"]`, string(got["mergeQueue"]), "untouched keys survive")

	err = kv.Set(ctx, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemory())
}

func TestDBKV(t *testing.T) {
	db := openTestDB(t)
	testKV(t, db)

	keys, err := db.Keys(context.Background())
	require.NoError(t, err)
	assert.Contains(t, keys, "mergeQueue")
}

func TestDBSetConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, db.Set(ctx, map[string]any{fmt.Sprintf("k%d", i): i, "shared": i}))
		}(i)
	}
	wg.Wait()

	got, err := db.Get(ctx, "k0", "k19", "shared")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestDBReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crys.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Set(context.Background(), map[string]any{"currentStep": 2}))
	require.NoError(t, db.Close())

	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Get(context.Background(), "currentStep")
	require.NoError(t, err)
	assert.JSONEq(t, "2", string(got["currentStep"]))
}

func samplePersona(id string) persona.Persona {
	return persona.Persona{
		ID:           id,
		Name:         "Persona " + id,
		PlatformID:   "claude",
		PlatformName: "Claude",
		Timestamp:    1767323045000,
		Exchanges: []parse.TurnPair{
			{UserText: "how do goroutines work", AssistantText: "they are scheduled by the runtime", Timestamp: 1767323045000},
			{UserText: "thanks", Timestamp: 1767323046000},
		},
	}
}

func TestArchiveIndexAndDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.IndexPersona(ctx, samplePersona("p1")))
	row, err := db.GetPersonaRow(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Persona p1", row.Name)
	assert.Equal(t, 3, row.TurnCount)
	assert.Equal(t, "2026-01-02T03:04:05Z", row.CreatedAt)

	turns, err := db.GetTurns(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, 1, turns[2].PairIndex)

	n, err := db.FTSCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// re-indexing replaces rather than duplicates
	require.NoError(t, db.IndexPersona(ctx, samplePersona("p1")))
	n, err = db.TurnCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, db.DeletePersona(ctx, "p1"))
	row, err = db.GetPersonaRow(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, row)
	n, err = db.FTSCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReindex(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	stats, err := Reindex(ctx, db, []persona.Persona{samplePersona("a"), samplePersona("b")})
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 2, Updated: 2}, stats)

	changed := samplePersona("b")
	changed.Name = "renamed"
	stats, err = Reindex(ctx, db, []persona.Persona{changed})
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 1, Updated: 1, Pruned: 1}, stats)
	assert.Equal(t, "scanned=1 updated=1 skipped=0 pruned=1 errors=0", stats.String())

	stats, err = Reindex(ctx, db, []persona.Persona{changed})
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 1, Skipped: 1}, stats)

	count, err := db.PersonaCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
