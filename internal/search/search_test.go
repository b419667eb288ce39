package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

func seed(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "crys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	personas := []persona.Persona{
		{
			ID: "p-go", Name: "Go chat", PlatformID: "claude", PlatformName: "Anthropic Claude",
			Timestamp: 1767323045000,
			Exchanges: []parse.TurnPair{
				{UserText: "explain goroutines please", AssistantText: "goroutines are lightweight threads", Timestamp: 1767323045000},
				{UserText: "and channels?", AssistantText: "channels connect goroutines", Timestamp: 1767323046000},
			},
		},
		{
			ID: "p-rust", Name: "Rust chat", PlatformID: "gemini", PlatformName: "Google Gemini",
			Timestamp: 1735700000000,
			Exchanges: []parse.TurnPair{
				{UserText: "what are goroutines in rust", AssistantText: "rust has async tasks instead", Timestamp: 1735700000000},
			},
		},
		{
			ID: "p-cjk", Name: "中文", PlatformID: "gemini", PlatformName: "Google Gemini",
			Timestamp: 1767323045000,
			Exchanges: []parse.TurnPair{
				{UserText: "什么是协程", AssistantText: "协程是轻量级线程", Timestamp: 1767323045000},
			},
		},
	}
	_, err = store.Reindex(context.Background(), db, personas)
	require.NoError(t, err)
	return db
}

func TestSearchFTSDedupsPerPersona(t *testing.T) {
	db := seed(t)
	res, err := Search(context.Background(), db, Options{Query: "goroutines"})
	require.NoError(t, err)
	require.Len(t, res, 2)

	ids := []string{res[0].PersonaID, res[1].PersonaID}
	assert.ElementsMatch(t, []string{"p-go", "p-rust"}, ids)
	for _, r := range res {
		assert.Contains(t, r.Snippet, ">>>")
	}
}

func TestSearchFilters(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	res, err := Search(ctx, db, Options{Query: "goroutines", Platform: "gemini"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "p-rust", res[0].PersonaID)

	res, err = Search(ctx, db, Options{Query: "goroutines", Since: "2026-01-01"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "p-go", res[0].PersonaID)

	res, err = Search(ctx, db, Options{Query: "threads", Role: "user"})
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = Search(ctx, db, Options{Query: "threads", Role: "assistant"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Go chat", res[0].Name)
}

func TestSearchCJK(t *testing.T) {
	db := seed(t)
	res, err := Search(context.Background(), db, Options{Query: "协程"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "p-cjk", res[0].PersonaID)
	assert.Contains(t, res[0].Snippet, ">>>协程<<<")
}

func TestSearchEmptyQuery(t *testing.T) {
	db := seed(t)
	_, err := Search(context.Background(), db, Options{Query: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestListAll(t *testing.T) {
	db := seed(t)
	res, err := ListAll(context.Background(), db, "gemini", 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "p-cjk", res[0].PersonaID, "newest first")
	assert.Equal(t, "2 turns", res[0].Snippet)
	assert.Equal(t, -1, res[0].TurnID)
}

func TestSearchLimit(t *testing.T) {
	db := seed(t)
	res, err := Search(context.Background(), db, Options{Query: "goroutines", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestBestPerPersona(t *testing.T) {
	hits := []Result{{PersonaID: "a", TurnID: 3}, {PersonaID: "a", TurnID: 1}, {PersonaID: "b"}, {PersonaID: "c"}}
	got := bestPerPersona(hits, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].TurnID)
	assert.Equal(t, "b", got[1].PersonaID)
}

func TestMakeSnippet(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	assert.Equal(t, "...brown >>>fox<<< jumps...", makeSnippet(text, "FOX", 6))
	assert.Equal(t, "the ...", makeSnippet(text, "cat", 2))
	assert.Equal(t, "short", makeSnippet("short", "zzz", 10))
	assert.Equal(t, ">>>ÄBC<<< d...", makeSnippet("ÄBC def", "äbc", 2))
}
