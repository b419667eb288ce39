package prune

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yargnad/The-Crystalizer/internal/merge"
	"github.com/yargnad/The-Crystalizer/internal/parse"
	"github.com/yargnad/The-Crystalizer/internal/persona"
)

type recordingStore struct {
	saves [][]merge.Exchange
	err   error
}

func (r *recordingStore) SaveWorkingSet(_ context.Context, set []merge.Exchange) error {
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, set)
	return nil
}

func workingSet(n int) []merge.Exchange {
	p := persona.Persona{ID: "A", Name: "Alpha"}
	for i := 0; i < n; i++ {
		p.Exchanges = append(p.Exchanges, parse.TurnPair{UserText: "u", AssistantText: "a", Timestamp: int64(i)})
	}
	return merge.Single(p)
}

func TestToggleSelection(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{}
	s := New(workingSet(3), st)

	require.NoError(t, s.ToggleSelection(ctx, 1))
	assert.Equal(t, 2, s.SelectedCount())
	require.Len(t, st.saves, 1)
	assert.False(t, st.saves[0][1].Selected)

	require.NoError(t, s.ToggleSelection(ctx, 1))
	assert.Equal(t, 3, s.SelectedCount())

	err := s.ToggleSelection(ctx, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, s.ToggleSelection(ctx, -1), ErrIndexOutOfRange)
	assert.Len(t, st.saves, 2, "failed toggles do not persist")
}

func TestToggleExpandedPersists(t *testing.T) {
	st := &recordingStore{}
	s := New(workingSet(2), st)
	require.NoError(t, s.ToggleExpanded(context.Background(), 0))

	x, err := s.At(0)
	require.NoError(t, err)
	assert.True(t, x.Expanded)
	assert.Equal(t, 2, s.SelectedCount(), "expanding does not touch selection")
	require.Len(t, st.saves, 1)
	assert.True(t, st.saves[0][0].Expanded)
}

func TestBulkSelectionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(workingSet(4), &recordingStore{})

	require.NoError(t, s.DeselectAll(ctx))
	require.NoError(t, s.DeselectAll(ctx))
	assert.Equal(t, 0, s.SelectedCount())

	require.NoError(t, s.ToggleSelection(ctx, 2))
	require.NoError(t, s.SelectAll(ctx))
	require.NoError(t, s.SelectAll(ctx))
	assert.Equal(t, s.Len(), s.SelectedCount())
}

func TestSavedSnapshotIsACopy(t *testing.T) {
	st := &recordingStore{}
	s := New(workingSet(1), st)
	require.NoError(t, s.ToggleSelection(context.Background(), 0))
	require.NoError(t, s.ToggleSelection(context.Background(), 0))
	assert.False(t, st.saves[0][0].Selected)
	assert.True(t, st.saves[1][0].Selected)
}

func TestStoreFailureSurfaces(t *testing.T) {
	boom := errors.New("disk full")
	s := New(workingSet(1), &recordingStore{err: boom})
	assert.ErrorIs(t, s.SelectAll(context.Background()), boom)
}

func TestSourcedFrom(t *testing.T) {
	s := New(nil, nil)
	assert.True(t, s.Empty())
	assert.False(t, s.SourcedFrom("A"))

	require.NoError(t, s.Replace(context.Background(), workingSet(2)))
	assert.True(t, s.SourcedFrom("A"))
	assert.False(t, s.SourcedFrom("B"))
	assert.Equal(t, 2, s.SelectedCount())
}
