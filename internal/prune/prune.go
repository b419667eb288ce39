package prune

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yargnad/The-Crystalizer/internal/merge"
)

var ErrIndexOutOfRange = errors.New("exchange index out of range")

// Store persists the whole working set after each mutation.
type Store interface {
	SaveWorkingSet(ctx context.Context, set []merge.Exchange) error
}

// State is the selection/expansion overlay over the current working set.
type State struct {
	set   []merge.Exchange
	store Store
}

func New(set []merge.Exchange, store Store) *State {
	return &State{set: set, store: store}
}

// Replace swaps in a new working set (after a merge or single-persona load)
// and persists it.
func (s *State) Replace(ctx context.Context, set []merge.Exchange) error {
	s.set = set
	return s.save(ctx)
}

func (s *State) ToggleSelection(ctx context.Context, i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.set[i].Selected = !s.set[i].Selected
	return s.save(ctx)
}

func (s *State) ToggleExpanded(ctx context.Context, i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	s.set[i].Expanded = !s.set[i].Expanded
	return s.save(ctx)
}

func (s *State) SelectAll(ctx context.Context) error {
	return s.setAll(ctx, true)
}

func (s *State) DeselectAll(ctx context.Context) error {
	return s.setAll(ctx, false)
}

func (s *State) setAll(ctx context.Context, selected bool) error {
	for i := range s.set {
		s.set[i].Selected = selected
	}
	return s.save(ctx)
}

func (s *State) SelectedCount() int {
	n := 0
	for _, x := range s.set {
		if x.Selected {
			n++
		}
	}
	return n
}

func (s *State) Len() int {
	return len(s.set)
}

func (s *State) Empty() bool {
	return len(s.set) == 0
}

// Exchanges returns a copy of the working set.
func (s *State) Exchanges() []merge.Exchange {
	return slices.Clone(s.set)
}

// At returns the exchange at i.
func (s *State) At(i int) (merge.Exchange, error) {
	if err := s.check(i); err != nil {
		return merge.Exchange{}, err
	}
	return s.set[i], nil
}

// SourcedFrom reports whether every exchange came from the given persona.
func (s *State) SourcedFrom(personaID string) bool {
	if len(s.set) == 0 {
		return false
	}
	for _, x := range s.set {
		if x.SourcePersonaID != personaID {
			return false
		}
	}
	return true
}

func (s *State) check(i int) error {
	if i < 0 || i >= len(s.set) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(s.set))
	}
	return nil
}

func (s *State) save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveWorkingSet(ctx, s.Exchanges()); err != nil {
		return fmt.Errorf("save working set: %w", err)
	}
	return nil
}
