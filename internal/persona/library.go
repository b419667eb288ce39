package persona

import (
	"encoding/json"
	"errors"
	"slices"
)

var ErrAlreadyQueued = errors.New("persona already in merge queue")

// Library is the insertion-ordered persona collection. It marshals as a
// plain JSON array.
type Library struct {
	items []Persona
}

func NewLibrary(items ...Persona) *Library {
	return &Library{items: slices.Clone(items)}
}

func (l *Library) Add(p Persona) {
	l.items = append(l.items, p)
}

func (l *Library) Get(id string) (Persona, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return Persona{}, false
}

func (l *Library) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// All returns a copy of the personas in insertion order.
func (l *Library) All() []Persona {
	return slices.Clone(l.items)
}

func (l *Library) Len() int {
	return len(l.items)
}

// Position is the persona's insertion index, used for its library color.
func (l *Library) Position(id string) int {
	return l.index(id)
}

func (l *Library) index(id string) int {
	return slices.IndexFunc(l.items, func(p Persona) bool { return p.ID == id })
}

func (l *Library) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

func (l *Library) UnmarshalJSON(data []byte) error {
	var items []Persona
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	l.items = items
	return nil
}

// Queue is the ordered list of persona ids selected for merging. Ids are weak
// references: a deleted persona may still be listed until it is dequeued.
type Queue []string

func (q Queue) Contains(id string) bool {
	return slices.Contains(q, id)
}

func (q *Queue) Enqueue(id string) error {
	if q.Contains(id) {
		return ErrAlreadyQueued
	}
	*q = append(*q, id)
	return nil
}

func (q *Queue) Remove(id string) bool {
	before := len(*q)
	*q = slices.DeleteFunc(*q, func(s string) bool { return s == id })
	return len(*q) != before
}

func (q Queue) MoveUp(i int) bool {
	if i <= 0 || i >= len(q) {
		return false
	}
	q[i-1], q[i] = q[i], q[i-1]
	return true
}

func (q Queue) MoveDown(i int) bool {
	if i < 0 || i >= len(q)-1 {
		return false
	}
	q[i], q[i+1] = q[i+1], q[i]
	return true
}

func (q Queue) MarshalJSON() ([]byte, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(q))
}
