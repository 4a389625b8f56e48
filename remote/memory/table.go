package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
)

type rules[T any] struct {
	id    func(*T) int64
	setID func(*T, int64)
	// owner is nil for shared rows.
	owner func(*T) string
	// keep copies stored fields an update leaves blank.
	keep       func(row, stored *T)
	publicRead bool
	readOnly   bool
	// unique reports whether two rows collide on a unique column.
	unique func(a, b *T) bool
}

func ownedRules[T any, PT interface {
	*T
	model.Owned
}]() rules[T] {
	return rules[T]{
		id:    func(row *T) int64 { return PT(row).GetID() },
		setID: func(row *T, id int64) { PT(row).SetID(id) },
		owner: func(row *T) string { return PT(row).Owner() },
		keep: func(row, stored *T) {
			PT(row).KeepCreated(PT(stored).Created())
		},
	}
}

type table[T any] struct {
	s     *Store
	name  string
	rules rules[T]
	seq   int64
	rows  map[int64]T
}

func newTable[T any](s *Store, name string, r rules[T]) *table[T] {
	return &table[T]{s: s, name: name, rules: r, rows: make(map[int64]T)}
}

// put stores row, assigning an id when it has none. Callers hold s.mu.
func (t *table[T]) put(row T) T {
	id := t.rules.id(&row)
	if id == 0 {
		t.seq++
		id = t.seq
		t.rules.setID(&row, id)
	} else if id > t.seq {
		t.seq = id
	}
	t.rows[id] = row
	return row
}

func (t *table[T]) visible(row *T) bool {
	if t.rules.owner == nil || t.rules.publicRead {
		return true
	}
	return t.s.session != nil && t.rules.owner(row) == t.s.session.ID
}

func (t *table[T]) checkWrite(row *T, op string) error {
	if t.rules.readOnly {
		return goerrors.New("permission denied for table "+t.name, goerrors.CategoryAuth)
	}
	if t.s.session == nil {
		return remote.NoSession(op)
	}
	if t.rules.owner != nil && t.rules.owner(row) != t.s.session.ID {
		return rlsViolation(t.name)
	}
	return nil
}

func (t *table[T]) sorted() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) Select(ctx context.Context, filters ...remote.Filter) ([]T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.enter(t.name + ".select"); err != nil {
		return nil, err
	}

	out := []T{}
	for _, row := range t.sorted() {
		if t.visible(&row) && matches(row, filters) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *table[T]) Insert(ctx context.Context, row T) (T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var zero T
	op := t.name + ".insert"
	if err := t.s.enter(op); err != nil {
		return zero, err
	}
	if err := t.checkWrite(&row, op); err != nil {
		return zero, err
	}
	if _, exists := t.rows[t.rules.id(&row)]; exists {
		return zero, duplicate(t.name, "id")
	}
	if err := t.checkUnique(&row); err != nil {
		return zero, err
	}
	return t.put(row), nil
}

func (t *table[T]) Upsert(ctx context.Context, row T) (T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var zero T
	op := t.name + ".upsert"
	if err := t.s.enter(op); err != nil {
		return zero, err
	}
	if err := t.checkWrite(&row, op); err != nil {
		return zero, err
	}
	existing, ok := t.rows[t.rules.id(&row)]
	if ok && t.rules.owner != nil && t.rules.owner(&existing) != t.s.session.ID {
		return zero, rlsViolation(t.name)
	}
	if ok && t.rules.keep != nil {
		t.rules.keep(&row, &existing)
	}
	if err := t.checkUnique(&row); err != nil {
		return zero, err
	}
	return t.put(row), nil
}

func (t *table[T]) Delete(ctx context.Context, filters ...remote.Filter) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	op := t.name + ".delete"
	if err := t.s.enter(op); err != nil {
		return err
	}
	if t.rules.readOnly {
		return goerrors.New("permission denied for table "+t.name, goerrors.CategoryAuth)
	}
	if len(filters) == 0 {
		return goerrors.New("delete from "+t.name+" requires a filter", goerrors.CategoryBadInput)
	}

	for id, row := range t.rows {
		owned := t.rules.owner == nil || (t.s.session != nil && t.rules.owner(&row) == t.s.session.ID)
		if owned && matches(row, filters) {
			delete(t.rows, id)
		}
	}
	return nil
}

func (t *table[T]) checkUnique(row *T) error {
	if t.rules.unique == nil {
		return nil
	}
	id := t.rules.id(row)
	for otherID, other := range t.rows {
		if otherID != id && t.rules.unique(row, &other) {
			return duplicate(t.name, "unique")
		}
	}
	return nil
}

func rlsViolation(name string) error {
	return goerrors.New("new row violates row-level security policy for table "+name, goerrors.CategoryAuth)
}

func duplicate(name, constraint string) error {
	return goerrors.New("duplicate key value violates "+constraint+" constraint on "+name, goerrors.CategoryConflict).
		WithTextCode(remote.CodeDuplicate)
}

// matches compares filters against the row's JSON columns.
func matches(row any, filters []remote.Filter) bool {
	if len(filters) == 0 {
		return true
	}
	data, err := json.Marshal(row)
	if err != nil {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var cols map[string]any
	if err := dec.Decode(&cols); err != nil {
		return false
	}
	for _, f := range filters {
		v, ok := cols[f.Column]
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}
