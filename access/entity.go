package access

import (
	"context"
	"fmt"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/notify"
	"github.com/goliatone/go-workout-tracker/query"
	"github.com/goliatone/go-workout-tracker/remote"
)

// Input is an upsert payload for rows of type T.
type Input[T any] interface {
	Validate() error
	IsInsert() bool
	Row() *T
}

// EntityDef describes one user-owned table.
type EntityDef[T any, In Input[T]] struct {
	// Name is the singular lowercase noun used in messages, e.g. "program".
	Name      string
	Kind      query.Kind
	ListScope string
	ItemScope string
	Table     func(remote.Service) remote.Table[T]
	// Duplicate returns an insert payload copying row.
	Duplicate func(row T) In
	// WithNotes returns an update payload for row with notes replaced.
	WithNotes func(row T, notes *string) In
}

// Entity reads and writes the rows of one user-owned table. PT is the pointer
// type of T and carries ownership and timestamps.
type Entity[T any, PT interface {
	*T
	model.Owned
}, In Input[T]] struct {
	deps  Deps
	users UserSource
	def   EntityDef[T, In]
	label string
}

// Programs is the program access service.
type Programs = Entity[model.Program, *model.Program, model.ProgramInput]

// Exercises is the exercise access service.
type Exercises = Entity[model.Exercise, *model.Exercise, model.ExerciseInput]

// NewEntity builds an Entity for def.
func NewEntity[T any, PT interface {
	*T
	model.Owned
}, In Input[T]](deps Deps, users UserSource, def EntityDef[T, In]) *Entity[T, PT, In] {
	return &Entity[T, PT, In]{
		deps:  deps.withDefaults(def.Name + "s"),
		users: users,
		def:   def,
		label: strings.ToUpper(def.Name[:1]) + def.Name[1:],
	}
}

// ProgramDef describes the programs table.
func ProgramDef() EntityDef[model.Program, model.ProgramInput] {
	return EntityDef[model.Program, model.ProgramInput]{
		Name:      "program",
		Kind:      KindProgram,
		ListScope: ScopePrograms,
		ItemScope: ScopeProgram,
		Table:     func(s remote.Service) remote.Table[model.Program] { return s.Programs() },
		Duplicate: func(p model.Program) model.ProgramInput {
			in := model.ProgramInputFrom(p)
			in.ID = nil
			in.Title = p.Title + "- Copy"
			return in
		},
		WithNotes: func(p model.Program, notes *string) model.ProgramInput {
			in := model.ProgramInputFrom(p)
			in.Notes = notes
			return in
		},
	}
}

// ExerciseDef describes the exercises table.
func ExerciseDef() EntityDef[model.Exercise, model.ExerciseInput] {
	return EntityDef[model.Exercise, model.ExerciseInput]{
		Name:      "exercise",
		Kind:      KindExercise,
		ListScope: ScopeExercises,
		ItemScope: ScopeExercise,
		Table:     func(s remote.Service) remote.Table[model.Exercise] { return s.Exercises() },
		Duplicate: func(e model.Exercise) model.ExerciseInput {
			in := model.ExerciseInputFrom(e)
			in.ID = nil
			in.Title = e.Title + "- Copy"
			return in
		},
		WithNotes: func(e model.Exercise, notes *string) model.ExerciseInput {
			in := model.ExerciseInputFrom(e)
			in.Notes = notes
			return in
		},
	}
}

// NewPrograms builds the program service.
func NewPrograms(deps Deps, users UserSource) *Programs {
	return NewEntity[model.Program, *model.Program](deps, users, ProgramDef())
}

// NewExercises builds the exercise service.
func NewExercises(deps Deps, users UserSource) *Exercises {
	return NewEntity[model.Exercise, *model.Exercise](deps, users, ExerciseDef())
}

func (e *Entity[T, PT, In]) table() remote.Table[T] {
	return e.def.Table(e.deps.Remote)
}

// ListKey is the cache key of the signed-in user's list.
func (e *Entity[T, PT, In]) ListKey(userID string) query.Key {
	return query.NewKey(e.def.ListScope, e.def.ItemScope, userID)
}

// ItemKey is the cache key of a single row.
func (e *Entity[T, PT, In]) ItemKey(userID string, id int64) query.Key {
	return query.NewKey(e.def.ItemScope, userID, id)
}

func (e *Entity[T, PT, In]) user(ctx context.Context) *model.User {
	u, err := e.users.CurrentUser(ctx)
	if err != nil {
		e.deps.Logger.WarnContext(ctx, "resolve current user", "error", err)
		return nil
	}
	return u
}

// List returns every row owned by the signed-in user. It returns an empty list
// when signed out or when the backend fails; failures are notified.
func (e *Entity[T, PT, In]) List(ctx context.Context) ([]T, error) {
	u := e.user(ctx)
	if u == nil {
		return []T{}, nil
	}

	rows, err := query.Fetch(ctx, e.deps.Client, e.ListKey(u.ID), func(ctx context.Context) ([]T, error) {
		return e.table().Select(ctx, remote.Eq(remote.ColumnCreatedBy, u.ID))
	})
	if err != nil {
		e.deps.fail(ctx, "Failed to get "+e.def.Name+"s!", err)
		return []T{}, nil
	}
	return slices.Clone(rows), nil
}

// Get returns the row with id owned by the signed-in user.
func (e *Entity[T, PT, In]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	u := e.user(ctx)
	if u == nil {
		return zero, ErrNotAuthenticated
	}

	return query.Fetch(ctx, e.deps.Client, e.ItemKey(u.ID, id), func(ctx context.Context) (T, error) {
		rows, err := e.table().Select(ctx,
			remote.Eq(remote.ColumnID, id),
			remote.Eq(remote.ColumnCreatedBy, u.ID),
		)
		if err != nil {
			e.deps.fail(ctx, "Failed to get "+e.def.Name+"!", err)
			return zero, goerrors.Wrap(err, goerrors.CategoryExternal, "get "+e.def.Name)
		}
		if len(rows) == 0 {
			return zero, goerrors.New(fmt.Sprintf("No %s found by id %d", e.def.Name, id), goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"id": id})
		}
		return rows[0], nil
	})
}

// Upsert validates in, stamps ownership and timestamps, then inserts it or
// replaces the row with the same id. A remote failure is reported through the
// notifier and yields the zero row with a nil error.
func (e *Entity[T, PT, In]) Upsert(ctx context.Context, in In) (T, error) {
	var zero T
	if err := in.Validate(); err != nil {
		return zero, err
	}
	u := e.user(ctx)
	if u == nil {
		return zero, ErrNotAuthenticated
	}

	insert := in.IsInsert()
	verb, done := "update", "updated"
	if insert {
		verb, done = "create", "created"
	}

	row := in.Row()
	PT(row).SetOwner(u.ID)
	PT(row).Stamp(e.deps.Now(), insert)

	saved, err := e.table().Upsert(ctx, *row)
	if err != nil {
		e.deps.fail(ctx, "Failed to "+verb+" "+e.def.Name+"!", err)
		return zero, nil
	}

	e.deps.Notifier.Notify(ctx, notify.Success(e.label+" "+done+"!"))
	e.deps.invalidate(ctx, e.def.Kind)
	return saved, nil
}

// Delete removes the row with id owned by the signed-in user. Remote failures
// are notified, not returned.
func (e *Entity[T, PT, In]) Delete(ctx context.Context, id int64) error {
	u := e.user(ctx)
	if u == nil {
		return ErrNotAuthenticated
	}

	err := e.table().Delete(ctx,
		remote.Eq(remote.ColumnID, id),
		remote.Eq(remote.ColumnCreatedBy, u.ID),
	)
	if err != nil {
		e.deps.fail(ctx, "Failed to delete "+e.def.Name+"!", err)
		return nil
	}

	e.deps.Notifier.Notify(ctx, notify.Success(e.label+" deleted!"))
	e.deps.invalidate(ctx, e.def.Kind)
	return nil
}

// Duplicate inserts a copy of row titled "<title>- Copy".
func (e *Entity[T, PT, In]) Duplicate(ctx context.Context, row T) (T, error) {
	return e.Upsert(ctx, e.def.Duplicate(row))
}

// UpdateNotes replaces the notes of row, keeping every other field.
func (e *Entity[T, PT, In]) UpdateNotes(ctx context.Context, row T, notes string) (T, error) {
	return e.Upsert(ctx, e.def.WithNotes(row, model.OptionalString(notes)))
}
