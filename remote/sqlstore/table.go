package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/remote"
	"github.com/uptrace/bun"
)

type rules[T any] struct {
	name string
	id   func(*T) int64
	// ownerCol is empty for shared rows.
	ownerCol   string
	owner      func(*T) string
	publicRead bool
	readOnly   bool
	// updates lists the columns an upsert replaces on conflict.
	updates []string
	unique  func(ctx context.Context, db bun.IDB, row *T) error
}

func ownedRules[T any, PT interface {
	*T
	model.Owned
}](name string, updates ...string) rules[T] {
	return rules[T]{
		name:     name,
		id:       func(row *T) int64 { return PT(row).GetID() },
		ownerCol: remote.ColumnCreatedBy,
		owner:    func(row *T) string { return PT(row).Owner() },
		updates:  updates,
	}
}

type table[T any] struct {
	s *Store
	rules[T]
}

func (t *table[T]) Select(ctx context.Context, filters ...remote.Filter) ([]T, error) {
	rows := []T{}
	q := t.s.db.NewSelect().Model(&rows).OrderExpr("? ASC", bun.Ident(remote.ColumnID))
	if t.ownerCol != "" && !t.publicRead {
		u := t.s.sessionUser()
		if u == nil {
			return rows, nil
		}
		q = q.Where("? = ?", bun.Ident(t.ownerCol), u.ID)
	}
	for _, f := range filters {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, t.s.storeError(ctx, err, t.name+".select")
	}
	return rows, nil
}

func (t *table[T]) Insert(ctx context.Context, row T) (T, error) {
	var zero T
	op := t.name + ".insert"
	if err := t.checkWrite(&row, op); err != nil {
		return zero, err
	}

	err := t.s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if t.unique != nil {
			if err := t.unique(ctx, tx, &row); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(&row).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return zero, t.s.storeError(ctx, err, op)
	}
	return row, nil
}

// Upsert replaces the row with the same id. created_at and the owner are never
// overwritten, and rows owned by another user are rejected.
func (t *table[T]) Upsert(ctx context.Context, row T) (T, error) {
	var zero T
	op := t.name + ".upsert"
	if err := t.checkWrite(&row, op); err != nil {
		return zero, err
	}

	err := t.s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := t.checkOwner(ctx, tx, &row); err != nil {
			return err
		}
		if t.unique != nil {
			if err := t.unique(ctx, tx, &row); err != nil {
				return err
			}
		}
		q := tx.NewInsert().Model(&row).On("CONFLICT (id) DO UPDATE")
		for _, col := range t.updates {
			q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
		}
		_, err := q.Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return zero, t.s.storeError(ctx, err, op)
	}
	return row, nil
}

// Delete removes matching rows the session user owns. Filters are required.
func (t *table[T]) Delete(ctx context.Context, filters ...remote.Filter) error {
	op := t.name + ".delete"
	if t.readOnly {
		return permissionDenied(t.name)
	}
	if len(filters) == 0 {
		return goerrors.New("delete from "+t.name+" requires a filter", goerrors.CategoryBadInput)
	}

	q := t.s.db.NewDelete().Model((*T)(nil))
	if t.ownerCol != "" {
		u := t.s.sessionUser()
		if u == nil {
			return nil
		}
		q = q.Where("? = ?", bun.Ident(t.ownerCol), u.ID)
	}
	for _, f := range filters {
		q = q.Where("? = ?", bun.Ident(f.Column), f.Value)
	}

	if _, err := q.Exec(ctx); err != nil {
		return t.s.storeError(ctx, err, op)
	}
	return nil
}

func (t *table[T]) checkWrite(row *T, op string) error {
	if t.readOnly {
		return permissionDenied(t.name)
	}
	u := t.s.sessionUser()
	if u == nil {
		return remote.NoSession(op)
	}
	if t.owner != nil && t.owner(row) != u.ID {
		return rlsViolation(t.name)
	}
	return nil
}

func (t *table[T]) checkOwner(ctx context.Context, db bun.IDB, row *T) error {
	id := t.id(row)
	if id == 0 || t.ownerCol == "" {
		return nil
	}
	var owner string
	err := db.NewSelect().
		Model((*T)(nil)).
		Column(t.ownerCol).
		Where("? = ?", bun.Ident(remote.ColumnID), id).
		Scan(ctx, &owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	case owner != t.owner(row):
		return rlsViolation(t.name)
	}
	return nil
}

// uniqueUsername compares usernames case-insensitively; the column constraint
// only catches exact matches.
func uniqueUsername(ctx context.Context, db bun.IDB, p *model.Profile) error {
	taken, err := db.NewSelect().
		Model((*model.Profile)(nil)).
		Where("lower(username) = lower(?)", p.Username).
		Where("user_id <> ?", p.UserID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if taken {
		return duplicate(remote.TableProfiles + ".username")
	}
	return nil
}

func permissionDenied(name string) error {
	return goerrors.New("permission denied for table "+name, goerrors.CategoryAuth)
}

func rlsViolation(name string) error {
	return goerrors.New("new row violates row-level security policy for table "+name, goerrors.CategoryAuth)
}
