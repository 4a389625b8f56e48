package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/remote"
)

const (
	preferReturn = "return=representation"
	preferUpsert = "resolution=merge-duplicates,return=representation"
)

type table[T any] struct {
	c    *Client
	name string
}

func (t *table[T]) path() string {
	return "/rest/v1/" + t.name
}

func filterQuery(filters []remote.Filter) url.Values {
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Column, fmt.Sprintf("eq.%v", f.Value))
	}
	return q
}

func (t *table[T]) Select(ctx context.Context, filters ...remote.Filter) ([]T, error) {
	q := filterQuery(filters)
	q.Set("select", "*")
	q.Set("order", "id.asc")

	var rows []T
	err := t.c.do(ctx, t.name+".select", request{method: http.MethodGet, path: t.path(), query: q}, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func (t *table[T]) Insert(ctx context.Context, row T) (T, error) {
	return t.write(ctx, t.name+".insert", request{
		method: http.MethodPost,
		path:   t.path(),
		body:   []T{row},
		prefer: preferReturn,
	})
}

func (t *table[T]) Upsert(ctx context.Context, row T) (T, error) {
	body, err := upsertBody(row)
	if err != nil {
		var zero T
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, t.name+".upsert: encode body")
	}
	return t.write(ctx, t.name+".upsert", request{
		method: http.MethodPost,
		path:   t.path(),
		query:  url.Values{"on_conflict": {remote.ColumnID}},
		body:   body,
		prefer: preferUpsert,
	})
}

// upsertBody drops a zero created_at so a merge keeps the stored value.
func upsertBody[T any](row T) ([]map[string]json.RawMessage, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, err
	}
	if created, ok := cols[remote.ColumnCreatedAt]; ok {
		var at time.Time
		if json.Unmarshal(created, &at) == nil && at.IsZero() {
			delete(cols, remote.ColumnCreatedAt)
		}
	}
	return []map[string]json.RawMessage{cols}, nil
}

func (t *table[T]) write(ctx context.Context, op string, req request) (T, error) {
	var zero T
	var rows []T
	if err := t.c.do(ctx, op, req, &rows); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, goerrors.New(op+": no row returned", goerrors.CategoryExternal).
			WithTextCode(remote.CodeRequestFailed)
	}
	return rows[0], nil
}

// Delete refuses to run without filters; PostgREST would otherwise delete every
// visible row.
func (t *table[T]) Delete(ctx context.Context, filters ...remote.Filter) error {
	if len(filters) == 0 {
		return goerrors.New("delete from "+t.name+" requires a filter", goerrors.CategoryBadInput)
	}
	return t.c.do(ctx, t.name+".delete", request{
		method: http.MethodDelete,
		path:   t.path(),
		query:  filterQuery(filters),
	}, nil)
}
