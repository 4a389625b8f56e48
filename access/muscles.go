package access

import (
	"context"
	"slices"

	"github.com/goliatone/go-workout-tracker/model"
	"github.com/goliatone/go-workout-tracker/query"
)

// Muscles reads the muscle reference table. No session is needed.
type Muscles struct {
	deps Deps
}

func NewMuscles(deps Deps) *Muscles {
	return &Muscles{deps: deps.withDefaults("muscles")}
}

// List returns every muscle, or an empty list after notifying a failure.
func (m *Muscles) List(ctx context.Context) ([]model.Muscle, error) {
	rows, err := query.Fetch(ctx, m.deps.Client, query.NewKey(ScopeMuscles), func(ctx context.Context) ([]model.Muscle, error) {
		return m.deps.Remote.Muscles().Select(ctx)
	})
	if err != nil {
		m.deps.fail(ctx, "Failed to get muscles!", err)
		return []model.Muscle{}, nil
	}
	return slices.Clone(rows), nil
}
