// Package listing filters and sorts program and exercise lists for display.
//
// Sort mode names keep the labels users already know: the "-asc" modes list
// the newest row, or the title latest in the alphabet, first.
package listing

import (
	"cmp"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
)

// SortMode names an ordering of a list.
type SortMode string

const (
	CreatedAsc  SortMode = "created-asc"
	CreatedDesc SortMode = "created-desc"
	UpdatedAsc  SortMode = "updated-asc"
	UpdatedDesc SortMode = "updated-desc"
	TitleAsc    SortMode = "title-asc"
	TitleDesc   SortMode = "title-desc"
)

// DefaultSort is used when no mode is chosen.
const DefaultSort = CreatedAsc

// SortModes lists every mode in menu order.
var SortModes = []SortMode{CreatedAsc, CreatedDesc, UpdatedAsc, UpdatedDesc, TitleAsc, TitleDesc}

var labels = map[SortMode]string{
	CreatedAsc:  "created (latest - oldest)",
	CreatedDesc: "created (oldest - latest)",
	UpdatedAsc:  "updated (latest - oldest)",
	UpdatedDesc: "updated (oldest - latest)",
	TitleAsc:    "title (latest - oldest)",
	TitleDesc:   "title (oldest - latest)",
}

// Label is the menu text of m.
func (m SortMode) Label() string {
	return labels[m]
}

// ParseSortMode maps an empty string to DefaultSort and rejects unknown modes.
func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return DefaultSort, nil
	}
	m := SortMode(s)
	if !slices.Contains(SortModes, m) {
		return "", goerrors.New("unknown sort mode "+s, goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"mode": s})
	}
	return m, nil
}

// Filter keeps the items whose title contains search, ignoring case. The
// result is always a new slice.
func Filter[T model.Listed](items []T, search string) []T {
	if search == "" {
		return slices.Clone(items)
	}
	needle := strings.ToLower(search)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.ListTitle()), needle) {
			out = append(out, it)
		}
	}
	return out
}

// Sort orders items in place. Equal items keep their order. Unknown modes
// leave the slice untouched.
func Sort[T model.Listed](items []T, mode SortMode) {
	cmpFn := comparator[T](mode)
	if cmpFn == nil {
		return
	}
	slices.SortStableFunc(items, cmpFn)
}

// Apply filters then sorts into a new slice.
func Apply[T model.Listed](items []T, search string, mode SortMode) []T {
	out := Filter(items, search)
	Sort(out, mode)
	return out
}

func comparator[T model.Listed](mode SortMode) func(a, b T) int {
	created := func(a, b T) int { return cmp.Compare(a.Created().UnixMilli(), b.Created().UnixMilli()) }
	updated := func(a, b T) int { return cmp.Compare(a.Updated().UnixMilli(), b.Updated().UnixMilli()) }
	title := func(a, b T) int {
		return strings.Compare(strings.ToLower(a.ListTitle()), strings.ToLower(b.ListTitle()))
	}
	reverse := func(f func(a, b T) int) func(a, b T) int {
		return func(a, b T) int { return f(b, a) }
	}

	switch mode {
	case CreatedAsc:
		return reverse(created)
	case CreatedDesc:
		return created
	case UpdatedAsc:
		return reverse(updated)
	case UpdatedDesc:
		return updated
	case TitleAsc:
		return reverse(title)
	case TitleDesc:
		return title
	}
	return nil
}
