package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// maxSegmentLen is the longest segment kept verbatim; longer ones are hashed.
const maxSegmentLen = 64

// ScopePrefix returns the prefix shared by every key built for scope.
func ScopePrefix(scope string) string {
	return scope + KeySeparator
}

type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the serializer used by the query client.
//
// Scalars render verbatim, nil renders as "nil", pointers are dereferenced and
// sequences render as "[a,b]". Maps, structs and segments longer than 64 bytes
// are reduced to an xxhash digest so keys stay short and deterministic.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(scope string, parts ...any) string {
	if len(parts) == 0 {
		return scope
	}

	var b strings.Builder
	b.WriteString(scope)
	for _, part := range parts {
		b.WriteString(KeySeparator)
		b.WriteString(s.segment(part))
	}
	return b.String()
}

func (s defaultKeySerializer) segment(v any) string {
	out := s.render(v)
	if len(out) > maxSegmentLen {
		return hashSegment(out)
	}
	return out
}

func (s defaultKeySerializer) render(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "nil"
		}
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.render(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "nil"
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = s.render(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ",") + "]"
	case reflect.Map:
		if rv.IsNil() {
			return "nil"
		}
		return s.renderMap(rv)
	case reflect.Struct:
		return hashJSON(v)
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%p", rv.Kind(), v)
	}

	return fmt.Sprintf("%v", v)
}

func (s defaultKeySerializer) renderMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.render(iter.Key().Interface())+"="+s.render(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return hashSegment("{" + strings.Join(pairs, ",") + "}")
}

func hashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return hashSegment(string(data))
}

func hashSegment(s string) string {
	return "h" + strconv.FormatUint(xxhash.Sum64String(s), 16)
}
