package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type weekday int

func (d weekday) String() string { return [...]string{"mon", "tue"}[d] }

func TestDefaultKeySerializer_Scalars(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := int64(42)

	tests := []struct {
		name  string
		scope string
		args  []any
		want  string
	}{
		{name: "scope only", scope: "get-muscles", want: "get-muscles"},
		{name: "user id", scope: "get-programs", args: []any{"get-program", "u-1"}, want: joinWithSeparator("get-programs", "get-program", "u-1")},
		{name: "int64 id", scope: "get-program", args: []any{"u-1", int64(7)}, want: joinWithSeparator("get-program", "u-1", "7")},
		{name: "int", scope: "k", args: []any{3}, want: joinWithSeparator("k", "3")},
		{name: "bool and float", scope: "k", args: []any{true, 1.5}, want: joinWithSeparator("k", "true", "1.5")},
		{name: "pointer deref", scope: "k", args: []any{&id}, want: joinWithSeparator("k", "42")},
		{name: "nil", scope: "k", args: []any{nil}, want: joinWithSeparator("k", "nil")},
		{name: "nil pointer", scope: "k", args: []any{(*int64)(nil)}, want: joinWithSeparator("k", "nil")},
		{name: "stringer", scope: "k", args: []any{weekday(1)}, want: joinWithSeparator("k", "tue")},
		{name: "slice", scope: "k", args: []any{[]int64{1, 2}}, want: joinWithSeparator("k", "[1,2]")},
		{name: "nil slice", scope: "k", args: []any{([]string)(nil)}, want: joinWithSeparator("k", "nil")},
		{name: "nested", scope: "k", args: []any{[][]string{{"a"}, {"b", "c"}}}, want: joinWithSeparator("k", "[[a],[b,c]]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.scope, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_HashedSegments(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	long := strings.Repeat("x", maxSegmentLen+1)
	key := serializer.SerializeKey("search", long)
	if strings.Contains(key, long) {
		t.Fatalf("expected long segment to be hashed, got %q", key)
	}
	if !strings.HasPrefix(key, ScopePrefix("search")+"h") {
		t.Errorf("expected hashed segment prefix, got %q", key)
	}

	type filter struct {
		Title string
		Since time.Time
	}
	f := filter{Title: "press", Since: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := serializer.SerializeKey("k", f)
	b := serializer.SerializeKey("k", f)
	if a != b {
		t.Errorf("struct keys should be stable: %q != %q", a, b)
	}
	if c := serializer.SerializeKey("k", filter{Title: "pull"}); c == a {
		t.Errorf("different structs should not collide: %q", c)
	}
}

func TestDefaultKeySerializer_MapsAreOrderIndependent(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	first := serializer.SerializeKey("k", map[string]int{"a": 1, "b": 2, "c": 3})
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("k", map[string]int{"c": 3, "b": 2, "a": 1}); got != first {
			t.Fatalf("map key changed between calls: %q != %q", got, first)
		}
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	fn := func() {}

	key1 := serializer.SerializeKey("k", fn)
	key2 := serializer.SerializeKey("k", fn)
	if key1 != key2 {
		t.Errorf("function serialization should be stable: %v != %v", key1, key2)
	}
	if !strings.HasPrefix(key1, joinWithSeparator("k", "func")+":") {
		t.Errorf("expected func: prefix, got %v", key1)
	}
}

func TestScopePrefix(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	key := serializer.SerializeKey("get-program", "u-1", int64(3))
	if !strings.HasPrefix(key, ScopePrefix("get-program")) {
		t.Errorf("key %q should start with scope prefix", key)
	}
	if strings.HasPrefix(serializer.SerializeKey("get-programs", "u-1"), ScopePrefix("get-program")) {
		t.Error("scope prefix must not match a longer scope name")
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	args := []any{"get-program", "0c4a1c9e-7b1e-4b53-9d0f-3f1f4f7c2a11", int64(12)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey("get-programs", args...)
	}
}
