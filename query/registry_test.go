package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry().
		Register("session", "get-user", "get-username").
		Register("program", "get-programs", "get-program", "get-programs").
		Register("profile", "get-username")

	assert.Equal(t, []string{"get-program", "get-programs"}, r.Scopes("program"))
	assert.Equal(t, []string{"get-program", "get-programs", "get-user", "get-username"}, r.Scopes("program", "session", "profile"))
	assert.Empty(t, r.Scopes("unknown"))

	assert.True(t, r.Owns("get-username"))
	assert.False(t, r.Owns("get-muscles"))
	assert.Equal(t, []Kind{"profile", "program", "session"}, r.Kinds())
}
