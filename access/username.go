package access

import (
	"context"
	"time"

	"github.com/goliatone/go-workout-tracker/debounce"
	"github.com/goliatone/go-workout-tracker/remote"
)

// UsernameDebounce is the quiet period before a typed username is checked.
const UsernameDebounce = 500 * time.Millisecond

// Uniqueness is the outcome of a username check.
type Uniqueness int

const (
	// UsernameEmpty means nothing was typed. It does not block the form.
	UsernameEmpty Uniqueness = iota
	UsernameUnique
	UsernameTaken
	UsernameFailed
)

func (u Uniqueness) String() string {
	switch u {
	case UsernameUnique:
		return "unique"
	case UsernameTaken:
		return "taken"
	case UsernameFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Acceptable reports whether the form may be submitted with this outcome.
func (u Uniqueness) Acceptable() bool {
	return u == UsernameEmpty || u == UsernameUnique
}

// UsernameChecker checks typed usernames against existing profiles once typing
// pauses. Only the result for the latest input is delivered.
type UsernameChecker struct {
	deps     Deps
	debounce *debounce.Debouncer
	onResult func(username string, result Uniqueness)
}

// NewUsernameChecker delivers outcomes to onResult from a timer goroutine.
func NewUsernameChecker(deps Deps, delay time.Duration, onResult func(username string, result Uniqueness)) *UsernameChecker {
	if delay <= 0 {
		delay = UsernameDebounce
	}
	return &UsernameChecker{
		deps:     deps.withDefaults("username"),
		debounce: debounce.New(delay),
		onResult: onResult,
	}
}

// Type records a new input value and restarts the quiet period.
func (c *UsernameChecker) Type(ctx context.Context, username string) {
	c.debounce.Trigger(func(seq uint64) {
		result := c.Check(ctx, username)
		if !c.debounce.Latest(seq) {
			c.deps.Logger.DebugContext(ctx, "discard stale username check", "username", username)
			return
		}
		c.onResult(username, result)
	})
}

// Check looks username up immediately.
func (c *UsernameChecker) Check(ctx context.Context, username string) Uniqueness {
	if username == "" {
		return UsernameEmpty
	}
	rows, err := c.deps.Remote.Profiles().Select(ctx, remote.Eq(remote.ColumnUsername, username))
	if err != nil {
		c.deps.Logger.ErrorContext(ctx, "username check failed", "error", err)
		return UsernameFailed
	}
	for _, p := range rows {
		if p.Username == username {
			return UsernameTaken
		}
	}
	return UsernameUnique
}

// Stop drops a pending check.
func (c *UsernameChecker) Stop() {
	c.debounce.Stop()
}
