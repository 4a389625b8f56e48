package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureCarriesErrorMessage(t *testing.T) {
	n := Failure("Failed to get programs!", errors.New("relation does not exist"))
	assert.Equal(t, VariantDestructive, n.Variant)
	assert.Equal(t, "relation does not exist", n.Description)

	assert.Empty(t, Failure("x", nil).Description)
	assert.Equal(t, VariantDefault, Success("Program created!").Variant)
}

func TestLogNotifierLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewLogNotifier(logger)

	n.Notify(context.Background(), Success("Program created!"))
	n.Notify(context.Background(), Failure("Failed to delete program!", errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="Program created!"`)
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "description=boom")
	assert.Contains(t, out, "component=notify")
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi(&a, nil, &b)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Notify(context.Background(), Success("ok"))
		}()
	}
	wg.Wait()

	assert.Len(t, a.All(), 10)
	assert.Len(t, b.Titles(), 10)

	a.Reset()
	assert.Empty(t, a.All())
	Nop.Notify(context.Background(), Success("ignored"))
}
