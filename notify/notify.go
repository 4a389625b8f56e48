// Package notify delivers short user-visible messages about completed or failed
// operations.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Variant classifies a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single user-visible message.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Success builds a default notification.
func Success(title string) Notification {
	return Notification{Title: title, Variant: VariantDefault}
}

// Failure builds a destructive notification. The description carries err's
// message when err is not nil.
func Failure(title string, err error) Notification {
	n := Notification{Title: title, Variant: VariantDestructive}
	if err != nil {
		n.Description = err.Error()
	}
	return n
}

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Nop drops every notification.
var Nop Notifier = Func(func(context.Context, Notification) {})

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier writes notifications to logger. Destructive ones are logged at
// error level.
func NewLogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &logNotifier{logger: logger.With("component", "notify")}
}

func (l *logNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Variant == VariantDestructive {
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, n.Title, "description", n.Description)
}

// Multi fans a notification out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(ctx context.Context, n Notification) {
		for _, target := range notifiers {
			if target != nil {
				target.Notify(ctx, n)
			}
		}
	})
}

// Recorder keeps every notification it receives. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Titles returns the recorded titles in order.
func (r *Recorder) Titles() []string {
	items := r.All()
	titles := make([]string, len(items))
	for i, n := range items {
		titles[i] = n.Title
	}
	return titles
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
