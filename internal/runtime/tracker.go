package runtime

import (
	"context"

	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Event describes instances that were written.
type Event struct {
	Kind      sqlgen.Kind
	TypeID    string
	Instances []sqlgen.Values
}

// ChangeTracker is notified after a write succeeded.
type ChangeTracker interface {
	Track(ctx context.Context, event Event) error
}

// TrackerFunc adapts a function to ChangeTracker.
type TrackerFunc func(ctx context.Context, event Event) error

// Track calls f.
func (f TrackerFunc) Track(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NopTracker ignores every event.
type NopTracker struct{}

// Track does nothing.
func (NopTracker) Track(context.Context, Event) error { return nil }
