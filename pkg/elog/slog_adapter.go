package elog

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger. Useful for console output
// during development and for systemd journal integration in production.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level with category-specific attributes.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.State != nil:
		attrs = append(attrs,
			slog.String("entity", event.State.Entity),
			slog.String("old_state", event.State.OldState),
			slog.String("new_state", event.State.NewState),
		)
		if event.State.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.State.Reason))
		}
	case event.Call != nil:
		attrs = append(attrs,
			slog.String("object", event.Call.Object),
			slog.String("method", event.Call.Method),
		)
	case event.Signal != nil:
		attrs = append(attrs,
			slog.String("object", event.Signal.Object),
			slog.String("property", event.Signal.Property),
		)
	case event.Device != nil:
		attrs = append(attrs,
			slog.String("device", event.Device.Device),
			slog.String("kind", event.Device.Kind),
		)
	case event.Portal != nil:
		attrs = append(attrs,
			slog.Int("attempt", event.Portal.Attempt),
			slog.String("phase", event.Portal.Phase),
			slog.String("status", event.Portal.Status),
			slog.Bool("final", event.Portal.Final),
		)
	case event.Err != nil:
		attrs = append(attrs, slog.String("status", event.Err.Status))
		if event.Err.Message != "" {
			attrs = append(attrs, slog.String("message", event.Err.Message))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "shillgo", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
