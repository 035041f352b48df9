package tui

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelHandler wraps a slog.Handler, only passing records at or above a level. It can be disabled
// to drop everything, which is needed once the view it writes to is gone.
type LevelHandler struct {
	slog.Handler
	level    slog.Leveler
	disabled *atomic.Bool
}

func NewLevelHandler(handler slog.Handler, level slog.Leveler) *LevelHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LevelHandler{
		Handler:  handler,
		level:    level,
		disabled: &atomic.Bool{},
	}
}

func (h *LevelHandler) Disable() {
	h.disabled.Store(true)
}

func (h *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.disabled.Load() {
		return false
	}
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.disabled.Load() {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{
		Handler:  h.Handler.WithAttrs(attrs),
		level:    h.level,
		disabled: h.disabled,
	}
}

func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{
		Handler:  h.Handler.WithGroup(name),
		level:    h.level,
		disabled: h.disabled,
	}
}
