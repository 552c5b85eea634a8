// Package logging configures the process-wide slog logger and hands out
// component-tagged loggers for the savesync machinery.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar) // shared so SetLevel works at runtime

// Init installs the global slog handler. Call once at startup.
// levelStr is one of "debug", "info", "warn", "error" (default "info");
// format is "text" or "json" (default "text").
func Init(levelStr, format string) {
	level.Set(ParseLevel(levelStr))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// For returns a logger tagged with a component attribute. The returned
// logger resolves slog.Default() on every call, so package-level logger
// variables pick up handler swaps made after they were created (the test
// capture harness relies on this).
func For(component string) *slog.Logger {
	return slog.New(&componentHandler{component: component})
}

// SetLevel adjusts the global log level at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// componentHandler forwards every record to slog.Default()'s handler with a
// "component" attribute prepended.
type componentHandler struct {
	component string
	attrs     []slog.Attr
}

func (h *componentHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, l)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("component", h.component))
	if len(h.attrs) > 0 {
		r.AddAttrs(h.attrs...)
	}
	return slog.Default().Handler().Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{
		component: h.component,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return h
}
