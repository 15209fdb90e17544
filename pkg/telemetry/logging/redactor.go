package logging

import (
	"context"
	"log/slog"
	"strings"
)

// RedactHandler is a slog.Handler middleware that masks the values of
// credential-bearing attributes before passing records to the wrapped
// handler. Masking follows the same convention as usage summaries:
// first four and last four characters visible, middle replaced, values
// shorter than twelve characters masked entirely.
type RedactHandler struct {
	inner slog.Handler
}

// NewRedactHandler wraps a handler with attribute masking.
func NewRedactHandler(inner slog.Handler) *RedactHandler {
	return &RedactHandler{inner: inner}
}

// Enabled reports whether the wrapped handler handles records at the
// given level.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks sensitive attributes on the record and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs masks the pre-bound attributes and forwards them.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup opens a group on the wrapped handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr returns the attribute with its value masked when the key
// indicates credential material. Group attributes are walked.
func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, g := range group {
			masked[i] = redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if !isSensitiveKey(a.Key) {
		return a
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindString {
		return slog.String(a.Key, maskValue(v.String()))
	}
	// Non-string credential values carry no shape worth keeping
	return slog.String(a.Key, "****")
}

// isSensitiveKey checks if a key name indicates credential material.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"api_key", "apikey",
		"secret", "token",
		"auth", "authorization",
		"credential",
		"password", "passwd", "pwd",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// maskValue masks a credential value. Values already in masked shape
// pass through unchanged so attributes masked at the call site are not
// masked twice.
func maskValue(s string) string {
	if alreadyMasked(s) {
		return s
	}
	if len(s) < 12 {
		return "****"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

// alreadyMasked reports whether a value is an output of maskValue.
func alreadyMasked(s string) bool {
	if s == "" || s == "****" {
		return true
	}
	return len(s) == 11 && s[4:7] == "***"
}
