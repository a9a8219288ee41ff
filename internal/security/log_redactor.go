// Package security keeps provider credentials out of log output.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any credential found in a log record.
const RedactedPlaceholder = "[REDACTED]"

// credentialPatterns match credential shapes that may reach a log line.
var credentialPatterns = []*regexp.Regexp{
	// xAI keys: xai-...
	regexp.MustCompile(`xai-[a-zA-Z0-9_-]{16,}`),
	// Authorization header values echoed back in errors
	regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9._~+/=-]{8,}`),
	// OpenAI-style keys, which some xAI-compatible gateways hand out
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
}

// sensitiveKeys are attribute names whose values are never logged.
var sensitiveKeys = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"password",
	"token",
	"bearer",
	"credential",
}

// Redactor scrubs credentials from strings.
// Besides the well-known key shapes it also removes any literal secret it was given,
// so a key with an unusual format is still caught.
type Redactor struct {
	secrets []string
}

// NewRedactor creates a Redactor. Empty and very short secrets are ignored.
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if len(s) >= 8 {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Redact replaces every credential in s with RedactedPlaceholder.
func (r *Redactor) Redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, RedactedPlaceholder)
	}
	for _, pattern := range credentialPatterns {
		s = pattern.ReplaceAllString(s, RedactedPlaceholder)
	}
	return s
}

// Redact scrubs the well-known credential shapes from s.
func Redact(s string) string {
	return defaultRedactor.Redact(s)
}

var defaultRedactor = NewRedactor()

// RedactedHandler wraps an slog.Handler and redacts credentials from every record.
type RedactedHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewRedactedHandler wraps inner. secrets are literal values to scrub in addition
// to the built-in patterns, typically the configured API key.
func NewRedactedHandler(inner slog.Handler, secrets ...string) *RedactedHandler {
	return &RedactedHandler{inner: inner, redactor: NewRedactor(secrets...)}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts the message and attributes, then forwards the record.
func (h *RedactedHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactor.Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *RedactedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactedHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactedHandler) WithGroup(name string) slog.Handler {
	return &RedactedHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *RedactedHandler) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.Redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, h.redactor.Redact(x.Error()))
		case []string:
			out := make([]string, len(x))
			for i, s := range x {
				out[i] = h.redactor.Redact(s)
			}
			return slog.Any(a.Key, out)
		}
	}

	return a
}

func isSensitiveKey(key string) bool {
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
