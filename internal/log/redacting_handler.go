package log

import (
	"context"
	"log/slog"
	"strings"
)

// Masked replaces the value of any attribute that carries a credential.
const Masked = "[REDACTED]"

// credentialKeys are matched case-insensitively against attribute keys.
// Provider keys are stored as apiKey, geminiApiKey and so on, so any key
// ending in "apikey" is masked as well.
var credentialKeys = []string{"password", "token", "secret", "api_key"}

func isCredential(key string) bool {
	k := strings.ToLower(key)
	if strings.HasSuffix(k, "apikey") {
		return true
	}
	for _, c := range credentialKeys {
		if k == c {
			return true
		}
	}
	return false
}

// RedactingHandler sits in front of another slog.Handler and masks
// credentials before they reach it. The settings commands log AI provider
// keys on save; the logger built by New wraps its output handler in one.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler wraps next.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, mask(a))
	}
	return &RedactingHandler{next: h.next.WithAttrs(masked)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

// mask returns a with credential values hidden, descending into groups.
// LogValuers are resolved first so a valuer cannot leak a key.
func mask(a slog.Attr) slog.Attr {
	if isCredential(a.Key) {
		return slog.String(a.Key, Masked)
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: v}
	}
	group := v.Group()
	inner := make([]slog.Attr, len(group))
	for i, g := range group {
		inner[i] = mask(g)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(inner...)}
}
