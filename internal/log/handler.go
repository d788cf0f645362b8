package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Log output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// SecureHandler wraps an slog.Handler and redacts records before passing
// them on. Masked keys and secret-shaped values become MaskValue. URLs in
// the message, in string values and in error values are sanitized with
// SanitizeURLs.
type SecureHandler struct {
	next   slog.Handler
	redact *redactor
}

// NewSecureHandler wraps next, or the default handler when next is nil.
// extraKeys are additional attribute keys to mask, typically the names of
// custom request headers.
func NewSecureHandler(next slog.Handler, extraKeys ...string) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next, redact: newRedactor(extraKeys)}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, SanitizeURLs(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.clean(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		cleaned = append(cleaned, h.clean(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(cleaned), redact: h.redact}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name), redact: h.redact}
}

func (h *SecureHandler) clean(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		members := v.Group()
		cleaned := make([]slog.Attr, 0, len(members))
		for _, m := range members {
			cleaned = append(cleaned, h.clean(m))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(cleaned...)}
	}

	if h.redact.maskKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	var text string
	switch v.Kind() {
	case slog.KindString:
		text = v.String()
		if looksSecret(text) {
			return slog.String(a.Key, MaskValue)
		}
	case slog.KindAny:
		err, ok := v.Any().(error)
		if !ok || err == nil {
			return slog.Attr{Key: a.Key, Value: v}
		}
		text = err.Error()
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}

	if clean := SanitizeURLs(text); clean != text {
		return slog.String(a.Key, clean)
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// NewLogger returns a redacting logger writing text, or JSON when format
// is "json", to w. It logs at Warn, or at Debug when verbose is set.
func NewLogger(w io.Writer, verbose bool, format string, extraKeys ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var next slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		next = slog.NewJSONHandler(w, opts)
	} else {
		next = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewSecureHandler(next, extraKeys...))
}
