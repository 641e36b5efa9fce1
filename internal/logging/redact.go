package logging

import (
	"log/slog"
	"strings"
)

const redactedValue = "***REDACTED***"

// Key fragments whose values must never be written out.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"dsn",
}

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if a.Value.String() == "" {
			return a
		}
		key := strings.ToLower(a.Key)
		for _, s := range sensitiveKeys {
			if strings.Contains(key, s) {
				return slog.String(a.Key, redactedValue)
			}
		}
	}
	return a
}
