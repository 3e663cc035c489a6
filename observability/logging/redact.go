package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// plainKeys are emitted verbatim by MaskField. Anything else carrying a value
// is treated as a credential.
var plainKeys = map[string]struct{}{
	"reason":  {},
	"kind":    {},
	"status":  {},
	"module":  {},
	"pool":    {},
	"asset":   {},
	"purpose": {},
	"route":   {},
}

// MaskField returns key=value unless key may hold a secret, in which case the
// value is replaced. Empty values pass through so a missing token stays visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" {
		return slog.String(key, value)
	}
	if _, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskDSN hides the password of a database DSN. Both URL DSNs
// (postgres://user:pw@host/db) and keyword DSNs (host=h password=pw) are
// handled; sqlite file names are returned unchanged.
func MaskDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if strings.Contains(trimmed, "://") {
		if u, err := url.Parse(trimmed); err == nil {
			return u.Redacted()
		}
		return RedactedValue
	}
	fields := strings.Fields(trimmed)
	for i, field := range fields {
		if k, _, ok := strings.Cut(field, "="); ok && strings.EqualFold(k, "password") {
			fields[i] = k + "=" + RedactedValue
		}
	}
	return strings.Join(fields, " ")
}
