package logging

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"component": {},
	"ilk":       {},
	"operation": {},
}

// IsAllowlisted reports whether key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// RedactionAllowlist returns a sorted copy of the keys emitted without redaction.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskField redacts value unless key is allowlisted. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskURL hides credentials in an RPC endpoint so it can be logged. User
// info and query strings are masked, as is a trailing path segment long
// enough to be an API key.
func MaskURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return RedactedValue
	}
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(RedactedValue)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	segments := strings.Split(u.Path, "/")
	if last := segments[len(segments)-1]; len(last) >= 16 {
		segments[len(segments)-1] = RedactedValue
	}
	b.WriteString(strings.Join(segments, "/"))
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(RedactedValue)
	}
	return b.String()
}
