package security

import (
	"regexp"
)

// Sanitization limits, grounded on original_source/openintent/server/
// tool_adapters.py's _sanitize_for_log.
const (
	maxDepth       = 10
	maxListItems   = 100
	maxStringChars = 10000
)

const redacted = "[REDACTED]"

var secretKeyPattern = regexp.MustCompile(`(?i)secret|password|token|key|auth|credential|bearer`)

// base64Like matches long opaque runs that look like embedded secrets
// (API keys, signed tokens) inside otherwise free-form error text.
var base64Like = regexp.MustCompile(`[A-Za-z0-9+/_-]{24,}`)

// Sanitize recursively redacts secret-shaped data before it is allowed into
// any log line, event payload, or API response (spec §4.6 security
// contract). Values nested maxDepth levels deep are replaced by the redaction
// marker.
func Sanitize(v any) any {
	return sanitizeAt(v, 0)
}

func sanitizeAt(v any, depth int) any {
	if depth >= maxDepth {
		return redacted
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			if secretKeyPattern.MatchString(k) {
				out[k] = redacted
				continue
			}
			out[k] = sanitizeAt(vv, depth+1)
		}
		return out
	case []any:
		n := len(val)
		truncated := false
		if n > maxListItems {
			n = maxListItems
			truncated = true
		}
		out := make([]any, 0, n+1)
		for i := 0; i < n; i++ {
			out = append(out, sanitizeAt(val[i], depth+1))
		}
		if truncated {
			out = append(out, redacted)
		}
		return out
	case string:
		return sanitizeString(val)
	default:
		return val
	}
}

func sanitizeString(s string) string {
	s = base64Like.ReplaceAllString(s, redacted)
	if len(s) > maxStringChars {
		return s[:maxStringChars] + "...[truncated]"
	}
	return s
}

// SanitizeSecretLeak scrubs any occurrence of a known secret value from s,
// regardless of shape. Used as a last line of defense before a credential's
// secret could otherwise leak through an unstructured error string (spec §8
// testable property "secret isolation").
func SanitizeSecretLeak(s string, secrets ...[]byte) string {
	for _, sec := range secrets {
		if len(sec) == 0 {
			continue
		}
		s = regexp.MustCompile(regexp.QuoteMeta(string(sec))).ReplaceAllString(s, redacted)
	}
	return s
}
