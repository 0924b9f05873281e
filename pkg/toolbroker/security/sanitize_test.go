package security

import (
	"strings"
	"testing"
)

func TestSanitizeRedactsSecretKeys(t *testing.T) {
	in := map[string]any{
		"username":    "alice",
		"password":    "hunter2",
		"api_key":     "sk-abc123",
		"auth_token":  "xyz",
		"bearer":      "abcd",
		"credentials": map[string]any{"secret": "nested"},
	}
	out := Sanitize(in).(map[string]any)

	for _, key := range []string{"password", "api_key", "auth_token", "bearer", "credentials"} {
		if out[key] != redacted {
			t.Errorf("key %q: want redacted, got %v", key, out[key])
		}
	}
	if out["username"] != "alice" {
		t.Errorf("username should not be redacted, got %v", out["username"])
	}
}

func TestSanitizeRecursionDepthCap(t *testing.T) {
	var nested any = "leaf"
	for i := 0; i < maxDepth+5; i++ {
		nested = map[string]any{"child": nested}
	}
	out := Sanitize(nested)

	depth := 0
	cur := out
	for {
		m, ok := cur.(map[string]any)
		if !ok {
			break
		}
		cur = m["child"]
		depth++
	}
	if cur != redacted {
		t.Errorf("expected recursion to bottom out in redaction, got %v at depth %d", cur, depth)
	}
}

func TestSanitizeListTruncation(t *testing.T) {
	items := make([]any, maxListItems+10)
	for i := range items {
		items[i] = i
	}
	out := Sanitize(items).([]any)
	if len(out) != maxListItems+1 {
		t.Fatalf("want %d items (cap + truncation marker), got %d", maxListItems+1, len(out))
	}
	if out[maxListItems] != redacted {
		t.Errorf("expected truncation marker at end, got %v", out[maxListItems])
	}
}

func TestSanitizeStringTruncation(t *testing.T) {
	long := strings.Repeat("a", maxStringChars+100)
	out := sanitizeString(long)
	if !strings.HasSuffix(out, "...[truncated]") {
		t.Errorf("expected truncation suffix, got suffix %q", out[len(out)-20:])
	}
}

func TestSanitizeBase64LikeSubstring(t *testing.T) {
	out := sanitizeString("connecting with token AbCdEf0123456789AbCdEf0123456789 now")
	if strings.Contains(out, "AbCdEf0123456789AbCdEf0123456789") {
		t.Errorf("expected base64-like run to be redacted, got %q", out)
	}
}

func TestSanitizeSecretLeak(t *testing.T) {
	secret := []byte("s3cr3t-value")
	msg := "upstream rejected request with body containing s3cr3t-value in the header"
	out := SanitizeSecretLeak(msg, secret)
	if strings.Contains(out, "s3cr3t-value") {
		t.Errorf("expected secret to be scrubbed, got %q", out)
	}
}
