package security

import (
	"crypto/sha256"
	"encoding/hex"
)

const bodyFingerprintPrefix = 2000

// Fingerprint computes the audit-correlation fingerprint for an outbound
// call: the first 16 hex chars of SHA-256("METHOD|URL|BODY_PREFIX_2000"),
// per spec §4.6. It never includes credential material.
func Fingerprint(method, url string, body []byte) string {
	if len(body) > bodyFingerprintPrefix {
		body = body[:bodyFingerprintPrefix]
	}
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte("|"))
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write(body)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:16]
}
