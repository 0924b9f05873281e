package security

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("POST", "https://api.example.com/v1/widgets", []byte(`{"id":1}`))
	b := Fingerprint("POST", "https://api.example.com/v1/widgets", []byte(`{"id":1}`))
	if a != b {
		t.Errorf("expected deterministic fingerprint, got %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %d (%q)", len(a), a)
	}
}

func TestFingerprintDiffersOnMethodOrBody(t *testing.T) {
	base := Fingerprint("GET", "https://api.example.com/x", nil)
	diffMethod := Fingerprint("POST", "https://api.example.com/x", nil)
	diffBody := Fingerprint("GET", "https://api.example.com/x", []byte("payload"))

	if base == diffMethod {
		t.Error("expected different fingerprint for different method")
	}
	if base == diffBody {
		t.Error("expected different fingerprint for different body")
	}
}

func TestFingerprintTruncatesBodyPrefix(t *testing.T) {
	short := make([]byte, bodyFingerprintPrefix)
	long := make([]byte, bodyFingerprintPrefix+500)
	for i := range long {
		if i < len(short) {
			short[i] = 'a'
		}
		long[i] = 'a'
	}
	if Fingerprint("POST", "https://x", short) != Fingerprint("POST", "https://x", long) {
		t.Error("expected fingerprints to match once body exceeds the prefix length")
	}
}
