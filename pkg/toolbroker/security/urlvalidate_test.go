package security

import "testing"

func TestValidateURL(t *testing.T) {
	cases := []struct {
		name         string
		url          string
		allowedHosts []string
		wantErr      bool
	}{
		{name: "plain https", url: "https://api.example.com/v1/widgets", wantErr: false},
		{name: "plain http", url: "http://api.example.com/v1/widgets", wantErr: false},
		{name: "ftp scheme blocked", url: "ftp://example.com/file", wantErr: true},
		{name: "malformed", url: "://not a url", wantErr: true},
		{name: "localhost blocked", url: "https://localhost/admin", wantErr: true},
		{name: "gcp metadata hostname blocked", url: "http://metadata.google.internal/computeMetadata/v1/", wantErr: true},
		{name: "aws metadata ip blocked", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "loopback ip blocked", url: "http://127.0.0.1:8080/", wantErr: true},
		{name: "private 10/8 blocked", url: "http://10.1.2.3/", wantErr: true},
		{name: "private 192.168/16 blocked", url: "http://192.168.1.1/", wantErr: true},
		{name: "link-local blocked", url: "http://169.254.1.1/", wantErr: true},
		{name: "allowed host matches", url: "https://api.partner.com/webhook", allowedHosts: []string{"partner.com"}, wantErr: false},
		{name: "allowed host subdomain matches", url: "https://eu.api.partner.com/webhook", allowedHosts: []string{"partner.com"}, wantErr: false},
		{name: "host not in allowlist", url: "https://evil.com/webhook", allowedHosts: []string{"partner.com"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateURL(tc.url, tc.allowedHosts)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestHostAllowed(t *testing.T) {
	if !hostAllowed("api.partner.com", []string{"partner.com"}) {
		t.Error("expected subdomain to match")
	}
	if !hostAllowed("PARTNER.COM", []string{"partner.com"}) {
		t.Error("expected case-insensitive match")
	}
	if hostAllowed("notpartner.com", []string{"partner.com"}) {
		t.Error("expected suffix match to require a dot boundary")
	}
}
