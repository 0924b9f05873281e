package security

import (
	"net"
	"net/url"
	"strings"
)

// MaxResponseBytes is the upstream response size cap, per spec §4.6.
const MaxResponseBytes = 1 << 20

// ErrDenied is returned when URL validation rejects an outbound call before
// any socket is opened.
type ErrDenied struct{ Reason string }

func (e *ErrDenied) Error() string { return "denied: " + e.Reason }

// ErrResponseTooLarge is returned when an upstream body exceeds the response
// size cap.
type ErrResponseTooLarge struct{}

func (e *ErrResponseTooLarge) Error() string { return "response exceeds size cap" }

var blockedHostnames = map[string]bool{
	"localhost":             true,
	"metadata.google.internal": true,
}

// cloud-metadata and link-local addresses, per spec §4.6.
var blockedIPs = map[string]bool{
	"169.254.169.254": true, // AWS/GCP/Azure instance metadata
	"100.100.100.200": true, // Alibaba Cloud metadata
}

var privateCIDRs []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		privateCIDRs = append(privateCIDRs, n)
	}
}

// ValidateURL enforces the outbound security contract of spec §4.6: scheme
// allowlist, hostname blocklist, private-IP blocklist, and an optional
// grant-scoped allowed-hosts match. It never performs DNS-based SSRF checks
// against a resolved IP that could change between validation and dial time;
// the adapters add a ValidateResolvedIP check of the host's current DNS
// answers (see adapters/rest.go).
func ValidateURL(rawURL string, allowedHosts []string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ErrDenied{Reason: "malformed url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ErrDenied{Reason: "scheme not allowed"}
	}
	host := u.Hostname()
	if host == "" {
		return &ErrDenied{Reason: "missing host"}
	}
	if blockedHostnames[strings.ToLower(host)] {
		return &ErrDenied{Reason: "hostname blocked"}
	}
	if ip := net.ParseIP(host); ip != nil {
		if err := validateIP(ip); err != nil {
			return err
		}
	}
	if len(allowedHosts) > 0 && !hostAllowed(host, allowedHosts) {
		return &ErrDenied{Reason: "host not in grant allowlist"}
	}
	return nil
}

func validateIP(ip net.IP) error {
	if blockedIPs[ip.String()] {
		return &ErrDenied{Reason: "ip blocked"}
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return &ErrDenied{Reason: "ip blocked"}
	}
	for _, n := range privateCIDRs {
		if n.Contains(ip) {
			return &ErrDenied{Reason: "private ip range"}
		}
	}
	return nil
}

// hostAllowed reports whether host equals one of allowed or is a subdomain
// of one of them.
func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(a)
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// ValidateResolvedIP resolves the URL's host and rejects it if any returned
// address is blocked. The HTTP client resolves the host again when it dials,
// so the address checked here is not bound to the connection.
func ValidateResolvedIP(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ErrDenied{Reason: "malformed url"}
	}
	ips, err := net.LookupIP(u.Hostname())
	if err != nil {
		return &ErrDenied{Reason: "could not resolve host"}
	}
	for _, ip := range ips {
		if err := validateIP(ip); err != nil {
			return err
		}
	}
	return nil
}
