// Package version holds build-time identifiers injected via -ldflags.
package version

// Version, Commit, and BuildDate are set at build time via:
//
//	go build -ldflags "-X github.com/openintent-ai/openintent/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
