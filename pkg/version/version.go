// Package version carries build metadata stamped in via -ldflags at
// release time; a plain source build reports "dev".
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version reported by GET /health.
func GetVersion() string {
	return Version
}

// Human returns the one-line build description used in the startup log,
// e.g. "1.4.0 (3f9c2a1, built 2026-07-30)".
func Human() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, BuildDate)
}
