// Package version carries build metadata injected via -ldflags:
//
//	-X github.com/ManuGH/streamreaper/internal/version.Version=v1.0.0
package version

import "fmt"

var (
	Version = "v0.1.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats all three fields for `streamreaper version` and startup logs.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
