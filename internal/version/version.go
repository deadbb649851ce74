// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/banshee-data/spinframe/internal/version.Version=...".
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String renders the build metadata for -version output.
func String() string {
	return fmt.Sprintf("spinframe %s (%s, built %s)", Version, GitSHA, BuildTime)
}
