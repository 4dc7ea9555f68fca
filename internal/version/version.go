// Package version carries build metadata stamped in with -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata for startup logs and the debug index.
func String() string {
	return fmt.Sprintf("ambilight %s (%s, built %s)", Version, GitSHA, BuildTime)
}
