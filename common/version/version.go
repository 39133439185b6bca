// Package version exposes build metadata injected at link time via
// -ldflags. Development builds carry no metadata and report "dev".
package version

import "fmt"

var (
	// Version is the semantic version of the release build, e.g. "1.4.2".
	Version string
	// Commit is the short git hash the binary was built from.
	Commit string
)

// String returns a human-readable version for banners and logs.
func String() string {
	if Version == "" && Commit == "" {
		return "dev"
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
