// Package version holds build information injected at link time.
package version

import "fmt"

// Set with: go build -ldflags "-X github.com/AkibDa/Code-Genesis/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // ldflags injection needs package-level vars.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
