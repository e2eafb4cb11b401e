// Package version holds build metadata injected at link time.
package version

// Set via -ldflags at build time, e.g.
// -X github.com/redfish-tools/usecase-checkers/internal/version.version=v1.0.0
//
//nolint:gochecknoglobals
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func GetVersion() string {
	return version
}

func GetCommit() string {
	return commit
}

func GetDate() string {
	return date
}
