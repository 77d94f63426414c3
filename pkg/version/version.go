// Package version provides build and version information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version, set via ldflags at build time.
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// Info is structured version information for JSON output.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the structured version information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Short returns just the version number.
func Short() string {
	return Version
}

// String returns the full human-readable version line.
func String() string {
	return fmt.Sprintf("clinqa %s (commit %s, built %s, %s)", Version, Commit, Date, GoVersion)
}
