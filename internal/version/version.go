// Package version carries the build metadata stamped into the
// card-retouch binary.
package version

// Overridden at build time via -ldflags "-X ...".
var (
	// Version is the release the binary was cut from.
	Version = "0.1.0"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// GitCommit is the short hash of the commit that was built.
	GitCommit = "unknown"
)
