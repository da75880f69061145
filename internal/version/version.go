// Package version carries build metadata injected at link time.
package version

// Set via -ldflags at build time; the defaults identify a local dev build.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)
