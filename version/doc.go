// Package version provides version information and build metadata for volzip.
//
// Version information comes from two sources: compile-time variables
// (Version, Commit, Date) injected via -ldflags, with a fallback to Go's
// runtime build info from debug.ReadBuildInfo(). This keeps version
// reporting consistent across development, CI, and release builds.
package version
