package archive

import "context"

// Engine is the external archiving collaborator the pipelines orchestrate.
// Implementations shell out to a real archiver; tests substitute an
// in-process fake.
type Engine interface {
	// Create archives in (a file or directory) into a volume-chunked
	// container at dest, recursing into folder contents and overwriting any
	// pre-existing output. volumeSize uses the engine's size syntax
	// (e.g. "100m"), level is the compression level 0-9.
	Create(ctx context.Context, in, dest, volumeSize string, level int) error

	// Test runs the engine's integrity check against the archive at path.
	// For a multi-volume set, path must be the lowest-numbered part; the
	// engine chains subsequent parts on its own.
	Test(ctx context.Context, path string) error

	// Extract unpacks the archive at path into destDir, overwriting
	// existing files without prompting.
	Extract(ctx context.Context, path, destDir string) error
}
