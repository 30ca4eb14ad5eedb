// Package sevenzip shells out to the 7-Zip command line tool. It is the
// production implementation of the archive.Engine contract; the core
// pipelines never import it directly.
package sevenzip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultBinary is used when no engine path override is configured.
const DefaultBinary = "7z"

const (
	// probeTimeout bounds the startup availability check.
	probeTimeout = 10 * time.Second
	// testTimeout bounds integrity tests so a corrupt or huge archive
	// cannot hang the run indefinitely.
	testTimeout = 5 * time.Minute
)

// EngineError reports a non-zero exit from the engine together with the
// diagnostic text it wrote to stderr.
type EngineError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("7z %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("7z %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Client invokes the 7z binary as a blocking subprocess.
type Client struct {
	bin string
}

// NewClient creates a client for the given binary path; empty means the
// system 7z from PATH.
func NewClient(bin string) *Client {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Client{bin: bin}
}

// Probe checks that the binary can be executed at all. Depending on the
// build, 7z exits 0 or 7 when run without arguments; both mean usable.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := exec.CommandContext(ctx, c.bin).Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 7 {
		return nil
	}
	return fmt.Errorf("cannot execute %s: %w", c.bin, err)
}

// Create archives in into a volume-chunked zip container at dest:
// -r recurses into folder contents, passing the item path directly keeps
// its own path prefix out of the container, -v splits into volumeSize
// parts, and -y/-aoa overwrite existing output without prompting.
func (c *Client) Create(ctx context.Context, in, dest, volumeSize string, level int) error {
	return c.run(ctx, "a", []string{
		"a",
		"-tzip",
		"-v" + volumeSize,
		"-y",
		fmt.Sprintf("-mx=%d", level),
		"-r",
		"-aoa",
		dest,
		in,
	})
}

// Test runs the engine's integrity check against the archive at path,
// bounded by testTimeout. For volume sets, path must be the first part.
func (c *Client) Test(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	return c.run(ctx, "t", []string{"t", "-y", path})
}

// Extract unpacks the archive at path into destDir, overwriting without
// prompting.
func (c *Client) Extract(ctx context.Context, path, destDir string) error {
	return c.run(ctx, "x", []string{"x", "-y", "-o" + destDir, path})
}

func (c *Client) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &EngineError{Op: op, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}
