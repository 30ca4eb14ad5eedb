package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveExt is the container extension appended to every archive base name.
const ArchiveExt = ".zip"

// CompressOptions configures a compress-direction run.
type CompressOptions struct {
	Source       string
	Output       string // empty: sibling of Source with a "_compressed" suffix
	VolumeSize   string
	Level        int
	MaxDepth     int
	Exclude      []string
	TestArchives bool
}

// CompressSummary reports run totals. The run succeeded only when
// Succeeded == Total.
type CompressSummary struct {
	Succeeded  int
	Total      int
	Output     string
	LedgerPath string
}

// Compressor runs the compress-direction pipeline: classify the source
// tree, copy excluded files, create one volume-chunked archive per
// compressible unit, optionally verify each archive, and optionally build
// and persist the checksum ledger. All work is sequential.
type Compressor struct {
	engine Engine
	log    *slog.Logger
	ledger *Ledger
	opts   CompressOptions
}

// NewCompressor wires a compressor. ledger may be nil when no checksum
// generation was requested.
func NewCompressor(engine Engine, logger *slog.Logger, ledger *Ledger, opts CompressOptions) *Compressor {
	return &Compressor{engine: engine, log: logger, ledger: ledger, opts: opts}
}

// DefaultOutputPath returns the conventional output directory for a source:
// a sibling named after it with a "_compressed" suffix. For a file source
// the original extension is dropped first.
func DefaultOutputPath(source string) string {
	base := filepath.Base(source)
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(filepath.Dir(source), base+"_compressed")
}

// ArchiveDestination maps a unit to its archive path under the output root.
// The unit's parent relative path is mirrored; the base name keeps the
// folder name for atomic folders and drops the original extension for files.
func ArchiveDestination(outputRoot string, u Unit) string {
	name := filepath.Base(u.Path())
	if !u.IsDir() {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return filepath.Join(outputRoot, filepath.Dir(u.Rel()), name+ArchiveExt)
}

// Run executes the pipeline. Configuration-class failures (missing source,
// uncreatable output) return an error; per-item failures are logged,
// counted, and reflected in the summary instead.
func (c *Compressor) Run(ctx context.Context) (CompressSummary, error) {
	var sum CompressSummary

	src, err := filepath.Abs(c.opts.Source)
	if err != nil {
		return sum, err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return sum, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return sum, err
	}

	out := c.opts.Output
	if out == "" {
		out = DefaultOutputPath(src)
	}
	out, err = filepath.Abs(out)
	if err != nil {
		return sum, err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return sum, fmt.Errorf("failed to create output directory: %w", err)
	}
	sum.Output = out

	c.log.Info("scanning source tree", "source", src)
	cls, err := NewClassifier(c.opts.MaxDepth, c.opts.Exclude).Classify(src)
	if err != nil {
		return sum, fmt.Errorf("classification failed: %w", err)
	}
	c.log.Info("classification complete",
		"compress", len(cls.Compress),
		"copy", len(cls.Copy),
		"atomic_folders", len(cls.Folders))

	sum.Total = len(cls.Compress) + len(cls.Copy) + len(cls.Folders)

	for _, item := range cls.Copy {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if c.copyExcluded(item, out) {
			sum.Succeeded++
		}
	}

	// Atomic folders first, then individual files, matching scan order.
	units := make([]Unit, 0, len(cls.Folders)+len(cls.Compress))
	for _, folder := range cls.Folders {
		units = append(units, folder)
	}
	for _, item := range cls.Compress {
		units = append(units, item)
	}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if c.compressUnit(ctx, u, out) {
			sum.Succeeded++
		}
	}

	if c.ledger != nil {
		c.buildLedger(src, out, cls)
		path := filepath.Join(out, LedgerFileName)
		if err := c.ledger.WriteFile(path); err != nil {
			return sum, fmt.Errorf("failed to persist checksum ledger: %w", err)
		}
		sum.LedgerPath = path
		c.log.Info("checksum ledger written",
			"path", path,
			"source_entries", c.ledger.Len(ScopeSource),
			"target_entries", c.ledger.Len(ScopeTarget),
			"run_id", c.ledger.RunID)
	}

	c.log.Info("compression finished",
		"succeeded", sum.Succeeded,
		"total", sum.Total,
		"output", out)
	return sum, nil
}

func (c *Compressor) copyExcluded(item FileItem, out string) bool {
	dst := filepath.Join(out, item.RelPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		c.log.Error("copy failed", "path", item.RelPath, "error", err)
		return false
	}
	if err := copyFile(item.AbsPath, dst); err != nil {
		c.log.Error("copy failed", "path", item.RelPath, "error", err)
		return false
	}
	c.log.Info("copied excluded file", "path", item.RelPath)
	return true
}

func (c *Compressor) compressUnit(ctx context.Context, u Unit, out string) bool {
	dest := ArchiveDestination(out, u)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		c.log.Error("cannot create destination directory", "dest", dest, "error", err)
		return false
	}

	kind := "file"
	if u.IsDir() {
		kind = "folder"
	}
	c.log.Info("compressing "+kind, "path", u.Rel(), "dest", dest, "level", c.opts.Level)

	if err := c.engine.Create(ctx, u.Path(), dest, c.opts.VolumeSize, c.opts.Level); err != nil {
		c.log.Error("compression failed", "path", u.Rel(), "error", err)
		return false
	}

	if c.opts.TestArchives && !c.verifyArchive(ctx, dest) {
		return false
	}
	return true
}

// verifyArchive checks a freshly created archive. A multi-volume set is
// tested through its lowest-numbered part only; the engine chains the rest.
func (c *Compressor) verifyArchive(ctx context.Context, dest string) bool {
	parts, err := ResolveVolumes(dest)
	if err != nil {
		c.log.Error("volume resolution failed", "dest", dest, "error", err)
		return false
	}
	target := dest
	if len(parts) > 0 {
		c.log.Debug("multi-volume archive detected", "dest", dest, "parts", len(parts))
		target = parts[0]
	}
	if err := c.engine.Test(ctx, target); err != nil {
		c.log.Error("integrity test failed", "archive", target, "error", err)
		return false
	}
	return true
}

// buildLedger records source hashes for every classified input (walking
// atomic folders file by file) and target hashes for everything under the
// output root. The ledger file itself is written afterwards, so it never
// appears in the target section.
func (c *Compressor) buildLedger(src, out string, cls Classification) {
	c.log.Info("computing source hashes")
	for _, item := range cls.Compress {
		c.recordHash(ScopeSource, item.RelPath, item.AbsPath)
	}
	for _, item := range cls.Copy {
		c.recordHash(ScopeSource, item.RelPath, item.AbsPath)
	}
	for _, folder := range cls.Folders {
		err := filepath.WalkDir(folder.AbsPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			c.recordHash(ScopeSource, rel, path)
			return nil
		})
		if err != nil {
			c.log.Warn("source hash walk failed", "folder", folder.RelPath, "error", err)
		}
	}

	c.log.Info("computing target hashes")
	err := filepath.WalkDir(out, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(out, path)
		if err != nil {
			return err
		}
		c.recordHash(ScopeTarget, rel, path)
		return nil
	})
	if err != nil {
		c.log.Warn("target hash walk failed", "error", err)
	}
}

// recordHash logs and moves on when a file cannot be read; a hash missing
// from the ledger means verification is later skipped for that path, not
// treated as a mismatch.
func (c *Compressor) recordHash(scope Scope, rel, path string) {
	if _, err := c.ledger.Record(scope, rel, path); err != nil {
		c.log.Warn("hash computation failed", "scope", string(scope), "path", rel, "error", err)
	}
}

// copyFile copies src to dst, preserving the source's permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
