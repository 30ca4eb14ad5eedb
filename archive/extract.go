package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ExtractOptions configures a decompress-direction run.
type ExtractOptions struct {
	Source     string
	Output     string
	VerifyHash bool
	LedgerPath string // empty: auto-discover LedgerFileName under Source
}

// ExtractSummary reports run totals. Mismatches are advisory and do not
// make the run fail; Failed > 0 does.
type ExtractSummary struct {
	Extracted  int
	Copied     int
	Failed     int
	Mismatches int
}

// Extractor runs the decompress-direction pipeline: walk a previously
// produced tree, extract archives (deduplicating multi-volume sets),
// copy plain files through, and optionally verify results against a
// persisted checksum ledger.
type Extractor struct {
	engine Engine
	log    *slog.Logger
	ledger *Ledger
	opts   ExtractOptions
}

// NewExtractor wires an extractor. The ledger, when verification is
// enabled, is loaded at the start of Run.
func NewExtractor(engine Engine, logger *slog.Logger, opts ExtractOptions) *Extractor {
	return &Extractor{engine: engine, log: logger, opts: opts}
}

// OriginalName reconstructs an item's original name from its archive file
// name by stripping one trailing extension: "x.zip" -> "x" for single-part
// containers, "x.zip.001" -> "x.zip" for volume parts.
func OriginalName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Run executes the pipeline. Configuration-class failures (missing source,
// uncreatable output, verification requested but no ledger found) return an
// error; per-item failures are logged and counted in the summary.
func (e *Extractor) Run(ctx context.Context) (ExtractSummary, error) {
	var sum ExtractSummary

	src, err := filepath.Abs(e.opts.Source)
	if err != nil {
		return sum, err
	}
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return sum, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return sum, err
	}

	out, err := filepath.Abs(e.opts.Output)
	if err != nil {
		return sum, err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return sum, fmt.Errorf("failed to create output directory: %w", err)
	}

	if e.opts.VerifyHash {
		if err := e.loadLedger(src); err != nil {
			return sum, err
		}
	}

	e.log.Info("starting decompression", "source", src, "output", out)

	// Tracks volume sets already extracted, keyed by the set's relative
	// base path so same-named sets in different directories stay distinct.
	handled := make(map[string]bool)

	err = filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		name := d.Name()
		switch {
		case IsVolumePart(name):
			setBase := VolumeBase(rel)
			if handled[setBase] {
				return nil
			}
			handled[setBase] = true
			e.extractArchive(ctx, path, rel, out, true, &sum)
		case strings.EqualFold(filepath.Ext(name), ArchiveExt):
			e.extractArchive(ctx, path, rel, out, false, &sum)
		default:
			e.copyPlain(path, rel, out, &sum)
		}
		return nil
	})
	if err != nil {
		return sum, err
	}

	e.log.Info("decompression finished",
		"extracted", sum.Extracted,
		"copied", sum.Copied,
		"failed", sum.Failed,
		"hash_mismatches", sum.Mismatches)
	return sum, nil
}

func (e *Extractor) loadLedger(src string) error {
	path := e.opts.LedgerPath
	if path == "" {
		found, err := FindLedger(src)
		if err != nil {
			return fmt.Errorf("%w: pass an explicit ledger path", err)
		}
		path = found
	}
	ledger, err := ParseLedgerFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse checksum ledger: %w", err)
	}
	e.ledger = ledger
	e.log.Info("checksum ledger loaded",
		"path", path,
		"source_entries", ledger.Len(ScopeSource),
		"target_entries", ledger.Len(ScopeTarget))
	return nil
}

// extractArchive extracts one archive into the mirrored location under out.
// For a multi-volume set the lowest-numbered part is handed to the engine,
// which chains the remaining parts on its own.
func (e *Extractor) extractArchive(ctx context.Context, path, rel, out string, multiVolume bool, sum *ExtractSummary) {
	archivePath := path
	if multiVolume {
		parts, err := ResolveVolumes(VolumeBase(path))
		if err == nil && len(parts) == 0 {
			err = ErrNoVolumeParts
		}
		if err != nil {
			e.log.Error("cannot resolve volume set", "archive", rel, "error", err)
			sum.Failed++
			return
		}
		e.log.Info("extracting volume set", "archive", rel, "parts", len(parts))
		archivePath = parts[0]
	} else {
		e.log.Info("extracting archive", "archive", rel)
	}

	destDir := filepath.Join(out, filepath.Dir(rel))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		e.log.Error("cannot create extraction directory", "dir", destDir, "error", err)
		sum.Failed++
		return
	}
	if err := e.engine.Extract(ctx, archivePath, destDir); err != nil {
		e.log.Error("extraction failed", "archive", rel, "error", err)
		sum.Failed++
		return
	}
	sum.Extracted++

	if e.ledger == nil {
		return
	}
	resultRel := filepath.Join(filepath.Dir(rel), OriginalName(filepath.Base(path)))
	e.verifyResult(ScopeSource, resultRel, filepath.Join(out, resultRel), sum)
}

// copyPlain copies a passthrough file byte for byte, preserving its
// relative path.
func (e *Extractor) copyPlain(path, rel, out string, sum *ExtractSummary) {
	dst := filepath.Join(out, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		e.log.Error("copy failed", "path", rel, "error", err)
		sum.Failed++
		return
	}
	if err := copyFile(path, dst); err != nil {
		e.log.Error("copy failed", "path", rel, "error", err)
		sum.Failed++
		return
	}
	sum.Copied++

	if e.ledger != nil {
		e.verifyResult(ScopeTarget, rel, dst, sum)
	}
}

// verifyResult compares a produced file against the recorded digest.
// Missing files and unrecorded paths are skipped; a mismatch is logged but
// never aborts the run.
func (e *Extractor) verifyResult(scope Scope, rel, path string, sum *ExtractSummary) {
	want, ok := e.ledger.Lookup(scope, rel)
	if !ok {
		e.log.Debug("no recorded hash, skipping verification", "path", rel)
		return
	}
	if _, err := os.Stat(path); err != nil {
		e.log.Debug("result not present for verification", "path", rel)
		return
	}
	got, err := HashFile(path)
	if err != nil {
		e.log.Error("hash computation failed", "path", rel, "error", err)
		return
	}
	if got != want {
		e.log.Error("hash mismatch", "path", rel, "want", want, "got", got)
		sum.Mismatches++
		return
	}
	e.log.Debug("hash verified", "path", rel)
}
