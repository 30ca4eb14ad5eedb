package archive

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Scope selects which section of the ledger an entry belongs to.
type Scope string

const (
	// ScopeSource records hashes of inputs before processing.
	ScopeSource Scope = "SOURCE"
	// ScopeTarget records hashes of the produced output tree.
	ScopeTarget Scope = "TARGET"
)

// LedgerFileName is the ledger's on-disk name. Decompression auto-discovers
// it inside the source tree when no explicit path is given.
const LedgerFileName = "compression_checksums.md5"

// Section marker comments. The parser keys on these literal substrings, so
// they must survive round trips unchanged.
const (
	sourceMarker = "源文件MD5校验值"
	targetMarker = "目标文件MD5校验值"
)

// Ledger accumulates content hashes for a single run. It is owned by the
// pipeline that created it and passed through explicitly; it is not safe
// for concurrent use, which the single-threaded pipelines never need.
type Ledger struct {
	// RunID identifies the run that produced the ledger; recorded in the
	// persisted header.
	RunID string

	source map[string]string
	target map[string]string
}

// NewLedger returns an empty ledger for the given run.
func NewLedger(runID string) *Ledger {
	return &Ledger{
		RunID:  runID,
		source: make(map[string]string),
		target: make(map[string]string),
	}
}

// HashFile streams the file at path through MD5 and returns the lowercase
// hex digest. Identical bytes always yield the identical digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Record hashes the file at path and stores the digest under (scope, rel).
// A second Record for the same key overwrites the previous entry, keeping
// at most one entry per (scope, rel).
func (l *Ledger) Record(scope Scope, rel, path string) (string, error) {
	sum, err := HashFile(path)
	if err != nil {
		return "", err
	}
	l.section(scope)[rel] = sum
	return sum, nil
}

// Lookup returns the recorded digest for (scope, rel).
func (l *Ledger) Lookup(scope Scope, rel string) (string, bool) {
	sum, ok := l.section(scope)[rel]
	return sum, ok
}

// Len returns the number of entries recorded under scope.
func (l *Ledger) Len(scope Scope) int {
	return len(l.section(scope))
}

func (l *Ledger) section(scope Scope) map[string]string {
	if scope == ScopeTarget {
		return l.target
	}
	return l.source
}

// WriteFile persists the ledger as a flat UTF-8 document: a header comment
// block, then the source section, then the target section. Entries are
// sorted by relative path so output is deterministic and diff-friendly.
func (l *Ledger) WriteFile(path string) error {
	var b strings.Builder
	b.WriteString("# 压缩过程MD5校验文件\n")
	fmt.Fprintf(&b, "# 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if l.RunID != "" {
		fmt.Fprintf(&b, "# 运行ID: %s\n", l.RunID)
	}
	b.WriteString("\n# " + sourceMarker + "\n")
	writeSection(&b, l.source)
	b.WriteString("\n# " + targetMarker + "\n")
	writeSection(&b, l.target)

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func writeSection(b *strings.Builder, entries map[string]string) {
	rels := make([]string, 0, len(entries))
	for rel := range entries {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		fmt.Fprintf(b, "%s *%s\n", entries[rel], rel)
	}
}

// ParseLedgerFile reads a persisted ledger back into memory. Section
// membership follows the most recently seen marker comment; blank lines,
// unrelated comments, and lines before the first marker are ignored.
// Data lines split on the literal " *" separator into (hash, path).
func ParseLedgerFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l := NewLedger("")
	var current map[string]string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			switch {
			case strings.Contains(line, sourceMarker):
				current = l.source
			case strings.Contains(line, targetMarker):
				current = l.target
			}
			continue
		}
		if current == nil {
			continue
		}
		sum, rel, ok := strings.Cut(line, " *")
		if !ok {
			continue
		}
		current[rel] = sum
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// FindLedger searches dir recursively for the conventional ledger file name
// and returns the first match.
func FindLedger(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == LedgerFileName {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrLedgerNotFound
	}
	return found, nil
}
