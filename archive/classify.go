package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// UnlimitedDepth disables the depth cutoff during classification.
const UnlimitedDepth = -1

// FileItem is a single file discovered under the classification root.
// RelPath is always relative to that root and immutable once computed.
type FileItem struct {
	AbsPath string
	RelPath string
}

// AtomicFolder is a directory subtree reached at the depth cutoff. It is
// compressed as one indivisible unit; RelPath is the folder's own path, not
// its members'.
type AtomicFolder struct {
	AbsPath string
	RelPath string
}

// Unit is the granularity at which archive creation happens: either an
// individual file or an atomic folder.
type Unit interface {
	Path() string
	Rel() string
	IsDir() bool
}

func (f FileItem) Path() string { return f.AbsPath }
func (f FileItem) Rel() string  { return f.RelPath }
func (f FileItem) IsDir() bool  { return false }

func (a AtomicFolder) Path() string { return a.AbsPath }
func (a AtomicFolder) Rel() string  { return a.RelPath }
func (a AtomicFolder) IsDir() bool  { return true }

// Classification partitions everything under a root into three disjoint
// buckets. Every file belongs to exactly one of them, counting files inside
// atomic folders as members of their folder.
type Classification struct {
	Compress []FileItem
	Copy     []FileItem
	Folders  []AtomicFolder
}

// Classifier buckets the contents of a source tree by depth and extension.
type Classifier struct {
	maxDepth int
	exclude  map[string]bool
}

// NewClassifier builds a classifier. maxDepth < 0 means unlimited.
// Exclusion extensions are case-insensitive and may be given with or
// without the leading dot.
func NewClassifier(maxDepth int, excludeExts []string) *Classifier {
	exclude := make(map[string]bool, len(excludeExts))
	for _, ext := range excludeExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exclude[ext] = true
	}
	return &Classifier{maxDepth: maxDepth, exclude: exclude}
}

// Excluded reports whether the path's extension is in the exclusion set.
func (c *Classifier) Excluded(path string) bool {
	if len(c.exclude) == 0 {
		return false
	}
	return c.exclude[strings.ToLower(filepath.Ext(path))]
}

// Classify walks root and partitions its contents. A single-file root is
// classified directly. For directories, a subdirectory whose depth reaches
// the cutoff becomes one atomic folder and is not descended into; files in
// shallower directories are classified individually by extension.
//
// With maxDepth 0 the cutoff triggers at the root itself, so a non-trivial
// tree becomes a single atomic folder with RelPath ".".
func (c *Classifier) Classify(root string) (Classification, error) {
	var cls Classification

	info, err := os.Stat(root)
	if err != nil {
		return cls, err
	}
	if !info.IsDir() {
		item := FileItem{AbsPath: root, RelPath: filepath.Base(root)}
		if c.Excluded(root) {
			cls.Copy = append(cls.Copy, item)
		} else {
			cls.Compress = append(cls.Compress, item)
		}
		return cls, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if c.maxDepth >= 0 && pathDepth(rel) >= c.maxDepth {
				cls.Folders = append(cls.Folders, AtomicFolder{AbsPath: path, RelPath: rel})
				return filepath.SkipDir
			}
			return nil
		}
		item := FileItem{AbsPath: path, RelPath: rel}
		if c.Excluded(path) {
			cls.Copy = append(cls.Copy, item)
		} else {
			cls.Compress = append(cls.Compress, item)
		}
		return nil
	})
	return cls, err
}

// pathDepth counts path segments between a directory and the root; the root
// itself (relative ".") is depth 0.
func pathDepth(rel string) int {
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
