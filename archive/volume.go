package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// minVolumeDigits is the minimum width of a numeric volume suffix. The
// engine emits .001, .002, ... so anything narrower is not a volume part.
const minVolumeDigits = 3

// volumeNumber parses the trailing numeric suffix of a volume part name.
// ok is false when the final extension is not purely numeric or is narrower
// than minVolumeDigits.
func volumeNumber(name string) (num int, ok bool) {
	ext := filepath.Ext(name)
	if len(ext) < minVolumeDigits+1 {
		return 0, false
	}
	digits := ext[1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	num, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return num, true
}

// IsVolumePart reports whether name carries a numeric volume suffix
// (".001" qualifies, ".1" and ".abc" do not).
func IsVolumePart(name string) bool {
	_, ok := volumeNumber(name)
	return ok
}

// VolumeBase strips the numeric volume suffix from a part path
// ("a.zip.001" -> "a.zip"). Call only on paths IsVolumePart accepts.
func VolumeBase(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// ResolveVolumes finds every part of a multi-volume set belonging to the
// given base archive path, ordered by the integer value of the numeric
// suffix, not lexicographically ("x.zip.010" sorts after "x.zip.002").
// An empty result means the archive is single-part or absent.
func ResolveVolumes(basePath string) ([]string, error) {
	dir := filepath.Dir(basePath)
	base := filepath.Base(basePath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type part struct {
		num  int
		path string
	}
	var parts []part
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, base+".") {
			continue
		}
		if num, ok := volumeNumber(name); ok {
			parts = append(parts, part{num: num, path: filepath.Join(dir, name)})
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.path
	}
	return paths, nil
}
