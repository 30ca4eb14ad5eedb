package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeEngine is an in-process Engine. Create writes a payload whose first
// line is the input's base name and whose remainder is the input's content,
// so Extract can restore the original file byte for byte. parts > 1 splits
// the payload across numbered volume files instead of writing dest itself.
type fakeEngine struct {
	parts       int
	failCreate  bool
	failTest    bool
	failExtract bool

	created   []string
	tested    []string
	extracted []string
}

func (f *fakeEngine) Create(ctx context.Context, in, dest, volumeSize string, level int) error {
	if f.failCreate {
		return errors.New("create failed")
	}
	f.created = append(f.created, dest)

	info, err := os.Stat(in)
	if err != nil {
		return err
	}
	var body []byte
	if info.IsDir() {
		body = []byte("folder payload")
	} else {
		body, err = os.ReadFile(in)
		if err != nil {
			return err
		}
	}
	payload := append([]byte(filepath.Base(in)+"\n"), body...)

	if f.parts > 1 {
		chunk := len(payload)/f.parts + 1
		for i := 0; i < f.parts; i++ {
			start := i * chunk
			if start > len(payload) {
				start = len(payload)
			}
			end := start + chunk
			if end > len(payload) {
				end = len(payload)
			}
			part := fmt.Sprintf("%s.%03d", dest, i+1)
			if err := os.WriteFile(part, payload[start:end], 0644); err != nil {
				return err
			}
		}
		return nil
	}
	return os.WriteFile(dest, payload, 0644)
}

func (f *fakeEngine) Test(ctx context.Context, path string) error {
	if f.failTest {
		return errors.New("test failed")
	}
	f.tested = append(f.tested, path)
	return nil
}

func (f *fakeEngine) Extract(ctx context.Context, path, destDir string) error {
	if f.failExtract {
		return errors.New("extract failed")
	}
	f.extracted = append(f.extracted, path)

	var payload []byte
	if IsVolumePart(filepath.Base(path)) {
		parts, err := ResolveVolumes(VolumeBase(path))
		if err != nil {
			return err
		}
		for _, p := range parts {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			payload = append(payload, data...)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		payload = data
	}

	i := bytes.IndexByte(payload, '\n')
	if i < 0 {
		return errors.New("malformed fake archive")
	}
	return os.WriteFile(filepath.Join(destDir, string(payload[:i])), payload[i+1:], 0644)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedSource builds a small tree with one extensionless file (whose restored
// name round-trips exactly), one regular file, one nested file, and one
// excluded passthrough file.
func seedSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "data"), "payload without extension")
	writeFile(t, filepath.Join(src, "notes.txt"), "some notes")
	writeFile(t, filepath.Join(src, "sub", "inner.txt"), "nested content")
	writeFile(t, filepath.Join(src, "skip.tmp"), "passthrough")
	return src
}

func TestCompressorRun(t *testing.T) {
	src := seedSource(t)
	out := filepath.Join(t.TempDir(), "out")
	engine := &fakeEngine{}
	ledger := NewLedger("test-run")

	comp := NewCompressor(engine, testLogger(), ledger, CompressOptions{
		Source:       src,
		Output:       out,
		VolumeSize:   "100m",
		Level:        1,
		MaxDepth:     UnlimitedDepth,
		Exclude:      []string{".tmp"},
		TestArchives: true,
	})
	sum, err := comp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Total != 4 || sum.Succeeded != 4 {
		t.Errorf("summary = %d/%d, want 4/4", sum.Succeeded, sum.Total)
	}
	if sum.Output != out {
		t.Errorf("summary output = %q, want %q", sum.Output, out)
	}
	if len(engine.tested) != 3 {
		t.Errorf("tested %d archives, want 3", len(engine.tested))
	}

	for _, rel := range []string{"data.zip", "notes.zip", filepath.Join("sub", "inner.zip"), "skip.tmp"} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected output %q: %v", rel, err)
		}
	}

	if sum.LedgerPath != filepath.Join(out, LedgerFileName) {
		t.Errorf("LedgerPath = %q", sum.LedgerPath)
	}
	if _, err := os.Stat(sum.LedgerPath); err != nil {
		t.Fatalf("ledger file missing: %v", err)
	}
	if got := ledger.Len(ScopeSource); got != 4 {
		t.Errorf("source entries = %d, want 4", got)
	}
	if _, ok := ledger.Lookup(ScopeTarget, "data.zip"); !ok {
		t.Error("target ledger missing data.zip")
	}
	// The ledger never lists itself; target hashes are taken first.
	if _, ok := ledger.Lookup(ScopeTarget, LedgerFileName); ok {
		t.Error("ledger file recorded its own hash")
	}
}

func TestCompressorAtomicFolder(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "top.txt"), "top")
	writeFile(t, filepath.Join(src, "a", "b", "c.txt"), "deep")
	out := filepath.Join(t.TempDir(), "out")
	engine := &fakeEngine{}
	ledger := NewLedger("")

	comp := NewCompressor(engine, testLogger(), ledger, CompressOptions{
		Source:     src,
		Output:     out,
		VolumeSize: "100m",
		Level:      1,
		MaxDepth:   1,
	})
	sum, err := comp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Total != 2 || sum.Succeeded != 2 {
		t.Fatalf("summary = %d/%d, want 2/2", sum.Succeeded, sum.Total)
	}

	for _, rel := range []string{"top.zip", "a.zip"} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected output %q: %v", rel, err)
		}
	}
	// Atomic folder contents are hashed file by file.
	if _, ok := ledger.Lookup(ScopeSource, filepath.Join("a", "b", "c.txt")); !ok {
		t.Error("source ledger missing file inside atomic folder")
	}
}

func TestCompressorMultiVolumeVerify(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "big"), strings.Repeat("x", 256))
	out := filepath.Join(t.TempDir(), "out")
	engine := &fakeEngine{parts: 3}

	comp := NewCompressor(engine, testLogger(), nil, CompressOptions{
		Source:       src,
		Output:       out,
		VolumeSize:   "1k",
		Level:        1,
		MaxDepth:     UnlimitedDepth,
		TestArchives: true,
	})
	sum, err := comp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %d/%d", sum.Succeeded, sum.Total)
	}

	if len(engine.tested) != 1 || !strings.HasSuffix(engine.tested[0], ".zip.001") {
		t.Errorf("tested = %v, want the first volume part", engine.tested)
	}
	if _, err := os.Stat(filepath.Join(out, "big.zip")); err == nil {
		t.Error("bare container exists alongside volume parts")
	}
	for _, suffix := range []string{".001", ".002", ".003"} {
		if _, err := os.Stat(filepath.Join(out, "big.zip"+suffix)); err != nil {
			t.Errorf("missing volume part %s: %v", suffix, err)
		}
	}
}

func TestCompressorVerifyFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	engine := &fakeEngine{failTest: true}

	comp := NewCompressor(engine, testLogger(), nil, CompressOptions{
		Source:       src,
		Output:       filepath.Join(t.TempDir(), "out"),
		VolumeSize:   "100m",
		Level:        1,
		MaxDepth:     UnlimitedDepth,
		TestArchives: true,
	})
	sum, err := comp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, per-item failures must not abort", err)
	}
	if sum.Total != 1 || sum.Succeeded != 0 {
		t.Errorf("summary = %d/%d, want 0/1 (integrity test failure fails the task)", sum.Succeeded, sum.Total)
	}
	// The archive itself was created; only its verification failed.
	if _, err := os.Stat(filepath.Join(sum.Output, "a.zip")); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestCompressorCreateFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "skip.tmp"), "b")
	engine := &fakeEngine{failCreate: true}

	comp := NewCompressor(engine, testLogger(), nil, CompressOptions{
		Source:     src,
		Output:     filepath.Join(t.TempDir(), "out"),
		VolumeSize: "100m",
		Level:      1,
		MaxDepth:   UnlimitedDepth,
		Exclude:    []string{".tmp"},
	})
	sum, err := comp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, per-item failures must not abort", err)
	}
	if sum.Total != 2 || sum.Succeeded != 1 {
		t.Errorf("summary = %d/%d, want 1/2 (copy succeeds, create fails)", sum.Succeeded, sum.Total)
	}
}

func TestCompressorMissingSource(t *testing.T) {
	comp := NewCompressor(&fakeEngine{}, testLogger(), nil, CompressOptions{
		Source:     filepath.Join(t.TempDir(), "nope"),
		Output:     t.TempDir(),
		VolumeSize: "100m",
	})
	_, err := comp.Run(context.Background())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Run() error = %v, want ErrSourceNotFound", err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "photos")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(tmp, "report.dat")
	writeFile(t, file, "x")

	if got, want := DefaultOutputPath(dir), filepath.Join(tmp, "photos_compressed"); got != want {
		t.Errorf("DefaultOutputPath(dir) = %q, want %q", got, want)
	}
	if got, want := DefaultOutputPath(file), filepath.Join(tmp, "report_compressed"); got != want {
		t.Errorf("DefaultOutputPath(file) = %q, want %q", got, want)
	}
}

// compressFixture runs a full compress with a ledger and returns the output
// tree, ready for extractor tests.
func compressFixture(t *testing.T, engine *fakeEngine) string {
	t.Helper()
	src := seedSource(t)
	out := filepath.Join(t.TempDir(), "compressed")
	comp := NewCompressor(engine, testLogger(), NewLedger("fixture"), CompressOptions{
		Source:     src,
		Output:     out,
		VolumeSize: "100m",
		Level:      1,
		MaxDepth:   UnlimitedDepth,
		Exclude:    []string{".tmp"},
	})
	if _, err := comp.Run(context.Background()); err != nil {
		t.Fatalf("fixture compress failed: %v", err)
	}
	return out
}

func TestExtractorRoundTrip(t *testing.T) {
	engine := &fakeEngine{}
	compressed := compressFixture(t, engine)
	restored := filepath.Join(t.TempDir(), "restored")

	ext := NewExtractor(engine, testLogger(), ExtractOptions{
		Source:     compressed,
		Output:     restored,
		VerifyHash: true,
	})
	sum, err := ext.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Failed != 0 || sum.Mismatches != 0 {
		t.Errorf("failed = %d, mismatches = %d, want 0/0", sum.Failed, sum.Mismatches)
	}
	if sum.Extracted != 3 {
		t.Errorf("extracted = %d, want 3", sum.Extracted)
	}
	// The passthrough file and the ledger file itself are copied.
	if sum.Copied != 2 {
		t.Errorf("copied = %d, want 2", sum.Copied)
	}

	tests := []struct {
		rel  string
		want string
	}{
		{"data", "payload without extension"},
		{"notes.txt", "some notes"},
		{filepath.Join("sub", "inner.txt"), "nested content"},
		{"skip.tmp", "passthrough"},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(restored, tt.rel))
		if err != nil {
			t.Errorf("restored %q missing: %v", tt.rel, err)
			continue
		}
		if string(data) != tt.want {
			t.Errorf("restored %q = %q, want %q", tt.rel, data, tt.want)
		}
	}
}

func TestExtractorVolumeDedup(t *testing.T) {
	src := filepath.Join(t.TempDir(), "input")
	writeFile(t, filepath.Join(src, "big"), strings.Repeat("y", 256))
	compressed := filepath.Join(t.TempDir(), "compressed")
	engine := &fakeEngine{parts: 3}
	comp := NewCompressor(engine, testLogger(), nil, CompressOptions{
		Source:     src,
		Output:     compressed,
		VolumeSize: "1k",
		Level:      1,
		MaxDepth:   UnlimitedDepth,
	})
	if _, err := comp.Run(context.Background()); err != nil {
		t.Fatalf("fixture compress failed: %v", err)
	}

	restored := filepath.Join(t.TempDir(), "restored")
	ext := NewExtractor(engine, testLogger(), ExtractOptions{
		Source: compressed,
		Output: restored,
	})
	sum, err := ext.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Extracted != 1 {
		t.Errorf("extracted = %d, want 1 (three parts, one set)", sum.Extracted)
	}
	if len(engine.extracted) != 1 || !strings.HasSuffix(engine.extracted[0], ".zip.001") {
		t.Errorf("engine extracted %v, want one call with the first part", engine.extracted)
	}
	data, err := os.ReadFile(filepath.Join(restored, "big"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != strings.Repeat("y", 256) {
		t.Error("restored content does not match the original")
	}
}

func TestExtractorMismatchAdvisory(t *testing.T) {
	engine := &fakeEngine{}
	compressed := compressFixture(t, engine)

	// Corrupt the passthrough file after its hash was recorded.
	writeFile(t, filepath.Join(compressed, "skip.tmp"), "tampered")

	ext := NewExtractor(engine, testLogger(), ExtractOptions{
		Source:     compressed,
		Output:     filepath.Join(t.TempDir(), "restored"),
		VerifyHash: true,
	})
	sum, err := ext.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, mismatches must not abort", err)
	}
	if sum.Mismatches != 1 {
		t.Errorf("mismatches = %d, want 1", sum.Mismatches)
	}
	if sum.Failed != 0 {
		t.Errorf("failed = %d, want 0", sum.Failed)
	}
}

func TestExtractorLedgerMissing(t *testing.T) {
	src := filepath.Join(t.TempDir(), "compressed")
	writeFile(t, filepath.Join(src, "a.zip"), "a\nx")

	ext := NewExtractor(&fakeEngine{}, testLogger(), ExtractOptions{
		Source:     src,
		Output:     filepath.Join(t.TempDir(), "restored"),
		VerifyHash: true,
	})
	_, err := ext.Run(context.Background())
	if !errors.Is(err, ErrLedgerNotFound) {
		t.Errorf("Run() error = %v, want ErrLedgerNotFound", err)
	}
}

func TestExtractorExtractFailure(t *testing.T) {
	engine := &fakeEngine{}
	compressed := compressFixture(t, engine)
	engine.failExtract = true

	ext := NewExtractor(engine, testLogger(), ExtractOptions{
		Source: compressed,
		Output: filepath.Join(t.TempDir(), "restored"),
	})
	sum, err := ext.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, per-item failures must not abort", err)
	}
	if sum.Failed != 3 {
		t.Errorf("failed = %d, want 3", sum.Failed)
	}
	if sum.Copied != 2 {
		t.Errorf("copied = %d, want 2 (plain copies unaffected)", sum.Copied)
	}
}

func TestExtractorMissingSource(t *testing.T) {
	ext := NewExtractor(&fakeEngine{}, testLogger(), ExtractOptions{
		Source: filepath.Join(t.TempDir(), "nope"),
		Output: t.TempDir(),
	})
	_, err := ext.Run(context.Background())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Run() error = %v, want ErrSourceNotFound", err)
	}
}
