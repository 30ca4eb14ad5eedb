package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/volzip/volzip/archive"
	"github.com/volzip/volzip/sevenzip"
)

// NewCompressCmd creates and returns the compress subcommand for the volzip
// CLI. It runs the compress-direction pipeline over a source file or tree.
func NewCompressCmd() *cobra.Command {
	var (
		volumeSize   string
		excludeExts  string
		generateMD5  bool
		maxDepth     int
		output       string
		testArchives bool
		level        int
		sevenZipPath string
	)

	cmd := &cobra.Command{
		Use:   "compress SOURCE",
		Short: "Compress a file tree into volume-chunked archives",
		Long: `Compress splits a source file or directory into individually compressed,
volume-chunked zip archives while preserving the relative directory
structure. Files with an excluded extension are copied unchanged, and
directories at or beyond the depth limit are compressed as single units.

With --generate-md5 an MD5 checksum ledger covering every source and
output file is written into the output tree; the decompress command can
verify restored files against it later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadDefaults()
			if err != nil {
				return err
			}
			if sevenZipPath == "" {
				sevenZipPath = cfg.SevenZipPath
			}
			if volumeSize == "" {
				volumeSize = cfg.VolumeSize
			}
			if !cmd.Flags().Changed("compression-level") && cfg.CompressionLevel != nil {
				level = *cfg.CompressionLevel
			}
			exclude := parseExtensions(excludeExts)
			if len(exclude) == 0 {
				exclude = cfg.ExcludeExtensions
			}

			if volumeSize == "" {
				return errors.New("volume size is required (--volume-size)")
			}
			if level < 0 || level > 9 {
				return fmt.Errorf("compression level must be between 0 and 9, got %d", level)
			}

			engine := sevenzip.NewClient(sevenZipPath)
			if err := engine.Probe(cmd.Context()); err != nil {
				return fmt.Errorf("%w: %v", archive.ErrEngineUnavailable, err)
			}

			var ledger *archive.Ledger
			if generateMD5 {
				ledger = archive.NewLedger(uuid.New().String())
			}

			comp := archive.NewCompressor(engine, logger, ledger, archive.CompressOptions{
				Source:       args[0],
				Output:       output,
				VolumeSize:   volumeSize,
				Level:        level,
				MaxDepth:     maxDepth,
				Exclude:      exclude,
				TestArchives: testArchives,
			})
			sum, err := comp.Run(cmd.Context())
			if err != nil {
				return err
			}
			if sum.Succeeded < sum.Total {
				return fmt.Errorf("%d of %d tasks failed", sum.Total-sum.Succeeded, sum.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&volumeSize, "volume-size", "v", "", "volume size per archive part, e.g. 100m or 1g (required unless configured)")
	cmd.Flags().StringVarP(&excludeExts, "exclude-extensions", "e", "", `comma-separated extensions to copy instead of compress, e.g. ".tmp,.log"`)
	cmd.Flags().BoolVarP(&generateMD5, "generate-md5", "m", false, "record MD5 checksums and write the ledger into the output tree")
	cmd.Flags().IntVarP(&maxDepth, "max-depth", "d", archive.UnlimitedDepth, "maximum traversal depth; directories at the limit compress as one unit (negative = unlimited)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: sibling of SOURCE with a _compressed suffix)")
	cmd.Flags().BoolVarP(&testArchives, "test", "t", false, "test the integrity of every created archive")
	cmd.Flags().IntVarP(&level, "compression-level", "l", 1, "compression level 0-9 (0 = store, 9 = maximum)")
	cmd.Flags().StringVar(&sevenZipPath, "7z-path", "", "path to the 7z executable (default: 7z from PATH)")

	return cmd
}
