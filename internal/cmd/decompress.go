package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/volzip/volzip/archive"
	"github.com/volzip/volzip/sevenzip"
)

// NewDecompressCmd creates and returns the decompress subcommand for the
// volzip CLI. It restores a tree previously produced by compress.
func NewDecompressCmd() *cobra.Command {
	var (
		output       string
		verifyMD5    bool
		ledgerPath   string
		sevenZipPath string
	)

	cmd := &cobra.Command{
		Use:   "decompress SOURCE",
		Short: "Restore a tree produced by compress",
		Long: `Decompress walks a previously produced output tree, extracts every
archive (multi-volume sets through their first part only), and copies
plain files through unchanged, mirroring the original relative structure.

With --verify-md5 the checksum ledger discovered in the source tree (or
given explicitly) is used to check every restored file's content hash.
Mismatches are logged but do not fail the run.`,
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

			engine := sevenzip.NewClient(sevenZipPath)
			if err := engine.Probe(cmd.Context()); err != nil {
				return fmt.Errorf("%w: %v", archive.ErrEngineUnavailable, err)
			}

			ext := archive.NewExtractor(engine, logger, archive.ExtractOptions{
				Source:     args[0],
				Output:     output,
				VerifyHash: verifyMD5,
				LedgerPath: ledgerPath,
			})
			sum, err := ext.Run(cmd.Context())
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d items failed to restore", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to restore into (required)")
	cmd.Flags().BoolVarP(&verifyMD5, "verify-md5", "m", false, "verify restored files against the checksum ledger")
	cmd.Flags().StringVarP(&ledgerPath, "md5-file", "f", "", "checksum ledger path (default: discovered inside SOURCE)")
	cmd.Flags().StringVar(&sevenZipPath, "7z-path", "", "path to the 7z executable (default: 7z from PATH)")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}
