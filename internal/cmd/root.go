package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/volzip/volzip/internal/config"
	"github.com/volzip/volzip/version"
)

var (
	cfgFile  string
	logLevel string
)

// NewRootCmd creates and returns the root cobra command for the volzip CLI.
// It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "volzip",
		Short: "volzip - split file trees into volume-chunked archives with checksum ledgers",
		Long: `volzip compresses every file of a source tree into its own volume-chunked
zip archive while preserving the tree's relative directory structure, and
restores such trees later. Compression is delegated to the external 7-Zip
binary; volzip handles classification, destination mapping, volume set
resolution, and MD5 checksum bookkeeping.

Use subcommands for the two directions:
  - compress: classify a source tree and produce volumed archives
  - decompress: restore a previously produced tree, optionally verifying
    content hashes against the persisted checksum ledger`,
		Version:      version.GetFullVersion(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/volzip/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	groupArchive := "archive"
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupArchive,
		Title: "Archive Operations",
	})

	compressCmd := NewCompressCmd()
	decompressCmd := NewDecompressCmd()

	compressCmd.GroupID = groupArchive
	decompressCmd.GroupID = groupArchive

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(decompressCmd)

	return rootCmd
}

// newLogger builds the process logger, writing leveled lines to stderr.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadDefaults reads the optional defaults file; --config overrides the
// conventional location.
func loadDefaults() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// parseExtensions splits a comma-separated extension list, dropping empty
// entries.
func parseExtensions(s string) []string {
	var exts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			exts = append(exts, part)
		}
	}
	return exts
}
