// Package cmd provides the command-line interface implementation for volzip.
//
// It uses the Cobra library for command structure and Fang for styling.
// Each subcommand is implemented in its own file with a constructor that
// returns a *cobra.Command; the root command assembles them and carries the
// flags shared by both directions (config file, log level).
//
// Commands:
//   - compress: run the compress-direction pipeline
//   - decompress: run the decompress-direction pipeline
//
// The package wires the archive pipelines to the sevenzip engine client and
// merges CLI flags with the optional YAML defaults file.
package cmd
