// Package main provides the volzip command-line interface.
//
// volzip splits a file tree into individually compressed, volume-chunked
// archives while preserving the tree's relative directory structure, and
// reverses the process later. Compression itself is delegated to the external
// 7-Zip binary; volzip handles classification, destination mapping, volume
// set resolution, and checksum bookkeeping.
//
// The binary supports two pipeline subcommands:
//   - compress: classify a source tree and produce volumed archives
//   - decompress: restore a previously produced tree, optionally verifying
//     content hashes against the persisted checksum ledger
package main
