// Package archive implements the core logic of volzip: classifying a source
// tree into compressible units, mapping them to volume-chunked destination
// archives, resolving multi-part volume sets, and building the checksum
// ledger that records round-trip fidelity.
//
// Key Components:
//
// Classification:
//   - Classifier walks a source tree under a depth limit and exclusion policy
//   - Every file lands in exactly one bucket: compress, copy, or a member of
//     one atomic folder
//
// Volume Sets:
//   - ResolveVolumes discovers and orders the parts of a multi-volume
//     archive by the integer value of their numeric suffix
//
// Checksum Ledger:
//   - Ledger streams MD5 digests for the source and target file sets and
//     persists them as a flat two-section text document
//
// Pipelines:
//   - Compressor drives the compress direction, Extractor the reverse;
//     both invoke the external archiving engine through the Engine interface
//     and never parallelize across items
//
// The actual compression format is owned by the external engine (7-Zip);
// this package only orchestrates it.
package archive
