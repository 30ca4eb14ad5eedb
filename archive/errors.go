package archive

import "errors"

// Sentinel errors for package archive.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Configuration errors; these abort a run before any item is processed
	ErrSourceNotFound    = errors.New("source path does not exist")
	ErrEngineUnavailable = errors.New("archiving engine is not available")
	ErrLedgerNotFound    = errors.New("checksum ledger not found")

	// Volume set errors
	ErrNoVolumeParts = errors.New("no volume parts found for archive")
)
