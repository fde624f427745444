package journal

// ============================================================================
// Journal Error Definitions
// Purpose: Define all journal-related error types
// ============================================================================

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrCorruptedJournal indicates a line that cannot be parsed as an entry
	ErrCorruptedJournal = errors.New("journal: file is corrupted")

	// ErrChecksumMismatch indicates checksum mismatch (data corruption or tampering)
	ErrChecksumMismatch = errors.New("journal: checksum mismatch")

	// ErrJournalClosed indicates the journal is closed, cannot perform operation
	ErrJournalClosed = errors.New("journal: already closed")
)

// ChecksumError represents checksum error with detailed information
type ChecksumError struct {
	Seq      uint64 // Sequence number of failed entry
	Expected uint32 // Expected checksum
	Actual   uint32 // Stored checksum
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("journal: checksum mismatch at seq=%d (expected=0x%08x, got=0x%08x)", e.Seq, e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// CorruptionError represents a line that could not be decoded
type CorruptionError struct {
	Line  int   // 1-based line number in the file
	Cause error // Underlying error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("journal: corrupted entry at line %d: %v", e.Line, e.Cause)
}

func (e *CorruptionError) Unwrap() error {
	return e.Cause
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorruptedJournal
}
