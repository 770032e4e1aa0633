package domain

import "fmt"

// BatchTooLargeError is returned when a batch exceeds the configured ceiling.
// The entire batch is rejected before any item is evaluated; the caller can
// recover by splitting into smaller batches.
type BatchTooLargeError struct {
	Size  int
	Limit int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch size %d exceeds maximum of %d transactions", e.Size, e.Limit)
}

// ScoringError is a per-item scoring failure. In batch mode it is attached
// to the failing item's slot instead of aborting the whole batch.
type ScoringError struct {
	TransactionID string
	Err           error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring transaction %s: %v", e.TransactionID, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
