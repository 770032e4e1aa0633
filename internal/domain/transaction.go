// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"fmt"
	"time"
)

// TransactionRecord is a single transaction submitted for risk scoring.
// The record is treated as immutable once constructed; the scoring engine
// never writes to it.
type TransactionRecord struct {
	TransactionID    string  `json:"transaction_id"`
	UserID           string  `json:"user_id"`
	Amount           float64 `json:"amount"`
	MerchantCategory string  `json:"merchant_category"`
	TransactionType  string  `json:"transaction_type"`

	// Timestamp is optional. A nil timestamp means "no temporal signal"
	// and the off-hours check is skipped.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Location is an optional free-text descriptor.
	Location string `json:"location,omitempty"`

	// DeviceInfo is an opaque attribute bag. The built-in signals do not
	// interpret it; extension signals may reference it as `device`.
	DeviceInfo map[string]any `json:"device_info,omitempty"`
}

// Hour returns the hour-of-day of the transaction timestamp.
// The second return value is false when no timestamp is present.
func (t *TransactionRecord) Hour() (int, bool) {
	if t.Timestamp == nil {
		return 0, false
	}
	return t.Timestamp.Hour(), true
}

// Validate checks the data-model invariants the scoring core assumes.
// The transport layer calls this before a record reaches the detector.
func (t *TransactionRecord) Validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("transaction_id is required")
	}
	if t.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if t.Amount < 0 {
		return fmt.Errorf("amount must be non-negative, got %.2f", t.Amount)
	}
	return nil
}
