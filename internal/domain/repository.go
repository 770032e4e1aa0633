package domain

import "context"

// Repository defines the interface for data persistence. Kestrel persists
// incoming transaction records and extension-signal configurations; scoring
// outcomes are returned to the caller and never stored.
type Repository interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *TransactionRecord) error
	GetTransaction(ctx context.Context, txnID string) (*TransactionRecord, error)

	// Extension signal configuration
	SaveSignalConfig(ctx context.Context, sig *SignalConfig) error
	ListSignalConfigs(ctx context.Context) ([]*SignalConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}
