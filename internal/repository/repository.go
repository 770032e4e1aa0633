// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores an incoming transaction record.
func (r *SQLRepository) SaveTransaction(ctx context.Context, txn *domain.TransactionRecord) error {
	if txn == nil || txn.TransactionID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	deviceInfo, _ := json.Marshal(txn.DeviceInfo)

	var ts sql.NullTime
	if txn.Timestamp != nil {
		ts = sql.NullTime{Time: *txn.Timestamp, Valid: true}
	}

	query := `
		INSERT INTO transactions (
			id, user_id, amount, merchant_category, transaction_type,
			timestamp, location, device_info, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		txn.TransactionID, txn.UserID, txn.Amount,
		txn.MerchantCategory, txn.TransactionType,
		ts, txn.Location, string(deviceInfo),
		time.Now().UTC(),
	)
	return err
}

// GetTransaction retrieves a transaction record by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txnID string) (*domain.TransactionRecord, error) {
	if txnID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, user_id, amount, merchant_category, transaction_type,
			   timestamp, location, device_info
		FROM transactions
		WHERE id = ?
	`

	var txn domain.TransactionRecord
	var ts sql.NullTime
	var deviceInfo string

	err := r.db.QueryRowContext(ctx, r.rebind(query), txnID).Scan(
		&txn.TransactionID, &txn.UserID, &txn.Amount,
		&txn.MerchantCategory, &txn.TransactionType,
		&ts, &txn.Location, &deviceInfo,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if ts.Valid {
		t := ts.Time
		txn.Timestamp = &t
	}
	if deviceInfo != "" && deviceInfo != "null" {
		json.Unmarshal([]byte(deviceInfo), &txn.DeviceInfo)
	}

	return &txn, nil
}

// SaveSignalConfig stores an extension signal configuration, upserting on ID.
func (r *SQLRepository) SaveSignalConfig(ctx context.Context, sig *domain.SignalConfig) error {
	if sig == nil || sig.ID == "" {
		return fmt.Errorf("%w: signal id is required", ErrInvalidInput)
	}

	enabled := 0
	if sig.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO signal_configs (
			id, name, description, expression, weight, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			weight = excluded.weight,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		sig.ID, sig.Name, sig.Description, sig.Expression,
		sig.Weight, sig.Reason, enabled,
		now, now,
	)
	return err
}

// ListSignalConfigs retrieves all enabled extension signal configurations.
func (r *SQLRepository) ListSignalConfigs(ctx context.Context) ([]*domain.SignalConfig, error) {
	query := `
		SELECT id, name, description, expression, weight, reason, enabled, created_at, updated_at
		FROM signal_configs
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.SignalConfig
	for rows.Next() {
		var sig domain.SignalConfig
		var enabled int

		if err := rows.Scan(
			&sig.ID, &sig.Name, &sig.Description, &sig.Expression,
			&sig.Weight, &sig.Reason, &enabled,
			&sig.CreatedAt, &sig.UpdatedAt,
		); err != nil {
			return nil, err
		}

		sig.Enabled = enabled == 1
		configs = append(configs, &sig)
	}

	return configs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
