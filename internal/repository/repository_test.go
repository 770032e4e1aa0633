package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func testRepo(t *testing.T) domain.Repository {
	t.Helper()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "kestrel_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSaveAndGetTransaction(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	txn := &domain.TransactionRecord{
		TransactionID:    "tx-001",
		UserID:           "user-1",
		Amount:           15000,
		MerchantCategory: "gambling",
		TransactionType:  "purchase",
		Timestamp:        &ts,
		Location:         "unknown",
		DeviceInfo:       map[string]any{"os": "android"},
	}

	if err := repo.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if got.TransactionID != txn.TransactionID || got.UserID != txn.UserID {
		t.Errorf("identity mismatch: got %+v", got)
	}
	if got.Amount != txn.Amount {
		t.Errorf("expected amount %v, got %v", txn.Amount, got.Amount)
	}
	if got.MerchantCategory != "gambling" || got.Location != "unknown" {
		t.Errorf("attribute mismatch: got %+v", got)
	}
	if got.Timestamp == nil || !got.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, got.Timestamp)
	}
	if got.DeviceInfo["os"] != "android" {
		t.Errorf("expected device info preserved, got %v", got.DeviceInfo)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetTransaction(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveTransactionWithoutTimestamp(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	txn := &domain.TransactionRecord{
		TransactionID: "tx-002",
		UserID:        "user-1",
		Amount:        100,
	}

	if err := repo.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-002")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Timestamp != nil {
		t.Errorf("expected nil timestamp, got %v", got.Timestamp)
	}
}

func TestSaveTransactionDuplicateIsIgnored(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	txn := &domain.TransactionRecord{
		TransactionID: "tx-003",
		UserID:        "user-1",
		Amount:        100,
	}

	if err := repo.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Re-submitting the same ID must not fail; the first record wins.
	txn.Amount = 999
	if err := repo.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("duplicate save failed: %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-003")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Amount != 100 {
		t.Errorf("expected original amount 100, got %v", got.Amount)
	}
}

func TestSaveTransactionInvalidInput(t *testing.T) {
	repo := testRepo(t)

	err := repo.SaveTransaction(context.Background(), &domain.TransactionRecord{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSignalConfigRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	sig := &domain.SignalConfig{
		ID:         "sig-001",
		Name:       "High value transfer",
		Expression: `tx_type == "transfer" && amount > 1000.0`,
		Weight:     0.25,
		Reason:     "High value transfer",
		Enabled:    true,
	}

	if err := repo.SaveSignalConfig(ctx, sig); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	signals, err := repo.ListSignalConfigs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	got := signals[0]
	if got.ID != sig.ID || got.Expression != sig.Expression || got.Weight != sig.Weight {
		t.Errorf("signal mismatch: got %+v", got)
	}
	if !got.Enabled {
		t.Error("expected signal enabled")
	}
}

func TestSignalConfigUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	sig := &domain.SignalConfig{
		ID:         "sig-002",
		Name:       "Original",
		Expression: "true",
		Weight:     0.1,
		Enabled:    true,
	}
	if err := repo.SaveSignalConfig(ctx, sig); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	sig.Name = "Updated"
	sig.Weight = 0.2
	if err := repo.SaveSignalConfig(ctx, sig); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	signals, err := repo.ListSignalConfigs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal after upsert, got %d", len(signals))
	}
	if signals[0].Name != "Updated" || signals[0].Weight != 0.2 {
		t.Errorf("expected updated signal, got %+v", signals[0])
	}
}

func TestListSignalConfigsSkipsDisabled(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	repo.SaveSignalConfig(ctx, &domain.SignalConfig{
		ID: "enabled", Name: "A", Expression: "true", Enabled: true,
	})
	repo.SaveSignalConfig(ctx, &domain.SignalConfig{
		ID: "disabled", Name: "B", Expression: "true", Enabled: false,
	})

	signals, err := repo.ListSignalConfigs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(signals) != 1 || signals[0].ID != "enabled" {
		t.Errorf("expected only enabled signals, got %+v", signals)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(domain.RepositoryConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebindPostgres(t *testing.T) {
	r := &SQLRepository{driver: "postgres"}
	got := r.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	r.driver = "sqlite"
	passthrough := "SELECT * FROM t WHERE a = ?"
	if got := r.rebind(passthrough); got != passthrough {
		t.Errorf("expected sqlite query unchanged, got %q", got)
	}
}
