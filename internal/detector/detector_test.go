package detector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/scoring"
)

func testDetector(t *testing.T, signals ...*domain.SignalConfig) *Detector {
	t.Helper()
	engine, err := scoring.NewEngine(domain.DefaultThresholds(), signals)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return New(engine, 4)
}

func at(hour int) *time.Time {
	ts := time.Date(2025, 6, 15, hour, 30, 0, 0, time.UTC)
	return &ts
}

func TestEvaluateCleanTransaction(t *testing.T) {
	det := testDetector(t)

	txn := &domain.TransactionRecord{
		TransactionID:    "tx-001",
		UserID:           "user-1",
		Amount:           1000,
		MerchantCategory: "retail",
		Timestamp:        at(14),
		Location:         "Istanbul",
	}

	outcome, err := det.Evaluate(context.Background(), txn)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if outcome.TransactionID != "tx-001" {
		t.Errorf("expected transaction id tx-001, got %s", outcome.TransactionID)
	}
	if outcome.FraudScore != 0.0 {
		t.Errorf("expected score 0.0, got %v", outcome.FraudScore)
	}
	if outcome.RiskTier != domain.TierLow {
		t.Errorf("expected tier LOW, got %s", outcome.RiskTier)
	}
	if outcome.IsFraud {
		t.Error("expected is_fraud=false")
	}
	if len(outcome.Reasons) != 1 || outcome.Reasons[0] != scoring.ReasonNormal {
		t.Errorf("expected normal sentinel reason, got %v", outcome.Reasons)
	}
	if len(outcome.Recommendations) != 1 || outcome.Recommendations[0] != "Process transaction normally" {
		t.Errorf("expected normal recommendation, got %v", outcome.Recommendations)
	}
	if outcome.CorrelationID == "" {
		t.Error("expected a correlation id")
	}
	if outcome.ProcessingTimeMs < 0 {
		t.Errorf("processing time must be non-negative, got %d", outcome.ProcessingTimeMs)
	}
}

func TestEvaluateCriticalTransaction(t *testing.T) {
	det := testDetector(t)

	txn := &domain.TransactionRecord{
		TransactionID:    "tx-002",
		UserID:           "user-1",
		Amount:           15000,
		MerchantCategory: "gambling",
		Timestamp:        at(2),
		Location:         "unknown",
	}

	outcome, err := det.Evaluate(context.Background(), txn)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if outcome.FraudScore != 1.0 {
		t.Errorf("expected clamped score 1.0, got %v", outcome.FraudScore)
	}
	if outcome.RiskTier != domain.TierCritical {
		t.Errorf("expected tier CRITICAL, got %s", outcome.RiskTier)
	}
	if !outcome.IsFraud {
		t.Error("expected is_fraud=true")
	}
	if outcome.Recommendations[0] != "Block transaction immediately" {
		t.Errorf("expected block recommendation, got %v", outcome.Recommendations)
	}
}

func TestEvaluateCorrelationIDsAreUnique(t *testing.T) {
	det := testDetector(t)

	txn := &domain.TransactionRecord{
		TransactionID: "tx-003",
		UserID:        "user-1",
		Amount:        100,
	}

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		outcome, err := det.Evaluate(context.Background(), txn)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if _, dup := seen[outcome.CorrelationID]; dup {
			t.Fatalf("duplicate correlation id %s", outcome.CorrelationID)
		}
		seen[outcome.CorrelationID] = struct{}{}
	}
}

func TestEvaluateSignalErrorWrapped(t *testing.T) {
	// Integer division by zero fails at eval time; hour is 0 when the
	// record has no timestamp.
	det := testDetector(t, &domain.SignalConfig{
		ID:         "eval-error",
		Name:       "Eval error",
		Expression: `1 / hour > 0`,
		Weight:     0.1,
		Enabled:    true,
	})

	txn := &domain.TransactionRecord{
		TransactionID: "tx-004",
		UserID:        "user-1",
		Amount:        100,
	}

	_, err := det.Evaluate(context.Background(), txn)
	if err == nil {
		t.Fatal("expected a scoring error")
	}

	var scoringErr *domain.ScoringError
	if !errors.As(err, &scoringErr) {
		t.Fatalf("expected *domain.ScoringError, got %T", err)
	}
	if scoringErr.TransactionID != "tx-004" {
		t.Errorf("expected transaction id in error, got %s", scoringErr.TransactionID)
	}
}

func TestEvaluateBatchPreservesOrder(t *testing.T) {
	det := testDetector(t)

	var txns []*domain.TransactionRecord
	for i := 0; i < 25; i++ {
		txns = append(txns, &domain.TransactionRecord{
			TransactionID: fmt.Sprintf("tx-%03d", i),
			UserID:        "user-1",
			Amount:        float64(100 + i),
		})
	}

	batch, err := det.EvaluateBatch(context.Background(), txns)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(batch.Results) != len(txns) {
		t.Fatalf("expected %d results, got %d", len(txns), len(batch.Results))
	}
	if batch.CorrelationID == "" {
		t.Error("expected a batch correlation id")
	}

	for i, item := range batch.Results {
		want := fmt.Sprintf("tx-%03d", i)
		if item.TransactionID != want {
			t.Errorf("slot %d: expected %s, got %s", i, want, item.TransactionID)
		}
		if item.Outcome == nil {
			t.Errorf("slot %d: expected an outcome", i)
		}
	}
}

func TestEvaluateBatchAtCeiling(t *testing.T) {
	det := testDetector(t)
	limit := domain.DefaultThresholds().BatchLimit

	txns := make([]*domain.TransactionRecord, limit)
	for i := range txns {
		txns[i] = &domain.TransactionRecord{
			TransactionID: fmt.Sprintf("tx-%03d", i),
			UserID:        "user-1",
			Amount:        100,
		}
	}

	batch, err := det.EvaluateBatch(context.Background(), txns)
	if err != nil {
		t.Fatalf("batch of exactly %d must be accepted: %v", limit, err)
	}
	if len(batch.Results) != limit {
		t.Errorf("expected %d results, got %d", limit, len(batch.Results))
	}
}

func TestEvaluateBatchOverCeilingRejected(t *testing.T) {
	det := testDetector(t)
	limit := domain.DefaultThresholds().BatchLimit

	txns := make([]*domain.TransactionRecord, limit+1)
	for i := range txns {
		txns[i] = &domain.TransactionRecord{
			TransactionID: fmt.Sprintf("tx-%03d", i),
			UserID:        "user-1",
			Amount:        100,
		}
	}

	_, err := det.EvaluateBatch(context.Background(), txns)
	if err == nil {
		t.Fatal("expected batch rejection")
	}

	var tooLarge *domain.BatchTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected *domain.BatchTooLargeError, got %T", err)
	}
	if tooLarge.Size != limit+1 || tooLarge.Limit != limit {
		t.Errorf("expected size=%d limit=%d, got size=%d limit=%d", limit+1, limit, tooLarge.Size, tooLarge.Limit)
	}
}

func TestEvaluateBatchEmptyIsAccepted(t *testing.T) {
	det := testDetector(t)

	batch, err := det.EvaluateBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch must be accepted: %v", err)
	}
	if len(batch.Results) != 0 {
		t.Errorf("expected 0 results, got %d", len(batch.Results))
	}
}

func TestEvaluateBatchIsolatesItemFailures(t *testing.T) {
	// The signal divides by zero only for the marked transaction type,
	// so exactly one slot fails.
	det := testDetector(t, &domain.SignalConfig{
		ID:         "conditional-error",
		Name:       "Conditional error",
		Expression: `tx_type == "bad" ? 1 / hour > 0 : false`,
		Weight:     0.1,
		Enabled:    true,
	})

	txns := []*domain.TransactionRecord{
		{TransactionID: "tx-ok-1", UserID: "user-1", Amount: 100, TransactionType: "purchase"},
		{TransactionID: "tx-bad", UserID: "user-1", Amount: 100, TransactionType: "bad"},
		{TransactionID: "tx-ok-2", UserID: "user-1", Amount: 100, TransactionType: "purchase"},
	}

	batch, err := det.EvaluateBatch(context.Background(), txns)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if batch.Results[0].Outcome == nil || batch.Results[0].Error != "" {
		t.Errorf("slot 0: expected success, got error %q", batch.Results[0].Error)
	}
	if batch.Results[1].Outcome != nil || batch.Results[1].Error == "" {
		t.Error("slot 1: expected a per-item error")
	}
	if batch.Results[2].Outcome == nil || batch.Results[2].Error != "" {
		t.Errorf("slot 2: expected success, got error %q", batch.Results[2].Error)
	}
}
