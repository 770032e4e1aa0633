package scoring

import (
	"reflect"
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestExplainNormalTransaction(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID: "tx-001",
		UserID:        "user-1",
		Amount:        100,
		Timestamp:     at(14),
	}

	reasons := Explain(txn, 0.0, cfg)
	if !reflect.DeepEqual(reasons, []string{ReasonNormal}) {
		t.Errorf("expected sentinel reason, got %v", reasons)
	}
}

func TestExplainHighAmount(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID: "tx-002",
		UserID:        "user-1",
		Amount:        15000,
		Timestamp:     at(14),
	}

	reasons := Explain(txn, 0.5, cfg)
	if !reflect.DeepEqual(reasons, []string{ReasonHighAmount}) {
		t.Errorf("expected high amount reason, got %v", reasons)
	}
}

func TestExplainUnusualTime(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID: "tx-003",
		UserID:        "user-1",
		Amount:        100,
		Timestamp:     at(3),
	}

	reasons := Explain(txn, 0.2, cfg)
	if !reflect.DeepEqual(reasons, []string{ReasonUnusualTime}) {
		t.Errorf("expected unusual time reason, got %v", reasons)
	}
}

// Only the high-amount and off-hours signals have dedicated reasons. A
// high-risk category or unknown location surfaces solely through the
// composite reason once the score crosses the HIGH boundary.
func TestExplainCategoryHasNoDedicatedReason(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID:    "tx-004",
		UserID:           "user-1",
		Amount:           100,
		MerchantCategory: "gambling",
		Timestamp:        at(14),
	}

	reasons := Explain(txn, 0.4, cfg)
	if !reflect.DeepEqual(reasons, []string{ReasonNormal}) {
		t.Errorf("expected sentinel reason for category-only score, got %v", reasons)
	}
}

func TestExplainMultipleFactorsIsStrict(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID:    "tx-005",
		UserID:           "user-1",
		Amount:           15000,
		MerchantCategory: "gambling",
		Timestamp:        at(3),
		Location:         "unknown",
	}

	// Exactly at the HIGH boundary the composite reason is not appended.
	reasons := Explain(txn, cfg.Tiers.High, cfg)
	want := []string{ReasonHighAmount, ReasonUnusualTime}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("at boundary: expected %v, got %v", want, reasons)
	}

	// Above the boundary it is.
	reasons = Explain(txn, 1.0, cfg)
	want = []string{ReasonHighAmount, ReasonUnusualTime, ReasonMultipleFactors}
	if !reflect.DeepEqual(reasons, want) {
		t.Errorf("above boundary: expected %v, got %v", want, reasons)
	}
}

func TestExplainNeverEmpty(t *testing.T) {
	cfg := domain.DefaultThresholds()
	txn := &domain.TransactionRecord{
		TransactionID: "tx-006",
		UserID:        "user-1",
		Amount:        0,
	}

	if reasons := Explain(txn, 0.0, cfg); len(reasons) == 0 {
		t.Error("reasons must never be empty")
	}
}

func TestMergeReasonsDeduplicates(t *testing.T) {
	base := []string{"a", "b"}
	extra := []string{"b", "c", "a", "c"}

	got := MergeReasons(base, extra)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMergeReasonsNoExtra(t *testing.T) {
	base := []string{"a"}
	if got := MergeReasons(base, nil); !reflect.DeepEqual(got, base) {
		t.Errorf("expected base unchanged, got %v", got)
	}
}
