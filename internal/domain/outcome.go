package domain

// RiskTier is one of four ordered severity classifications derived from the
// fraud score. Ordering is LOW < MEDIUM < HIGH < CRITICAL.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierMedium   RiskTier = "MEDIUM"
	TierHigh     RiskTier = "HIGH"
	TierCritical RiskTier = "CRITICAL"
)

// Rank returns the position of the tier in the severity ordering,
// starting at 0 for LOW. Unknown tiers rank below LOW.
func (t RiskTier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	case TierCritical:
		return 3
	default:
		return -1
	}
}

// ScoringOutcome is the result of scoring a single transaction.
// Created per call, never mutated after construction.
type ScoringOutcome struct {
	TransactionID    string   `json:"transaction_id"`
	FraudScore       float64  `json:"fraud_score"`
	IsFraud          bool     `json:"is_fraud"`
	RiskTier         RiskTier `json:"risk_level"`
	Reasons          []string `json:"reasons"`
	Recommendations  []string `json:"recommendations"`
	CorrelationID    string   `json:"correlation_id"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// BatchItem is one slot of a batch result, aligned 1:1 with the input
// sequence. Exactly one of Outcome or Error is set: a per-item scoring
// failure is attached here rather than dropping the entry.
type BatchItem struct {
	TransactionID string          `json:"transaction_id"`
	Outcome       *ScoringOutcome `json:"outcome,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// BatchOutcome is the result of scoring an accepted batch.
// len(Results) always equals the input length and preserves input order.
type BatchOutcome struct {
	Results       []BatchItem `json:"results"`
	CorrelationID string      `json:"correlation_id"`
}
