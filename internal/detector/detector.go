// Package detector orchestrates single and batch transaction scoring.
// It composes the scoring engine, classifier, and explanation/recommendation
// generators, and attaches a correlation identifier and elapsed-time
// measurement to every operation.
package detector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/scoring"
)

// Detector is the entry point external collaborators call to score
// transactions. Stateless beyond its read-only engine; safe for
// concurrent use.
type Detector struct {
	engine     *scoring.Engine
	cfg        domain.ThresholdConfig
	maxWorkers int
}

// New creates a detector. maxWorkers bounds batch-item parallelism.
func New(engine *scoring.Engine, maxWorkers int) *Detector {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	return &Detector{
		engine:     engine,
		cfg:        engine.Thresholds(),
		maxWorkers: maxWorkers,
	}
}

// Evaluate scores a single transaction and returns the full outcome.
// A sub-component failure is returned as a *domain.ScoringError, never
// swallowed. The input record is not mutated.
func (d *Detector) Evaluate(ctx context.Context, txn *domain.TransactionRecord) (*domain.ScoringOutcome, error) {
	start := time.Now()
	correlationID := uuid.New().String()

	result, err := d.engine.Score(txn)
	if err != nil {
		return nil, &domain.ScoringError{TransactionID: txn.TransactionID, Err: err}
	}

	tier := scoring.Classify(result.Score, d.cfg)
	reasons := scoring.MergeReasons(
		scoring.Explain(txn, result.Score, d.cfg),
		result.SignalReasons,
	)

	return &domain.ScoringOutcome{
		TransactionID:    txn.TransactionID,
		FraudScore:       result.Score,
		IsFraud:          scoring.IsFraud(result.Score, d.cfg),
		RiskTier:         tier,
		Reasons:          reasons,
		Recommendations:  scoring.Recommend(tier),
		CorrelationID:    correlationID,
		ProcessingTimeMs: millisSince(start),
	}, nil
}

// EvaluateBatch scores an ordered sequence of transactions. A batch larger
// than the configured ceiling is rejected wholesale with
// *domain.BatchTooLargeError before any item is evaluated.
//
// Items are independent, so they are evaluated in parallel under a bounded
// semaphore; results are written by input index so the emitted sequence
// always preserves input order. A per-item failure is attached to that
// item's slot, keeping len(results) == len(txns).
func (d *Detector) EvaluateBatch(ctx context.Context, txns []*domain.TransactionRecord) (*domain.BatchOutcome, error) {
	if len(txns) > d.cfg.BatchLimit {
		return nil, &domain.BatchTooLargeError{Size: len(txns), Limit: d.cfg.BatchLimit}
	}

	results := make([]domain.BatchItem, len(txns))
	sem := make(chan struct{}, d.maxWorkers)
	var wg sync.WaitGroup

	for i, txn := range txns {
		wg.Add(1)
		go func(idx int, t *domain.TransactionRecord) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			item := domain.BatchItem{TransactionID: t.TransactionID}
			outcome, err := d.Evaluate(ctx, t)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Outcome = outcome
			}
			results[idx] = item
		}(i, txn)
	}

	wg.Wait()

	return &domain.BatchOutcome{
		Results:       results,
		CorrelationID: uuid.New().String(),
	}, nil
}

// millisSince returns elapsed whole milliseconds, clamped non-negative in
// case of clock oddities.
func millisSince(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
