// Package worker provides async scoring of transactions from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/openrisk-labs/kestrel/internal/detector"
	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Worker scores transactions published to the ingestion topic and
// publishes the outcomes back onto the bus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	detector *detector.Detector

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, det *detector.Detector) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		detector: det,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the transaction ingestion topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started",
		"topic", domain.TopicTransactionIngested,
	)

	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processTransaction(ctx, msg)
}

// processTransaction scores an ingested transaction end to end.
func (w *Worker) processTransaction(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var txn domain.TransactionRecord
	if err := json.Unmarshal(msg.Payload, &txn); err != nil {
		slog.Error("failed to parse transaction message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if err := txn.Validate(); err != nil {
		slog.Error("invalid transaction message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing transaction",
		"transaction_id", txn.TransactionID,
		"message_id", msg.ID,
	)

	// 1. Persist the transaction record
	if w.repo != nil {
		if err := w.repo.SaveTransaction(ctx, &txn); err != nil {
			slog.Error("failed to save transaction",
				"transaction_id", txn.TransactionID,
				"error", err,
			)
		}
	}

	// 2. Score
	outcome, err := w.detector.Evaluate(ctx, &txn)
	if err != nil {
		slog.Error("scoring failed",
			"transaction_id", txn.TransactionID,
			"error", err,
		)
		return err
	}

	// 3. Publish the outcome
	outcomePayload, _ := json.Marshal(outcome)
	if err := w.bus.Publish(ctx, domain.TopicOutcome, outcomePayload); err != nil {
		slog.Error("failed to publish outcome",
			"transaction_id", txn.TransactionID,
			"error", err,
		)
	}

	// 4. Alert on elevated tiers
	if outcome.RiskTier == domain.TierHigh || outcome.RiskTier == domain.TierCritical {
		if err := w.bus.Publish(ctx, domain.TopicAlert, outcomePayload); err != nil {
			slog.Error("failed to publish alert",
				"transaction_id", txn.TransactionID,
				"error", err,
			)
		}
	}

	slog.Info("transaction processed",
		"transaction_id", txn.TransactionID,
		"risk_level", outcome.RiskTier,
		"fraud_score", outcome.FraudScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
