// Package scoring implements the fraud risk scoring engine: an additive
// heuristic over independent transaction signals, a tier classifier, and the
// explanation and recommendation generators.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

// Built-in signal contributions. Signals are independent: contributions sum
// and the total is clamped to 1.0, so the score is monotone in every input
// dimension and each triggered signal maps to a known weight.
const (
	weightSuspiciousAmount = 0.3
	weightHighAmount       = 0.2
	weightOffHours         = 0.2
	weightHighRiskCategory = 0.4
	weightUnknownLocation  = 0.3
)

// Off-hours window: transactions before 06:00 or after 22:00 local hour.
const (
	offHoursBefore = 6
	offHoursAfter  = 22
)

// Engine scores transactions against an immutable threshold configuration
// plus optional pre-compiled extension signals. Safe for concurrent use;
// all state is read-only after construction.
type Engine struct {
	cfg      domain.ThresholdConfig
	highRisk map[string]struct{}
	signals  []*compiledSignal
}

type compiledSignal struct {
	cfg     *domain.SignalConfig
	program cel.Program
}

// Result is the output of a single scoring pass.
type Result struct {
	// Score is the clamped fraud score in [0,1].
	Score float64

	// SignalReasons are the reason strings of triggered extension signals,
	// in configuration order. Empty when no extension signal fired.
	SignalReasons []string
}

// NewEngine creates a scoring engine. Extension signals are compiled here;
// a malformed expression fails construction rather than surfacing at score
// time. Disabled signals are skipped.
func NewEngine(cfg domain.ThresholdConfig, signals []*domain.SignalConfig) (*Engine, error) {
	env, err := newSignalEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		highRisk: cfg.HighRiskSet(),
	}

	for _, sig := range signals {
		if !sig.Enabled {
			continue
		}
		program, err := compileSignal(env, sig)
		if err != nil {
			return nil, err
		}
		e.signals = append(e.signals, &compiledSignal{cfg: sig, program: program})
	}

	return e, nil
}

// Score computes the fraud score for a transaction. Deterministic, no side
// effects, never mutates the input. The only failure path is an extension
// signal erroring at evaluation time.
func (e *Engine) Score(txn *domain.TransactionRecord) (Result, error) {
	score := 0.0

	if txn.Amount > e.cfg.SuspiciousAmount {
		score += weightSuspiciousAmount
	}
	if txn.Amount > e.cfg.HighAmount {
		score += weightHighAmount
	}
	if hour, ok := txn.Hour(); ok && (hour < offHoursBefore || hour > offHoursAfter) {
		score += weightOffHours
	}
	if _, ok := e.highRisk[strings.ToLower(txn.MerchantCategory)]; ok {
		score += weightHighRiskCategory
	}
	if txn.Location != "" && strings.Contains(strings.ToLower(txn.Location), "unknown") {
		score += weightUnknownLocation
	}

	var signalReasons []string
	if len(e.signals) > 0 {
		activation := signalActivation(txn)
		for _, sig := range e.signals {
			out, _, err := sig.program.Eval(activation)
			if err != nil {
				return Result{}, fmt.Errorf("extension signal %s: %w", sig.cfg.ID, err)
			}
			if triggered, ok := out.(types.Bool); ok && bool(triggered) {
				score += sig.cfg.Weight
				if sig.cfg.Reason != "" {
					signalReasons = append(signalReasons, sig.cfg.Reason)
				}
			}
		}
	}

	return Result{
		Score:         math.Min(score, 1.0),
		SignalReasons: signalReasons,
	}, nil
}

// Thresholds returns the engine's threshold configuration.
func (e *Engine) Thresholds() domain.ThresholdConfig {
	return e.cfg
}

// SignalCount returns the number of compiled extension signals.
func (e *Engine) SignalCount() int {
	return len(e.signals)
}

// ValidateSignal compiles a signal configuration without constructing an
// engine, so the API can reject bad expressions before persisting them.
func ValidateSignal(sig *domain.SignalConfig) error {
	env, err := newSignalEnv()
	if err != nil {
		return err
	}
	_, err = compileSignal(env, sig)
	return err
}

// newSignalEnv creates the CEL environment extension signals evaluate in.
func newSignalEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("merchant_category", cel.StringType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("user_id", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("has_timestamp", cel.BoolType),
		cel.Variable("device", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func compileSignal(env *cel.Env, sig *domain.SignalConfig) (cel.Program, error) {
	if sig.Weight < 0 {
		return nil, fmt.Errorf("signal %s: weight must be non-negative, got %.3f", sig.ID, sig.Weight)
	}

	ast, issues := env.Compile(sig.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile signal %s: %w", sig.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("signal %s: expression must return bool, got %s", sig.ID, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for signal %s: %w", sig.ID, err)
	}

	return program, nil
}

func signalActivation(txn *domain.TransactionRecord) map[string]any {
	hour := int64(0)
	hasTimestamp := false
	if h, ok := txn.Hour(); ok {
		hour = int64(h)
		hasTimestamp = true
	}

	device := txn.DeviceInfo
	if device == nil {
		device = map[string]any{}
	}

	return map[string]any{
		"amount":            txn.Amount,
		"merchant_category": txn.MerchantCategory,
		"tx_type":           txn.TransactionType,
		"location":          txn.Location,
		"user_id":           txn.UserID,
		"hour":              hour,
		"has_timestamp":     hasTimestamp,
		"device":            device,
	}
}
