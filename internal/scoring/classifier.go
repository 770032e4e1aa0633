package scoring

import "github.com/openrisk-labs/kestrel/internal/domain"

// Classify maps a fraud score to a risk tier. Boundaries are evaluated from
// highest to lowest and a score exactly at a boundary belongs to the higher
// tier. Total over [0,1] given a validated configuration.
func Classify(score float64, cfg domain.ThresholdConfig) domain.RiskTier {
	switch {
	case score >= cfg.Tiers.Critical:
		return domain.TierCritical
	case score >= cfg.Tiers.High:
		return domain.TierHigh
	case score >= cfg.Tiers.Medium:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// IsFraud reports whether a score crosses the fraud line, which is the
// MEDIUM tier boundary.
func IsFraud(score float64, cfg domain.ThresholdConfig) bool {
	return score >= cfg.Tiers.Medium
}
