package scoring

import "github.com/openrisk-labs/kestrel/internal/domain"

// Recommend returns the ordered action recommendations for a risk tier.
// Pure lookup; a fresh slice is returned on every call so callers can hold
// the result without aliasing shared state.
func Recommend(tier domain.RiskTier) []string {
	switch tier {
	case domain.TierCritical:
		return []string{
			"Block transaction immediately",
			"Contact customer via secure channel",
			"Review recent account activity",
		}
	case domain.TierHigh:
		return []string{
			"Require additional authentication",
			"Review transaction details manually",
			"Monitor future transactions closely",
		}
	case domain.TierMedium:
		return []string{
			"Consider additional verification",
			"Log transaction for review",
		}
	default:
		return []string{"Process transaction normally"}
	}
}
