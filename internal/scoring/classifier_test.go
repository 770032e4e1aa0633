package scoring

import (
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestClassifyTiers(t *testing.T) {
	cfg := domain.DefaultThresholds()

	cases := []struct {
		score float64
		want  domain.RiskTier
	}{
		{0.0, domain.TierLow},
		{0.5, domain.TierLow},
		{0.59, domain.TierLow},
		{0.6, domain.TierMedium}, // boundary scores land in the higher tier
		{0.79, domain.TierMedium},
		{0.8, domain.TierHigh},
		{0.89, domain.TierHigh},
		{0.9, domain.TierCritical},
		{1.0, domain.TierCritical},
	}

	for _, tc := range cases {
		if got := Classify(tc.score, cfg); got != tc.want {
			t.Errorf("score %v: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestIsFraudUsesMediumBound(t *testing.T) {
	cfg := domain.DefaultThresholds()

	cases := []struct {
		score float64
		want  bool
	}{
		{0.0, false},
		{0.59, false},
		{0.6, true}, // inclusive at the medium bound
		{1.0, true},
	}

	for _, tc := range cases {
		if got := IsFraud(tc.score, cfg); got != tc.want {
			t.Errorf("score %v: expected is_fraud=%v, got %v", tc.score, tc.want, got)
		}
	}
}

func TestClassifyCustomBounds(t *testing.T) {
	cfg := domain.DefaultThresholds()
	cfg.Tiers = domain.TierBounds{Low: 0.1, Medium: 0.4, High: 0.7, Critical: 0.95}

	if got := Classify(0.5, cfg); got != domain.TierMedium {
		t.Errorf("expected MEDIUM with custom bounds, got %s", got)
	}
	if got := Classify(0.7, cfg); got != domain.TierHigh {
		t.Errorf("expected HIGH with custom bounds, got %s", got)
	}
	if got := Classify(0.96, cfg); got != domain.TierCritical {
		t.Errorf("expected CRITICAL with custom bounds, got %s", got)
	}
}

func TestTierRankOrdering(t *testing.T) {
	tiers := []domain.RiskTier{domain.TierLow, domain.TierMedium, domain.TierHigh, domain.TierCritical}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Rank() <= tiers[i-1].Rank() {
			t.Errorf("expected %s to rank above %s", tiers[i], tiers[i-1])
		}
	}
}
