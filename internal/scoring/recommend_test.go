package scoring

import (
	"reflect"
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestRecommendPerTier(t *testing.T) {
	cases := []struct {
		tier domain.RiskTier
		want []string
	}{
		{domain.TierCritical, []string{
			"Block transaction immediately",
			"Contact customer via secure channel",
			"Review recent account activity",
		}},
		{domain.TierHigh, []string{
			"Require additional authentication",
			"Review transaction details manually",
			"Monitor future transactions closely",
		}},
		{domain.TierMedium, []string{
			"Consider additional verification",
			"Log transaction for review",
		}},
		{domain.TierLow, []string{"Process transaction normally"}},
	}

	for _, tc := range cases {
		got := Recommend(tc.tier)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("tier %s: expected %v, got %v", tc.tier, tc.want, got)
		}
	}
}

func TestRecommendReturnsFreshSlice(t *testing.T) {
	first := Recommend(domain.TierCritical)
	first[0] = "mutated"

	second := Recommend(domain.TierCritical)
	if second[0] != "Block transaction immediately" {
		t.Error("recommendation table was aliased by a previous caller")
	}
}

func TestRecommendNeverEmpty(t *testing.T) {
	for _, tier := range []domain.RiskTier{domain.TierLow, domain.TierMedium, domain.TierHigh, domain.TierCritical} {
		if len(Recommend(tier)) == 0 {
			t.Errorf("tier %s: recommendations must not be empty", tier)
		}
	}
}
