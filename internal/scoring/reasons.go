package scoring

import "github.com/openrisk-labs/kestrel/internal/domain"

// Reason strings returned by Explain. Not every scoring signal has a
// dedicated reason: high-risk category and unknown-location triggers are
// intentionally folded into the composite "multiple risk factors" reason.
const (
	ReasonHighAmount      = "High transaction amount"
	ReasonUnusualTime     = "Unusual transaction time"
	ReasonMultipleFactors = "Multiple risk factors detected"
	ReasonNormal          = "Transaction appears normal"
)

// Explain produces the ordered, de-duplicated list of human-readable reasons
// for a score. The list is never empty: when no individual reason qualifies
// it contains the single sentinel ReasonNormal.
func Explain(txn *domain.TransactionRecord, score float64, cfg domain.ThresholdConfig) []string {
	var reasons []string

	if txn.Amount > cfg.SuspiciousAmount {
		reasons = append(reasons, ReasonHighAmount)
	}

	if hour, ok := txn.Hour(); ok && (hour < offHoursBefore || hour > offHoursAfter) {
		reasons = append(reasons, ReasonUnusualTime)
	}

	if score > cfg.Tiers.High {
		reasons = append(reasons, ReasonMultipleFactors)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonNormal)
	}

	return reasons
}

// MergeReasons appends extra reason strings to a base list, preserving order
// and dropping duplicates.
func MergeReasons(base []string, extra []string) []string {
	if len(extra) == 0 {
		return base
	}

	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, lists := range [][]string{base, extra} {
		for _, r := range lists {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}
