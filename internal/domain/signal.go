package domain

import "time"

// SignalConfig defines an operator-supplied extension signal: a CEL
// expression over transaction fields that, when true, adds Weight to the
// fraud score and appends Reason to the explanation list.
//
// Signals are loaded once at process start, matching the immutability of the
// threshold configuration. The built-in signals are not expressed this way;
// extension signals only ever add risk, so the score stays monotone.
type SignalConfig struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Weight      float64 `json:"weight"`
	Reason      string  `json:"reason"`
	Enabled     bool    `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
