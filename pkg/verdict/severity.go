// Package verdict turns raw classifier output into severities and
// accumulates per-file findings into the scan report and overall verdict.
package verdict

import "strings"

// Severity is the ordered classification outcome.
type Severity int

const (
	// SeveritySafe is also the fail-open outcome for unparseable output.
	SeveritySafe Severity = iota
	SeverityLow
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "HIGH"
	case SeverityLow:
		return "LOW"
	default:
		return "SAFE"
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// ParseSeverity derives a severity from free-text classifier output.
//
// The search is case-insensitive and substring based: "HIGH" is looked for
// first, then "LOW", so text mentioning both escalates to HIGH. Output
// containing neither token is SAFE. This fail-open default is an accepted
// risk: a confused classifier passes content silently.
func ParseSeverity(raw string) Severity {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "HIGH"):
		return SeverityHigh
	case strings.Contains(upper, "LOW"):
		return SeverityLow
	default:
		return SeveritySafe
	}
}
