package verdict

import (
	"fmt"
	"strings"
)

const (
	// ReportHeader opens every report.
	ReportHeader = "## 🚨 AI Security Scan Report\n\n"
	// FailSentence closes a report with at least one HIGH finding.
	FailSentence = "\n❌ Workflow failed due to HIGH severity issues."
	// PassSentence closes a report without HIGH findings.
	PassSentence = "\n✅ No HIGH severity issues found."
)

// Verdict is the outcome of classifying one file.
type Verdict struct {
	Path     string
	Severity Severity
	Raw      string
	// SuppressedBy is the ignore pattern that suppressed this finding, if any.
	SuppressedBy string
}

// Suppressed reports whether an ignore rule suppressed the finding.
func (v Verdict) Suppressed() bool {
	return v.SuppressedBy != ""
}

// Summary counts outcomes over one scan.
type Summary struct {
	Files      int
	Skipped    int
	Safe       int
	Low        int
	High       int
	Suppressed int
}

// Classified is the number of files sent to the classifier.
func (s Summary) Classified() int {
	return s.Safe + s.Low + s.High + s.Suppressed
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files: %d skipped (unchanged), %d safe, %d low, %d high, %d suppressed",
		s.Files, s.Skipped, s.Safe, s.Low, s.High, s.Suppressed)
}

// Aggregator accumulates findings in recording order. It is confined to the
// goroutine running the scan.
type Aggregator struct {
	report     strings.Builder
	suppressed []Verdict
	anyHigh    bool
	finalized  bool
	summary    Summary
}

// NewAggregator returns an aggregator whose report starts with ReportHeader.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.report.WriteString(ReportHeader)
	return a
}

// Skip records a file that was not classified because it is unchanged.
func (a *Aggregator) Skip(string) {
	a.summary.Files++
	a.summary.Skipped++
}

// Record parses raw, appends a report block for LOW and HIGH findings and
// folds the result into the overall verdict.
func (a *Aggregator) Record(path, raw string) Verdict {
	v := Verdict{Path: path, Severity: ParseSeverity(raw), Raw: raw}
	a.summary.Files++

	switch v.Severity {
	case SeverityHigh:
		a.anyHigh = true
		a.summary.High++
		a.writeBlock("❌", v)
	case SeverityLow:
		a.summary.Low++
		a.writeBlock("⚠️", v)
	default:
		a.summary.Safe++
	}

	return v
}

// Suppress records a LOW or HIGH finding that matched an ignore rule. It is
// listed separately and does not affect the overall verdict.
func (a *Aggregator) Suppress(path, raw, pattern string) Verdict {
	v := Verdict{Path: path, Severity: ParseSeverity(raw), Raw: raw, SuppressedBy: pattern}
	a.summary.Files++
	a.summary.Suppressed++
	a.suppressed = append(a.suppressed, v)
	return v
}

func (a *Aggregator) writeBlock(icon string, v Verdict) {
	fmt.Fprintf(&a.report, "### %s %s in %s\n```\n%s\n```\n\n", icon, v.Severity, v.Path, v.Raw)
}

// AnyHigh reports whether any recorded file reached HIGH.
func (a *Aggregator) AnyHigh() bool {
	return a.anyHigh
}

// Summary returns the counters so far.
func (a *Aggregator) Summary() Summary {
	return a.summary
}

// Finalize appends the suppressed section and the closing sentence exactly
// once, and returns the full report. Later calls return the same report.
func (a *Aggregator) Finalize() string {
	if a.finalized {
		return a.report.String()
	}
	a.finalized = true

	if len(a.suppressed) > 0 {
		a.report.WriteString("#### Suppressed by ignore rules\n\n")
		for _, v := range a.suppressed {
			fmt.Fprintf(&a.report, "- %s in %s (matched %q)\n", v.Severity, v.Path, v.SuppressedBy)
		}
		a.report.WriteString("\n")
	}

	if a.anyHigh {
		a.report.WriteString(FailSentence)
	} else {
		a.report.WriteString(PassSentence)
	}

	return a.report.String()
}
