package model

import "strings"

// Severity is the common ordinal scale for both finding kinds.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities low < medium < high < critical. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Penalty is the score deduction for one finding of this severity.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 35
	case SeverityHigh:
		return 20
	case SeverityMedium:
		return 10
	default:
		return 0
	}
}

// MaxSeverity returns whichever ranks higher; ties keep a.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseFindingSeverity lower-cases s and accepts only low, medium and high,
// defaulting to medium. Oracle-reported severities never reach critical.
func ParseFindingSeverity(s string) Severity {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return v
	default:
		return SeverityMedium
	}
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return 0
	}
}

// MaxConfidence returns whichever ranks higher; ties keep a.
func MaxConfidence(a, b Confidence) Confidence {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseConfidence lower-cases s, defaulting to medium outside low/medium/high.
func ParseConfidence(s string) Confidence {
	switch v := Confidence(strings.ToLower(strings.TrimSpace(s))); v {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return v
	default:
		return ConfidenceMedium
	}
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) Rank() int {
	return Severity(r).Rank()
}
