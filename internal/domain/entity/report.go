package entity

import (
	"encoding/json"
	"time"
)

// Pattern types carried by a fraud ring.
const (
	PatternCycle        = "cycle"
	PatternFanIn        = "fan_in"
	PatternFanOut       = "fan_out"
	PatternShellNetwork = "shell_network"
)

// Detected-pattern tags attached to suspicious accounts.
const (
	TagCycleLength3 = "cycle_length_3"
	TagHighVelocity = "high_velocity"
	TagFanIn        = "fan_in"
	TagFanOut       = "fan_out"
	TagShellAccount = "shell_account"
)

// DetectedAtLayout is the wire format for ring detection times.
const DetectedAtLayout = "2006-01-02 15:04:05"

// FraudRing is a reported group of accounts sharing one detected pattern.
// DetectedAt is nil for purely structural patterns (shell networks) that
// have no temporal anchor.
type FraudRing struct {
	RingID         string     `json:"ring_id"`
	MemberAccounts []string   `json:"member_accounts"`
	PatternType    string     `json:"pattern_type"`
	RiskScore      float64    `json:"risk_score"`
	DetectedAt     *time.Time `json:"detected_at"`
}

// MarshalJSON renders detected_at as "YYYY-MM-DD HH:MM:SS" or null.
func (r FraudRing) MarshalJSON() ([]byte, error) {
	type alias FraudRing
	var detectedAt *string
	if r.DetectedAt != nil {
		s := r.DetectedAt.Format(DetectedAtLayout)
		detectedAt = &s
	}
	return json.Marshal(struct {
		alias
		DetectedAt *string `json:"detected_at"`
	}{alias(r), detectedAt})
}

// SuspiciousAccount is one flagged account. Before aggregation each engine
// produces its own record; the aggregator merges them into one per account.
type SuspiciousAccount struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

// EngineResult is a single detection engine's contribution before the
// cross-engine merge.
type EngineResult struct {
	SuspiciousAccounts []*SuspiciousAccount
	FraudRings         []*FraudRing
}

// Summary carries the batch-level counters of a report.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64 `json:"processing_time_seconds"`
}

// Report is the merged output of all detection engines for one batch.
type Report struct {
	ReportID           string               `json:"report_id"`
	GeneratedAt        time.Time            `json:"generated_at"`
	SuspiciousAccounts []*SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []*FraudRing         `json:"fraud_rings"`
	Summary            Summary              `json:"summary"`
}
