package entity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFraudRingMarshalDetectedAt(t *testing.T) {
	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Timestamped ring", func(t *testing.T) {
		ring := FraudRing{
			RingID:         "RING_001",
			MemberAccounts: []string{"A", "B", "C"},
			PatternType:    PatternCycle,
			RiskScore:      86.43,
			DetectedAt:     &ts,
		}
		data, err := json.Marshal(ring)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		if !strings.Contains(string(data), `"detected_at":"2024-03-15 12:00:00"`) {
			t.Errorf("payload = %s, want flat datetime format", data)
		}
	})

	t.Run("Structural ring", func(t *testing.T) {
		ring := FraudRing{
			RingID:         "SHELL_X",
			MemberAccounts: []string{"X", "Y"},
			PatternType:    PatternShellNetwork,
			RiskScore:      75.0,
		}
		data, err := json.Marshal(ring)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		if !strings.Contains(string(data), `"detected_at":null`) {
			t.Errorf("payload = %s, want null detected_at", data)
		}
	})
}

func TestReportFieldNames(t *testing.T) {
	report := Report{
		ReportID:    "r1",
		GeneratedAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		SuspiciousAccounts: []*SuspiciousAccount{
			{AccountID: "A", SuspicionScore: 85, DetectedPatterns: []string{TagFanIn}, RingID: "SMURF_IN_A"},
		},
		FraudRings: []*FraudRing{},
		Summary: Summary{
			TotalAccountsAnalyzed:     10,
			SuspiciousAccountsFlagged: 1,
			FraudRingsDetected:        0,
			ProcessingTimeSeconds:     0.012,
		},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	for _, field := range []string{
		`"suspicious_accounts"`, `"fraud_rings"`, `"summary"`,
		`"account_id"`, `"suspicion_score"`, `"detected_patterns"`, `"ring_id"`,
		`"total_accounts_analyzed"`, `"suspicious_accounts_flagged"`,
		`"fraud_rings_detected"`, `"processing_time_seconds"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("payload missing field %s", field)
		}
	}
}

func TestTransactionIsValid(t *testing.T) {
	tests := []struct {
		name string
		txn  *Transaction
		want bool
	}{
		{"Valid", &Transaction{SenderID: "A", ReceiverID: "B"}, true},
		{"Self-transaction", &Transaction{SenderID: "A", ReceiverID: "A"}, false},
		{"Missing sender", &Transaction{ReceiverID: "B"}, false},
		{"Missing receiver", &Transaction{SenderID: "A"}, false},
		{"Nil record", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.txn.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
