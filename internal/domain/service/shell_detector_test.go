package service

import (
	"context"
	"reflect"
	"testing"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/infrastructure/logger"
)

func shellChainBatch() []*entity.Transaction {
	return []*entity.Transaction{
		tx("Source", "Shell1", 9000, "2024-03-01 10:00:00"),
		tx("Shell1", "Shell2", 8900, "2024-03-02 10:00:00"),
		tx("Shell2", "Shell3", 8800, "2024-03-03 10:00:00"),
		tx("Shell3", "Dest", 8700, "2024-03-04 10:00:00"),
	}
}

func TestShellDetectorFindsChain(t *testing.T) {
	detector := NewShellNetworkDetector(detectionConfig(), logger.NewNop())
	result, err := detector.Detect(context.Background(), shellChainBatch())
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}

	if len(result.FraudRings) == 0 {
		t.Fatal("expected at least one shell_network ring")
	}
	ring := result.FraudRings[0]
	if ring.PatternType != entity.PatternShellNetwork {
		t.Errorf("pattern = %s, want shell_network", ring.PatternType)
	}
	if ring.RiskScore != 75.0 {
		t.Errorf("risk = %v, want fixed 75.0", ring.RiskScore)
	}
	if ring.DetectedAt != nil {
		t.Errorf("detected_at = %v, want nil for a structural pattern", ring.DetectedAt)
	}
	if len(ring.MemberAccounts) < 2 {
		t.Errorf("chain %v too short", ring.MemberAccounts)
	}

	shells := map[string]struct{}{"Shell1": {}, "Shell2": {}, "Shell3": {}}
	for _, member := range ring.MemberAccounts {
		if _, ok := shells[member]; !ok {
			t.Errorf("member %s is not a shell candidate", member)
		}
	}

	for _, account := range result.SuspiciousAccounts {
		if account.SuspicionScore != 75.0 {
			t.Errorf("account %s score = %v, want 75.0", account.AccountID, account.SuspicionScore)
		}
		if !reflect.DeepEqual(account.DetectedPatterns, []string{entity.TagShellAccount}) {
			t.Errorf("account %s patterns = %v, want [shell_account]", account.AccountID, account.DetectedPatterns)
		}
		if account.RingID != ring.RingID {
			t.Errorf("account %s ring = %s, want %s", account.AccountID, account.RingID, ring.RingID)
		}
	}
}

func TestShellDetectorDeterministicChoice(t *testing.T) {
	// The start-node choice is an enumeration-order policy: repeated runs
	// must pick the same chain.
	detector := NewShellNetworkDetector(detectionConfig(), logger.NewNop())

	first, err := detector.Detect(context.Background(), shellChainBatch())
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := detector.Detect(context.Background(), shellChainBatch())
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if !reflect.DeepEqual(first.FraudRings, again.FraudRings) {
			t.Fatalf("run %d chose a different chain: %+v vs %+v", i, first.FraudRings[0], again.FraudRings[0])
		}
	}
	// Lexicographically smallest eligible start wins.
	if first.FraudRings[0].MemberAccounts[0] != "Shell1" {
		t.Errorf("chain starts at %s, want Shell1", first.FraudRings[0].MemberAccounts[0])
	}
}

func TestShellDetectorNoCandidates(t *testing.T) {
	// Every account has either one transaction or more than three.
	txns := []*entity.Transaction{
		tx("A", "B", 10, ""),
		tx("A", "B", 10, ""),
		tx("A", "B", 10, ""),
		tx("A", "B", 10, ""),
	}
	detector := NewShellNetworkDetector(detectionConfig(), logger.NewNop())
	result, err := detector.Detect(context.Background(), txns)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(result.FraudRings) != 0 || len(result.SuspiciousAccounts) != 0 {
		t.Error("no shell candidates must mean empty results, not an error")
	}
}

func TestShellDetectorIsolatedShellNotReported(t *testing.T) {
	// Two shells that never touch each other cannot form a chain.
	txns := []*entity.Transaction{
		tx("X", "LoneShell1", 10, ""),
		tx("LoneShell1", "Y", 10, ""),
		tx("P", "LoneShell2", 10, ""),
		tx("LoneShell2", "Q", 10, ""),
	}
	detector := NewShellNetworkDetector(detectionConfig(), logger.NewNop())
	result, err := detector.Detect(context.Background(), txns)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(result.FraudRings) != 0 {
		t.Errorf("rings = %v, want none for singleton shell components", result.FraudRings)
	}
}

func TestShellDetectorChainNeedsEntryAndExit(t *testing.T) {
	// Two connected shells with no inbound edge into the chain's head: money
	// never "enters" the shells.
	txns := []*entity.Transaction{
		tx("ShellA", "ShellB", 10, ""),
		tx("ShellB", "Out", 10, ""),
		tx("ShellA", "Other", 10, ""),
	}
	detector := NewShellNetworkDetector(detectionConfig(), logger.NewNop())
	result, err := detector.Detect(context.Background(), txns)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(result.FraudRings) != 0 {
		t.Errorf("rings = %v, want none without an entry point", result.FraudRings)
	}
}
