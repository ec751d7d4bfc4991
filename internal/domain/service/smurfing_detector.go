package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Smurfing is a binary threshold pattern, not a graded one: accounts and
// rings score fixed constants.
const (
	fanSuspicionScore = 80.0
	fanRingRiskScore  = 85.0
)

// SmurfingDetector detects aggregation bursts: many distinct counterparties
// funneling into one account (fan-in) or one account dispersing to many
// (fan-out) within a rolling time window.
type SmurfingDetector struct {
	cfg    *config.DetectionConfig
	logger *logger.Logger
}

// NewSmurfingDetector creates the fan-in/fan-out engine.
func NewSmurfingDetector(cfg *config.DetectionConfig, log *logger.Logger) *SmurfingDetector {
	return &SmurfingDetector{
		cfg:    cfg,
		logger: log.WithComponent("smurfing-detector"),
	}
}

// Name identifies the engine.
func (d *SmurfingDetector) Name() string {
	return "smurfing"
}

// fanTxn is one timestamped transaction seen from the flagged account's
// side. Records without a parseable timestamp never enter a window.
type fanTxn struct {
	counterparty string
	ts           time.Time
	amount       float64
}

// Detect groups transactions by receiver (fan-in) and sender (fan-out) and
// slides a 72-hour window over each account's chronology. An account is
// flagged at most once, on the first window that reaches the threshold;
// later, possibly larger, windows are not re-reported. This flag-once
// behavior is a documented policy of the detector.
func (d *SmurfingDetector) Detect(ctx context.Context, transactions []*entity.Transaction) (*entity.EngineResult, error) {
	fanIn := make(map[string][]fanTxn)
	fanOut := make(map[string][]fanTxn)
	var inOrder, outOrder []string

	for _, txn := range transactions {
		if !txn.IsValid() {
			continue
		}
		ts := ParseTimestamp(txn.Timestamp)
		if ts == nil {
			continue
		}
		if _, known := fanIn[txn.ReceiverID]; !known {
			inOrder = append(inOrder, txn.ReceiverID)
		}
		fanIn[txn.ReceiverID] = append(fanIn[txn.ReceiverID], fanTxn{counterparty: txn.SenderID, ts: *ts, amount: txn.Amount})

		if _, known := fanOut[txn.SenderID]; !known {
			outOrder = append(outOrder, txn.SenderID)
		}
		fanOut[txn.SenderID] = append(fanOut[txn.SenderID], fanTxn{counterparty: txn.ReceiverID, ts: *ts, amount: txn.Amount})
	}

	result := &entity.EngineResult{}

	for _, account := range inOrder {
		members, closedAt, found := d.scanForBurst(fanIn[account], d.cfg.FanInThreshold)
		if !found {
			continue
		}
		ringID := fmt.Sprintf("SMURF_IN_%s", account)
		detectedAt := closedAt
		result.SuspiciousAccounts = append(result.SuspiciousAccounts, &entity.SuspiciousAccount{
			AccountID:        account,
			SuspicionScore:   fanSuspicionScore,
			DetectedPatterns: []string{entity.TagFanIn},
			RingID:           ringID,
		})
		result.FraudRings = append(result.FraudRings, &entity.FraudRing{
			RingID:         ringID,
			MemberAccounts: append(members, account),
			PatternType:    entity.PatternFanIn,
			RiskScore:      fanRingRiskScore,
			DetectedAt:     &detectedAt,
		})
	}

	for _, account := range outOrder {
		members, closedAt, found := d.scanForBurst(fanOut[account], d.cfg.FanOutThreshold)
		if !found {
			continue
		}
		ringID := fmt.Sprintf("SMURF_OUT_%s", account)
		detectedAt := closedAt
		result.SuspiciousAccounts = append(result.SuspiciousAccounts, &entity.SuspiciousAccount{
			AccountID:        account,
			SuspicionScore:   fanSuspicionScore,
			DetectedPatterns: []string{entity.TagFanOut},
			RingID:           ringID,
		})
		result.FraudRings = append(result.FraudRings, &entity.FraudRing{
			RingID:         ringID,
			MemberAccounts: append([]string{account}, members...),
			PatternType:    entity.PatternFanOut,
			RiskScore:      fanRingRiskScore,
			DetectedAt:     &detectedAt,
		})
	}

	d.logger.Info("Smurfing detection finished",
		zap.Int("fraud_rings", len(result.FraudRings)),
		zap.Int("suspicious_accounts", len(result.SuspiciousAccounts)))
	return result, nil
}

// scanForBurst slides the window over one account's transactions, sorted
// chronologically. The left index advances whenever the gap between the
// current transaction and the leftmost windowed one exceeds the window
// width. It returns the sorted distinct counterparties of the first window
// whose count reaches the threshold, along with the window-closing
// transaction's timestamp.
func (d *SmurfingDetector) scanForBurst(txns []fanTxn, threshold int) ([]string, time.Time, bool) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].ts.Before(txns[j].ts)
	})

	left := 0
	for i := range txns {
		current := txns[i].ts
		for left < i && current.Sub(txns[left].ts) > d.cfg.FanTimeWindow {
			left++
		}

		distinct := make(map[string]struct{})
		for _, t := range txns[left : i+1] {
			distinct[t.counterparty] = struct{}{}
		}
		if len(distinct) >= threshold {
			members := make([]string, 0, len(distinct))
			for id := range distinct {
				members = append(members, id)
			}
			sort.Strings(members)
			return members, current, true
		}
	}
	return nil, time.Time{}, false
}
