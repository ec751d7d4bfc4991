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

// Account-flagging policy for the circular engine. The risk threshold is
// zero: any account sitting on a scored cycle is reported.
const (
	highRiskThreshold  = 0.0
	highRiskCycleCount = 3
	highVelocityScore  = 85.0
)

// CircularRoutingDetector finds closed payment loops: money leaving an
// account and returning to it through three to five hops.
type CircularRoutingDetector struct {
	cfg    *config.DetectionConfig
	logger *logger.Logger
}

// NewCircularRoutingDetector creates the circular-routing engine.
func NewCircularRoutingDetector(cfg *config.DetectionConfig, log *logger.Logger) *CircularRoutingDetector {
	return &CircularRoutingDetector{
		cfg:    cfg,
		logger: log.WithComponent("circular-detector"),
	}
}

// Name identifies the engine.
func (d *CircularRoutingDetector) Name() string {
	return "circular-routing"
}

// Detect builds the aggregate graph, prunes hubs and leaves, enumerates
// bounded simple cycles and scores each one.
func (d *CircularRoutingDetector) Detect(ctx context.Context, transactions []*entity.Transaction) (*entity.EngineResult, error) {
	graph := buildTransactionGraph(transactions)
	pruned := pruneForCycles(graph, d.cfg.HubDegreeLimit)
	cycles := enumerateCycles(pruned)

	d.logger.Debug("Cycle enumeration finished",
		zap.Int("accounts", graph.nodeCount()),
		zap.Int("accounts_after_pruning", pruned.nodeCount()),
		zap.Int("cycles", len(cycles)))

	// The occurrence map is built from all cycles found this run so repeat
	// rings raise each other's frequency score.
	occurrences := make(map[string]int, len(cycles))
	for _, cycle := range cycles {
		occurrences[cycleKey(cycle)]++
	}

	scorer := &crsScorer{graph: graph, maxDuration: d.cfg.MaxCycleDuration}

	type accountHit struct {
		score       float64
		ringID      string
		cycleLength int
	}
	hits := make(map[string][]accountHit)
	var hitOrder []string

	result := &entity.EngineResult{}
	for idx, cycle := range cycles {
		score := scorer.compute(cycle, occurrences)
		ringID := fmt.Sprintf("RING_%03d", idx+1)

		result.FraudRings = append(result.FraudRings, &entity.FraudRing{
			RingID:         ringID,
			MemberAccounts: cycle,
			PatternType:    entity.PatternCycle,
			RiskScore:      score,
			DetectedAt:     cycleCompletionTime(graph, cycle),
		})

		for _, account := range cycle {
			if _, known := hits[account]; !known {
				hitOrder = append(hitOrder, account)
			}
			hits[account] = append(hits[account], accountHit{score: score, ringID: ringID, cycleLength: len(cycle)})
		}
	}

	for _, account := range hitOrder {
		entries := hits[account]

		maxScore := 0.0
		highRisk := 0
		for _, e := range entries {
			if e.score > maxScore {
				maxScore = e.score
			}
			if e.score > highRiskThreshold {
				highRisk++
			}
		}
		if maxScore <= highRiskThreshold && highRisk <= highRiskCycleCount {
			continue
		}

		tags := make(map[string]struct{})
		for _, e := range entries {
			if e.cycleLength == minCycleLength {
				tags[entity.TagCycleLength3] = struct{}{}
			}
			if e.score > highVelocityScore {
				tags[entity.TagHighVelocity] = struct{}{}
			}
		}

		result.SuspiciousAccounts = append(result.SuspiciousAccounts, &entity.SuspiciousAccount{
			AccountID:        account,
			SuspicionScore:   round2(maxScore),
			DetectedPatterns: sortedTags(tags),
			RingID:           entries[0].ringID,
		})
	}

	d.logger.Info("Circular-routing detection finished",
		zap.Int("fraud_rings", len(result.FraudRings)),
		zap.Int("suspicious_accounts", len(result.SuspiciousAccounts)))
	return result, nil
}

// cycleCompletionTime is the latest transaction timestamp among the cycle's
// edges: the moment the loop closes. Nil when no edge carries a timestamp.
func cycleCompletionTime(g *txnGraph, cycle []string) *time.Time {
	var latest *time.Time
	for _, e := range cycleEdges(cycle) {
		for _, meta := range g.edgeMetadata(e[0], e[1]) {
			if meta.Timestamp == nil {
				continue
			}
			if latest == nil || meta.Timestamp.After(*latest) {
				ts := *meta.Timestamp
				latest = &ts
			}
		}
	}
	return latest
}

func sortedTags(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
