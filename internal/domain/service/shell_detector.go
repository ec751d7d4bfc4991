package service

import (
	"context"
	"fmt"
	"sort"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Shell networks are structural: no temporal anchor, fixed scores.
const (
	shellSuspicionScore = 75.0
	shellRingRiskScore  = 75.0
)

// ShellNetworkDetector identifies chains of low-activity intermediary
// accounts bridging a source to a destination: money enters the shells and
// exits them.
type ShellNetworkDetector struct {
	cfg    *config.DetectionConfig
	logger *logger.Logger
}

// NewShellNetworkDetector creates the shell-chain engine.
func NewShellNetworkDetector(cfg *config.DetectionConfig, log *logger.Logger) *ShellNetworkDetector {
	return &ShellNetworkDetector{
		cfg:    cfg,
		logger: log.WithComponent("shell-detector"),
	}
}

// Name identifies the engine.
func (d *ShellNetworkDetector) Name() string {
	return "shell-network"
}

// Detect classifies every account with a total transaction count inside the
// shell range as a candidate, takes the weakly-connected components of the
// subgraph induced on candidates, and reports the first qualifying chain per
// component. The chain search is first-found-wins over a deterministic
// lexicographic order: the selection is not guaranteed to be the "best"
// chain in the component, only a reproducible one. This is a documented
// limitation of the detector.
func (d *ShellNetworkDetector) Detect(ctx context.Context, transactions []*entity.Transaction) (*entity.EngineResult, error) {
	graph := buildTransactionGraph(transactions)

	shells := make(map[string]struct{})
	for _, id := range graph.nodes() {
		count := graph.transactionCount(id)
		if count >= d.cfg.ShellMinTransactions && count <= d.cfg.ShellMaxTransactions {
			shells[id] = struct{}{}
		}
	}

	result := &entity.EngineResult{}
	if len(shells) == 0 {
		return result, nil
	}

	flagged := make(map[string]struct{})
	for _, component := range weakComponents(graph, shells) {
		if len(component) < 2 {
			continue
		}
		chain := d.findChain(graph, shells, component)
		if chain == nil {
			continue
		}

		ringID := fmt.Sprintf("SHELL_%s", chain[0])
		result.FraudRings = append(result.FraudRings, &entity.FraudRing{
			RingID:         ringID,
			MemberAccounts: chain,
			PatternType:    entity.PatternShellNetwork,
			RiskScore:      shellRingRiskScore,
			DetectedAt:     nil,
		})

		for _, member := range chain {
			if _, seen := flagged[member]; seen {
				continue
			}
			flagged[member] = struct{}{}
			result.SuspiciousAccounts = append(result.SuspiciousAccounts, &entity.SuspiciousAccount{
				AccountID:        member,
				SuspicionScore:   shellSuspicionScore,
				DetectedPatterns: []string{entity.TagShellAccount},
				RingID:           ringID,
			})
		}
	}

	d.logger.Info("Shell-network detection finished",
		zap.Int("shell_candidates", len(shells)),
		zap.Int("fraud_rings", len(result.FraudRings)),
		zap.Int("suspicious_accounts", len(result.SuspiciousAccounts)))
	return result, nil
}

// weakComponents returns the weakly-connected components of the subgraph
// induced on the shell candidates, each sorted, discovered in lexicographic
// seed order.
func weakComponents(g *txnGraph, shells map[string]struct{}) [][]string {
	seeds := make([]string, 0, len(shells))
	for id := range shells {
		seeds = append(seeds, id)
	}
	sort.Strings(seeds)

	visited := make(map[string]struct{}, len(shells))
	var components [][]string

	for _, seed := range seeds {
		if _, done := visited[seed]; done {
			continue
		}
		var component []string
		queue := []string{seed}
		visited[seed] = struct{}{}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)

			for _, next := range g.successors(node) {
				if _, shell := shells[next]; !shell {
					continue
				}
				if _, done := visited[next]; done {
					continue
				}
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
			for _, prev := range g.predecessors(node) {
				if _, shell := shells[prev]; !shell {
					continue
				}
				if _, done := visited[prev]; done {
					continue
				}
				visited[prev] = struct{}{}
				queue = append(queue, prev)
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}
	return components
}

// findChain looks for the first simple directed path of at least two shell
// nodes inside the component whose first node has an inbound edge and whose
// last node has an outbound edge in the full graph. Start nodes and DFS
// expansion follow lexicographic order, so the first qualifying path is
// deterministic (smallest eligible starting id wins).
func (d *ShellNetworkDetector) findChain(g *txnGraph, shells map[string]struct{}, component []string) []string {
	inComponent := make(map[string]struct{}, len(component))
	for _, id := range component {
		inComponent[id] = struct{}{}
	}

	for _, start := range component {
		if g.inDegree(start) == 0 {
			continue
		}

		path := []string{start}
		onPath := map[string]struct{}{start: {}}
		var chain []string

		var extend func(current string) bool
		extend = func(current string) bool {
			for _, next := range g.successors(current) {
				if _, ok := inComponent[next]; !ok {
					continue
				}
				if _, visiting := onPath[next]; visiting {
					continue
				}
				path = append(path, next)
				onPath[next] = struct{}{}

				if g.outDegree(next) > 0 {
					chain = append([]string(nil), path...)
					return true
				}
				if extend(next) {
					return true
				}

				delete(onPath, next)
				path = path[:len(path)-1]
			}
			return false
		}

		if extend(start) {
			return chain
		}
	}
	return nil
}
