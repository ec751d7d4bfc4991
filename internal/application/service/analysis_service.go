package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/domain/repository"
	domain_service "fraud-ring-analyzer/internal/domain/service"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisApplicationService implements AnalysisService. It runs the three
// detection engines independently over the same batch (engines share no
// graph state) and merges their findings into one report.
type AnalysisApplicationService struct {
	engines []domain_service.DetectionEngine
	reports repository.ReportRepository
	logger  *logger.Logger
}

// NewAnalysisApplicationService creates the analysis application service.
// Engine order fixes the merge order: circular, smurfing, shell.
func NewAnalysisApplicationService(
	circular *domain_service.CircularRoutingDetector,
	smurfing *domain_service.SmurfingDetector,
	shell *domain_service.ShellNetworkDetector,
	reports repository.ReportRepository,
	log *logger.Logger,
) domain_service.AnalysisService {
	return &AnalysisApplicationService{
		engines: []domain_service.DetectionEngine{circular, smurfing, shell},
		reports: reports,
		logger:  log.WithComponent("analysis-service"),
	}
}

// Analyze runs every engine, merges suspicious accounts and concatenates
// fraud rings, then archives the report when an archive is configured.
func (s *AnalysisApplicationService) Analyze(ctx context.Context, transactions []*entity.Transaction) (*entity.Report, error) {
	start := time.Now()

	results := make([]*entity.EngineResult, 0, len(s.engines))
	for _, engine := range s.engines {
		result, err := engine.Detect(ctx, transactions)
		if err != nil {
			return nil, fmt.Errorf("engine %s failed: %w", engine.Name(), err)
		}
		s.logger.Debug("Engine finished",
			zap.String("engine", engine.Name()),
			zap.Int("fraud_rings", len(result.FraudRings)),
			zap.Int("suspicious_accounts", len(result.SuspiciousAccounts)))
		results = append(results, result)
	}

	accounts := mergeSuspiciousAccounts(results)
	rings := concatRings(results)

	report := &entity.Report{
		ReportID:           uuid.NewString(),
		GeneratedAt:        time.Now().UTC(),
		SuspiciousAccounts: accounts,
		FraudRings:         rings,
		Summary: entity.Summary{
			TotalAccountsAnalyzed:     countDistinctAccounts(transactions),
			SuspiciousAccountsFlagged: len(accounts),
			FraudRingsDetected:        len(rings),
			ProcessingTimeSeconds:     round3(time.Since(start).Seconds()),
		},
	}

	s.logger.Info("Analysis finished",
		zap.String("report_id", report.ReportID),
		zap.Int("transactions", len(transactions)),
		zap.Int("accounts_analyzed", report.Summary.TotalAccountsAnalyzed),
		zap.Int("suspicious_accounts", report.Summary.SuspiciousAccountsFlagged),
		zap.Int("fraud_rings", report.Summary.FraudRingsDetected),
		zap.Float64("seconds", report.Summary.ProcessingTimeSeconds))

	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			// Archiving is best-effort; the report is still returned.
			s.logger.Error("Failed to archive report",
				zap.String("report_id", report.ReportID),
				zap.Error(err))
		}
	}
	return report, nil
}

// mergeSuspiciousAccounts merges per-engine account records by account id:
// the suspicion score becomes the maximum across engines, detected patterns
// become the union, and the first engine to report the account keeps its
// ring reference. The merged list is sorted by score descending, account id
// ascending on ties.
func mergeSuspiciousAccounts(results []*entity.EngineResult) []*entity.SuspiciousAccount {
	merged := make(map[string]*entity.SuspiciousAccount)
	patterns := make(map[string]map[string]struct{})
	var order []string

	for _, result := range results {
		for _, account := range result.SuspiciousAccounts {
			existing, known := merged[account.AccountID]
			if !known {
				merged[account.AccountID] = &entity.SuspiciousAccount{
					AccountID:      account.AccountID,
					SuspicionScore: account.SuspicionScore,
					RingID:         account.RingID,
				}
				patterns[account.AccountID] = make(map[string]struct{})
				order = append(order, account.AccountID)
				existing = merged[account.AccountID]
			}
			if account.SuspicionScore > existing.SuspicionScore {
				existing.SuspicionScore = account.SuspicionScore
			}
			for _, tag := range account.DetectedPatterns {
				patterns[account.AccountID][tag] = struct{}{}
			}
		}
	}

	out := make([]*entity.SuspiciousAccount, 0, len(order))
	for _, id := range order {
		account := merged[id]
		tags := make([]string, 0, len(patterns[id]))
		for tag := range patterns[id] {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		account.DetectedPatterns = tags
		out = append(out, account)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SuspicionScore != out[j].SuspicionScore {
			return out[i].SuspicionScore > out[j].SuspicionScore
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

// concatRings concatenates every engine's rings in engine order. Rings are
// never merged or deduplicated across engines.
func concatRings(results []*entity.EngineResult) []*entity.FraudRing {
	var rings []*entity.FraudRing
	for _, result := range results {
		rings = append(rings, result.FraudRings...)
	}
	return rings
}

// countDistinctAccounts counts every non-empty account id appearing on
// either side of any record, including records the engines later drop.
func countDistinctAccounts(transactions []*entity.Transaction) int {
	distinct := make(map[string]struct{})
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		if txn.SenderID != "" {
			distinct[txn.SenderID] = struct{}{}
		}
		if txn.ReceiverID != "" {
			distinct[txn.ReceiverID] = struct{}{}
		}
	}
	return len(distinct)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
