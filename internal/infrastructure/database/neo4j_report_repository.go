package database

import (
	"context"
	"fmt"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/domain/repository"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JReportRepository implements ReportRepository: each report's rings and
// accounts are merged into the archive graph as
// (:Account)-[:MEMBER_OF]->(:FraudRing).
type Neo4JReportRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JReportRepository creates a new Neo4J report repository.
func NewNeo4JReportRepository(client *Neo4JClient, logger *logger.Logger) repository.ReportRepository {
	return &Neo4JReportRepository{
		client: client,
		logger: logger.WithComponent("neo4j-report-repo"),
	}
}

// SaveReport archives a report. It is a no-op when the archive is disabled.
func (r *Neo4JReportRepository) SaveReport(ctx context.Context, report *entity.Report) error {
	if !r.client.IsReady() {
		r.logger.Debug("Report archive disabled, skipping save",
			zap.String("report_id", report.ReportID))
		return nil
	}

	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if err := r.saveRings(ctx, session, report); err != nil {
		return err
	}
	if err := r.saveAccounts(ctx, session, report); err != nil {
		return err
	}

	r.logger.Info("Archived report",
		zap.String("report_id", report.ReportID),
		zap.Int("fraud_rings", len(report.FraudRings)),
		zap.Int("suspicious_accounts", len(report.SuspiciousAccounts)))
	return nil
}

func (r *Neo4JReportRepository) saveRings(ctx context.Context, session neo4j.SessionWithContext, report *entity.Report) error {
	query := `
		UNWIND $rings AS ring
		MERGE (fr:FraudRing {ring_id: ring.ring_id})
		SET fr.pattern_type = ring.pattern_type,
			fr.risk_score = ring.risk_score,
			fr.detected_at = ring.detected_at,
			fr.report_id = $report_id
		WITH fr, ring
		UNWIND ring.member_accounts AS member
		MERGE (a:Account {account_id: member})
		MERGE (a)-[:MEMBER_OF]->(fr)
	`

	rings := make([]map[string]interface{}, 0, len(report.FraudRings))
	for _, ring := range report.FraudRings {
		var detectedAt interface{}
		if ring.DetectedAt != nil {
			detectedAt = ring.DetectedAt.Format(entity.DetectedAtLayout)
		}
		rings = append(rings, map[string]interface{}{
			"ring_id":         ring.RingID,
			"pattern_type":    ring.PatternType,
			"risk_score":      ring.RiskScore,
			"detected_at":     detectedAt,
			"member_accounts": ring.MemberAccounts,
		})
	}

	params := map[string]interface{}{
		"report_id": report.ReportID,
		"rings":     rings,
	}
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	if err != nil {
		return fmt.Errorf("failed to archive fraud rings: %w", err)
	}
	return nil
}

func (r *Neo4JReportRepository) saveAccounts(ctx context.Context, session neo4j.SessionWithContext, report *entity.Report) error {
	query := `
		UNWIND $accounts AS account
		MERGE (a:Account {account_id: account.account_id})
		SET a.suspicion_score = account.suspicion_score,
			a.detected_patterns = account.detected_patterns,
			a.ring_id = account.ring_id
	`

	accounts := make([]map[string]interface{}, 0, len(report.SuspiciousAccounts))
	for _, account := range report.SuspiciousAccounts {
		accounts = append(accounts, map[string]interface{}{
			"account_id":        account.AccountID,
			"suspicion_score":   account.SuspicionScore,
			"detected_patterns": account.DetectedPatterns,
			"ring_id":           account.RingID,
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]interface{}{"accounts": accounts})
	})
	if err != nil {
		return fmt.Errorf("failed to archive suspicious accounts: %w", err)
	}
	return nil
}
