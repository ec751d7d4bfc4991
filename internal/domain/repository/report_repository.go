package repository

import (
	"context"

	"fraud-ring-analyzer/internal/domain/entity"
)

// ReportRepository persists produced analysis reports for later review.
// Detection itself never reads anything back; archiving is write-only and
// best-effort.
type ReportRepository interface {
	// SaveReport archives a report's rings and suspicious accounts.
	SaveReport(ctx context.Context, report *entity.Report) error
}
