package service

import (
	"context"

	"fraud-ring-analyzer/internal/domain/entity"
)

// DetectionEngine is implemented by each pattern-detection engine. Engines
// are stateless across calls: every working structure (graph, metadata,
// windows) is built fresh per batch and discarded afterwards.
type DetectionEngine interface {
	// Name identifies the engine in logs and merge order.
	Name() string

	// Detect runs the engine over a full transaction batch.
	Detect(ctx context.Context, transactions []*entity.Transaction) (*entity.EngineResult, error)
}

// AnalysisService runs every detection engine over a batch and merges their
// findings into a single report.
type AnalysisService interface {
	Analyze(ctx context.Context, transactions []*entity.Transaction) (*entity.Report, error)
}
