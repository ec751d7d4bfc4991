package database

import (
	"context"
	"fmt"

	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4JClient handles the optional report-archive database connection.
type Neo4JClient struct {
	driver neo4j.DriverWithContext
	config *config.Neo4JConfig
	logger *logger.Logger
}

// NewNeo4JClient creates a new Neo4J client.
func NewNeo4JClient(cfg *config.Neo4JConfig, logger *logger.Logger) *Neo4JClient {
	return &Neo4JClient{
		config: cfg,
		logger: logger.WithComponent("neo4j-client"),
	}
}

// Connect connects to the Neo4J database. When the archive is disabled the
// client stays idle and repositories become no-ops.
func (n *Neo4JClient) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("Report archive is disabled, skipping Neo4J connection")
		return nil
	}

	n.logger.Info("Connecting to Neo4J database", zap.String("uri", n.config.URI))

	driver, err := neo4j.NewDriverWithContext(
		n.config.URI,
		neo4j.BasicAuth(n.config.Username, n.config.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = n.config.MaxConnectionPoolSize
			config.ConnectionAcquisitionTimeout = n.config.ConnectionAcquisitionTimeout
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create Neo4J driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify Neo4J connectivity: %w", err)
	}

	n.driver = driver
	n.logger.Info("Successfully connected to Neo4J database")

	if err := n.setupSchema(ctx); err != nil {
		return fmt.Errorf("failed to setup schema: %w", err)
	}
	return nil
}

// Close closes the Neo4J connection.
func (n *Neo4JClient) Close(ctx context.Context) error {
	if n.driver != nil {
		n.logger.Info("Closing Neo4J connection")
		return n.driver.Close(ctx)
	}
	return nil
}

// GetDriver returns the Neo4J driver, nil when the archive is disabled.
func (n *Neo4JClient) GetDriver() neo4j.DriverWithContext {
	return n.driver
}

// IsReady reports whether the archive accepts writes.
func (n *Neo4JClient) IsReady() bool {
	return n.driver != nil
}

// setupSchema creates the necessary constraints and indexes.
func (n *Neo4JClient) setupSchema(ctx context.Context) error {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.config.Database,
	})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT account_id IF NOT EXISTS FOR (a:Account) REQUIRE a.account_id IS UNIQUE",
		"CREATE CONSTRAINT ring_id IF NOT EXISTS FOR (r:FraudRing) REQUIRE r.ring_id IS UNIQUE",
	}
	for _, constraint := range constraints {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, constraint, nil)
		})
		if err != nil {
			n.logger.Warn("Failed to create constraint", zap.String("constraint", constraint), zap.Error(err))
		}
	}

	indexes := []string{
		"CREATE INDEX ring_risk_score IF NOT EXISTS FOR (r:FraudRing) ON (r.risk_score)",
		"CREATE INDEX ring_pattern_type IF NOT EXISTS FOR (r:FraudRing) ON (r.pattern_type)",
		"CREATE INDEX account_suspicion_score IF NOT EXISTS FOR (a:Account) ON (a.suspicion_score)",
	}
	for _, index := range indexes {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, index, nil)
		})
		if err != nil {
			n.logger.Warn("Failed to create index", zap.String("index", index), zap.Error(err))
		}
	}

	n.logger.Info("Schema setup completed")
	return nil
}
