package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "fraud-ring-analyzer/internal/application/service"
	domain_service "fraud-ring-analyzer/internal/domain/service"
	"fraud-ring-analyzer/internal/infrastructure/api"
	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/database"
	"fraud-ring-analyzer/internal/infrastructure/logger"
	"fraud-ring-analyzer/internal/infrastructure/messaging"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Detection),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			database.NewNeo4JClient,
			database.NewNeo4JReportRepository,
			messaging.NewAnalysisConsumer,
			api.NewServer,
		),

		// Detection engines
		fx.Provide(
			domain_service.NewCircularRoutingDetector,
			domain_service.NewSmurfingDetector,
			domain_service.NewShellNetworkDetector,
		),

		// Application providers
		fx.Provide(
			app_service.NewAnalysisApplicationService,
		),

		// Lifecycle hooks
		fx.Invoke(startAnalyzer),
		fx.Invoke(startAPIServer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// startAnalyzer connects the optional report archive and the NATS request
// consumer.
func startAnalyzer(
	lifecycle fx.Lifecycle,
	neo4jClient *database.Neo4JClient,
	consumer *messaging.AnalysisConsumer,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting analyzer...")

			if err := neo4jClient.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Neo4J: %w", err)
			}
			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			log.Info("Analyzer started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping analyzer...")
			if err := consumer.Disconnect(); err != nil {
				log.Error("Failed to disconnect from NATS", zap.Error(err))
			}
			return neo4jClient.Close(ctx)
		},
	})
}

// startAPIServer runs the HTTP upload endpoint.
func startAPIServer(
	lifecycle fx.Lifecycle,
	server *api.Server,
) {
	lifecycle.Append(fx.Hook{
		OnStart: server.Start,
		OnStop:  server.Stop,
	})
}
