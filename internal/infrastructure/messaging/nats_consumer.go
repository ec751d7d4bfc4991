package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"fraud-ring-analyzer/internal/domain/entity"
	"fraud-ring-analyzer/internal/domain/service"
	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// AnalysisRequest is the payload accepted on the requests subject: one whole
// batch per message.
type AnalysisRequest struct {
	RequestID    string                `json:"request_id"`
	Transactions []*entity.Transaction `json:"transactions"`
}

// analysisError is published in place of a report when a request cannot be
// served.
type analysisError struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// AnalysisConsumer subscribes to analysis requests over NATS, runs the
// analysis service, and publishes the resulting report. Reports go to the
// message's reply subject when set, otherwise to the reports subject.
type AnalysisConsumer struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	config   *config.NATSConfig
	analysis service.AnalysisService
	logger   *logger.Logger
}

// NewAnalysisConsumer creates a new analysis consumer.
func NewAnalysisConsumer(cfg *config.NATSConfig, analysis service.AnalysisService, log *logger.Logger) *AnalysisConsumer {
	return &AnalysisConsumer{
		config:   cfg,
		analysis: analysis,
		logger:   log.WithComponent("nats-consumer"),
	}
}

// Connect connects to the NATS server and subscribes to the requests
// subject.
func (c *AnalysisConsumer) Connect(ctx context.Context) error {
	if !c.config.Enabled {
		c.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	c.logger.Info("Connecting to NATS server", zap.String("url", c.config.URL))

	opts := []nats.Option{
		nats.Name("fraud-ring-analyzer"),
		nats.Timeout(c.config.ConnectTimeout),
		nats.ReconnectWait(c.config.ReconnectDelay),
		nats.MaxReconnects(c.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(c.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	c.conn = conn

	subject := c.requestSubject()
	sub, err := conn.QueueSubscribe(subject, c.config.ConsumerGroup, func(msg *nats.Msg) {
		go c.handleRequest(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if err := sub.SetPendingLimits(c.config.MaxPendingMessages, nats.DefaultSubPendingBytesLimit); err != nil {
		return fmt.Errorf("failed to set pending limits: %w", err)
	}
	c.sub = sub

	c.logger.Info("Subscribed to analysis requests",
		zap.String("subject", subject),
		zap.String("queue_group", c.config.ConsumerGroup))
	return nil
}

// handleRequest runs one batch through the analysis service. A run is an
// atomic compute step: no partial results are ever published. Each request
// runs in its own goroutine, so a panic here would take down the whole
// consumer; it is recovered and reported as a failed request instead.
func (c *AnalysisConsumer) handleRequest(msg *nats.Msg) {
	var request AnalysisRequest
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Analysis request panicked",
				zap.String("request_id", request.RequestID),
				zap.Any("panic", r))
			c.publishError(msg, request.RequestID, "internal error")
		}
	}()

	if err := json.Unmarshal(msg.Data, &request); err != nil {
		c.logger.Error("Failed to unmarshal analysis request", zap.Error(err))
		c.publishError(msg, request.RequestID, "malformed request payload")
		return
	}

	c.logger.Info("Processing analysis request",
		zap.String("request_id", request.RequestID),
		zap.Int("transactions", len(request.Transactions)))

	report, err := c.analysis.Analyze(context.Background(), request.Transactions)
	if err != nil {
		c.logger.Error("Analysis request failed",
			zap.String("request_id", request.RequestID),
			zap.Error(err))
		c.publishError(msg, request.RequestID, err.Error())
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		c.logger.Error("Failed to marshal report", zap.Error(err))
		return
	}
	c.publish(msg, payload)

	c.logger.Info("Published analysis report",
		zap.String("request_id", request.RequestID),
		zap.String("report_id", report.ReportID))
}

func (c *AnalysisConsumer) publishError(msg *nats.Msg, requestID, reason string) {
	payload, err := json.Marshal(analysisError{RequestID: requestID, Error: reason})
	if err != nil {
		return
	}
	c.publish(msg, payload)
}

func (c *AnalysisConsumer) publish(msg *nats.Msg, payload []byte) {
	subject := c.reportSubject()
	if msg.Reply != "" {
		subject = msg.Reply
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		c.logger.Error("Failed to publish", zap.String("subject", subject), zap.Error(err))
	}
}

func (c *AnalysisConsumer) requestSubject() string {
	return fmt.Sprintf("%s.requests", c.config.SubjectPrefix)
}

func (c *AnalysisConsumer) reportSubject() string {
	return fmt.Sprintf("%s.reports", c.config.SubjectPrefix)
}

// Disconnect unsubscribes and closes the connection.
func (c *AnalysisConsumer) Disconnect() error {
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.logger.Info("Disconnected from NATS")
	return nil
}

// IsConnected checks if connected to NATS.
func (c *AnalysisConsumer) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
