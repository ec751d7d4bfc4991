package api

import (
	"context"
	"fmt"
	"net/http"

	"fraud-ring-analyzer/internal/domain/service"
	"fraud-ring-analyzer/internal/infrastructure/config"
	"fraud-ring-analyzer/internal/infrastructure/ingestion"
	"fraud-ring-analyzer/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server exposes the analyzer over HTTP: a CSV upload endpoint that runs a
// full batch analysis, plus a health probe.
type Server struct {
	httpServer *http.Server
	analysis   service.AnalysisService
	logger     *logger.Logger
}

// NewServer creates the HTTP server and its routes.
func NewServer(cfg *config.Config, analysis service.AnalysisService, log *logger.Logger) *Server {
	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		analysis: analysis,
		logger:   log.WithComponent("api-server"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(cors())

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: router,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleAnalyze accepts a multipart CSV upload under the "file" field, runs
// the full analysis and returns the report. Boundary failures (no file,
// missing required columns) are 400s; the core is never invoked for them.
func (s *Server) handleAnalyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part"})
		return
	}
	defer file.Close()

	transactions, err := ingestion.ParseCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("Received analysis upload",
		zap.String("filename", header.Filename),
		zap.String("request_id", c.GetString("request_id")),
		zap.Int("transactions", len(transactions)))

	report, err := s.analysis.Analyze(c.Request.Context(), transactions)
	if err != nil {
		s.logger.Error("Analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// cors allows dashboard frontends on other origins to call the API.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
