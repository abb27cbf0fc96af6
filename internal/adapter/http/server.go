package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// ReadinessFunc adapts a ping function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// ReadinessChecks is ready only when every member is.
type ReadinessChecks []ReadinessChecker

func (rc ReadinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Predictor runs the decision pipeline.
type Predictor interface {
	Predict(ctx context.Context, rec domain.FeatureRecord) (domain.Decision, error)
}

// Reports serves the dashboard read models.
type Reports interface {
	Heatmap(ctx context.Context) ([]domain.HeatmapPoint, error)
	Summary(ctx context.Context) (domain.Summary, error)
	Alerts(ctx context.Context) ([]domain.AlertRecord, error)
}

// FieldReports stores submissions from field workers.
type FieldReports interface {
	AppendCaseReport(ctx context.Context, r domain.CaseReport) (domain.CaseReport, error)
	AppendWaterReport(ctx context.Context, r domain.WaterReport) (domain.WaterReport, error)
}

// AlertSubscriber streams raw alert payloads as they are stored.
type AlertSubscriber interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// Deps are the collaborators served by the HTTP API. Live and Ready may be
// nil; a nil Ready always reports ready.
type Deps struct {
	Predictor    Predictor
	Reports      Reports
	FieldReports FieldReports
	Live         AlertSubscriber
	Ready        ReadinessChecker
}

// Server exposes the risk API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	origins    []string
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, deps Deps, corsOrigins string, logger *slog.Logger) *Server {
	router := gin.New()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:    deps,
		origins: splitOrigins(corsOrigins),
		logger:  logger,
	}

	router.Use(gin.Recovery(), requestLogger(logger), corsMiddleware(s.origins))

	router.POST("/predict", s.handlePredict)
	router.GET("/heatmap-data", s.handleHeatmap)
	router.GET("/report-summary", s.handleSummary)
	router.GET("/alerts", s.handleAlerts)
	router.GET("/alerts/live", s.handleLiveAlerts)
	router.POST("/cases/report", s.handleCaseReport)
	router.POST("/water/report", s.handleWaterReport)
	router.GET("/hygiene-tips", handleHygieneTips)

	ready := deps.Ready
	if ready == nil {
		ready = ReadinessChecks{}
	}
	router.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	router.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// errorStatus maps pipeline errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFeatures):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrScoring):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
