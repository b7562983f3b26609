// Package api exposes run results, the live event stream and metrics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trend-signals/analysis"
	"trend-signals/database"
	"trend-signals/export"
	"trend-signals/report"
)

// ErrStorageDisabled is returned by RunSource.StoredLatest when no database is configured
var ErrStorageDisabled = errors.New("storage disabled")

// StoredRun is a persisted run with its acquisition and correlation records
type StoredRun struct {
	Run          database.AnalysisRun         `json:"run"`
	Attempts     []database.KeywordAttempt    `json:"attempts"`
	Correlations []database.SignalCorrelation `json:"correlations"`
}

// RunSource provides run results and triggers new runs
type RunSource interface {
	Latest() (*report.Summary, *analysis.Result, bool)
	StoredLatest() (*StoredRun, error)
	Trigger(ctx context.Context) bool
}

// Server handles HTTP API requests
type Server struct {
	runs     RunSource
	events   http.Handler
	gatherer prometheus.Gatherer
}

// NewServer creates a new API server instance. events serves the SSE stream.
func NewServer(runs RunSource, events http.Handler, gatherer prometheus.Gatherer) *Server {
	return &Server{
		runs:     runs,
		events:   events,
		gatherer: gatherer,
	}
}

// Handler builds the gin router
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	r.GET("/api/events", gin.WrapH(s.events))

	runs := r.Group("/api/runs")
	{
		runs.POST("", s.handleTrigger)
		runs.GET("/latest", s.handleLatest)
		runs.GET("/latest/matrix", s.handleLatestMatrix)
		runs.GET("/latest/matrix.csv", s.handleLatestMatrixCSV)
		runs.GET("/stored/latest", s.handleStoredLatest)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTrigger(c *gin.Context) {
	// The run outlives the request
	if !s.runs.Trigger(context.Background()) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleLatest(c *gin.Context) {
	summary, _, ok := s.runs.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// latestResult writes a 404 and returns false when no run produced a matrix
func (s *Server) latestResult(c *gin.Context) (*analysis.Result, bool) {
	_, result, ok := s.runs.Latest()
	if !ok || result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis result available"})
		return nil, false
	}
	return result, true
}

func (s *Server) handleLatestMatrix(c *gin.Context) {
	result, ok := s.latestResult(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns":      result.Matrix.Columns,
		"flat":         result.Matrix.Flat,
		"rows":         result.Matrix.Rows(),
		"correlations": result.Correlations,
	})
}

func (s *Server) handleLatestMatrixCSV(c *gin.Context) {
	result, ok := s.latestResult(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+export.MatrixFile)
	if err := export.WriteMatrix(c.Writer, result.Matrix); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) handleStoredLatest(c *gin.Context) {
	stored, err := s.runs.StoredLatest()
	switch {
	case errors.Is(err, ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored run"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, stored)
	}
}
