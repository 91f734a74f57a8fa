package ginext

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/e2ekit/helpers"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/redis"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// RunStore is the run storage the dashboard reads and appends to. *redis.Client implements it.
// Unknown runs are reported as redis.ErrNotFound.
type RunStore interface {
	LoadSummary(ctx context.Context, strategy retry.Strategy, runID string) (results.Summary, error)
	Results(ctx context.Context, strategy retry.Strategy, runID string) ([]results.TestResult, error)
	AppendResult(ctx context.Context, strategy retry.Strategy, runID string, r results.TestResult) error
}

type dashboard struct {
	store    RunStore
	strategy retry.Strategy
	log      logger.Logger
}

// NewDashboard builds the results dashboard:
//
//	GET  /health
//	GET  /runs/:id
//	GET  /runs/:id/results
//	POST /runs/:id/results
//	GET  /metrics
func NewDashboard(store RunStore, registry *prometheus.Registry, log logger.Logger) *Engine {
	d := &dashboard{
		store: store,
		strategy: retry.New(
			retry.MaxRetries(2),
			retry.InitialDelay(50*time.Millisecond),
			retry.MaxDelay(200*time.Millisecond),
			retry.WithLogger(log),
		),
		log: log,
	}

	metrics := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	return New([]Route{
		{Method: http.MethodGet, Path: "/health", Handler: d.health},
		{Method: http.MethodGet, Path: "/runs/:id", Handler: d.withRunID(d.summary)},
		{Method: http.MethodGet, Path: "/runs/:id/results", Handler: d.withRunID(d.results)},
		{Method: http.MethodPost, Path: "/runs/:id/results", Handler: d.withRunID(d.appendResult)},
		{Method: http.MethodGet, Path: "/metrics", Handler: gin.WrapH(metrics)},
	}, Recovery(log), RequestLogger(log))
}

func (d *dashboard) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// withRunID validates :id and passes its canonical form on.
func (d *dashboard) withRunID(next func(c *gin.Context, runID string)) HandlerFunc {
	return func(c *gin.Context) {
		runID, err := helpers.ParseRunID(c.Param("id"))
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid run id")
			return
		}
		next(c, runID)
	}
}

func (d *dashboard) summary(c *gin.Context, runID string) {
	s, err := d.store.LoadSummary(c.Request.Context(), d.strategy, runID)
	if err != nil {
		d.storeError(c, runID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":   s,
		"pass_rate": s.PassRate(),
	})
}

func (d *dashboard) results(c *gin.Context, runID string) {
	rs, err := d.store.Results(c.Request.Context(), d.strategy, runID)
	if err != nil {
		d.storeError(c, runID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "results": rs})
}

func (d *dashboard) appendResult(c *gin.Context, runID string) {
	var r results.TestResult
	if err := c.ShouldBindJSON(&r); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.store.AppendResult(c.Request.Context(), d.strategy, runID, r); err != nil {
		d.storeError(c, runID, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": "accepted"})
}

func (d *dashboard) storeError(c *gin.Context, runID string, err error) {
	if errors.Is(err, redis.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, "run not found")
		return
	}
	d.log.Error("run store failed", "run_id", runID, "error", err.Error())
	abortWithError(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
