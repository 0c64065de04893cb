package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maestro-sh/maestro/internal/history"
	"github.com/maestro-sh/maestro/internal/metrics"
	"github.com/maestro-sh/maestro/internal/orchestrator"
)

// Router maps HTTP requests onto orchestrator methods. Endpoints:
//
//	GET  /services                  all configured service statuses
//	POST /services/start/:group     start a group, returns per-service statuses
//	POST /services/stop/:group      stop a group
//	GET  /events?name=&limit=       recent lifecycle events (when history is on)
//	GET  /metrics                   prometheus metrics
//	GET  /healthz
type Router struct {
	orch *orchestrator.Orchestrator
	hist history.Sink // may be nil
}

func NewRouter(orch *orchestrator.Orchestrator, hist history.Sink) *Router {
	return &Router{orch: orch, hist: hist}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/services", r.handleStatuses)
	g.POST("/services/start/:group", r.handleStartGroup)
	g.POST("/services/stop/:group", r.handleStopGroup)
	g.GET("/events", r.handleEvents)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return g
}

// New builds a standalone HTTP server on addr using this router. The caller
// owns its lifecycle (ListenAndServe / Shutdown).
func New(addr string, orch *orchestrator.Orchestrator, hist history.Sink) *http.Server {
	r := NewRouter(orch, hist)
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, r.orch.GetAllStatuses())
}

func (r *Router) handleStartGroup(c *gin.Context) {
	group := c.Param("group")
	statuses, err := r.orch.StartGroup(group)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownGroup) {
			c.JSON(http.StatusNotFound, errorResp{
				Error: fmt.Sprintf("service group %q not found in config", group),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (r *Router) handleStopGroup(c *gin.Context) {
	group := c.Param("group")
	r.orch.StopGroup(group)
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("stop command issued for service group %q", group),
	})
}

func (r *Router) handleEvents(c *gin.Context) {
	if r.hist == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "history is not enabled"})
		return
	}
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "invalid limit"})
			return
		}
		limit = n
	}
	events, err := r.hist.Recent(c.Request.Context(), c.Query("name"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	c.JSON(http.StatusOK, events)
}
