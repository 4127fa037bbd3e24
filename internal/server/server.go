// Package server exposes the monitor's HTTP API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/simulation"
)

// Engine is the refresh-cycle surface the API reads and drives.
type Engine interface {
	Latest() (model.Snapshot, bool)
	SelectHome(id string) bool
	Acknowledge(otherID string) bool
	Active() []model.ActivePair
	Home() string
}

type Options struct {
	Engine Engine
	// Simulator enables the /api/simulation routes when set.
	Simulator *simulation.Simulator
	// Stream is mounted at /ws when set.
	Stream  http.Handler
	Logger  *zap.Logger
	Release bool
}

type handler struct {
	engine Engine
	sim    *simulation.Simulator
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	h := &handler{engine: opts.Engine, sim: opts.Simulator, logger: logger}

	r.GET("/healthz", h.health)
	if opts.Stream != nil {
		r.GET("/ws", gin.WrapH(opts.Stream))
	}

	api := r.Group("/api")
	{
		api.GET("/snapshot", h.snapshot)
		api.GET("/clusters", h.clusters)
		api.GET("/clusters.kml", h.clustersKML)
		api.GET("/alerts/active", h.activeAlerts)
		api.PUT("/home", h.setHome)
		api.POST("/alerts/:other/ack", h.acknowledge)

		if h.sim != nil {
			sim := api.Group("/simulation")
			sim.POST("/start", h.simStart)
			sim.POST("/stop", h.simStop)
			sim.POST("/reset", h.simReset)
			sim.GET("/status", h.simStatus)
		}
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// websocket upgrades are logged by the hub
		if c.Request.URL.Path == "/ws" {
			return
		}
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// latest writes 503 and returns false when no cycle has completed yet.
func (h *handler) latest(c *gin.Context) (model.Snapshot, bool) {
	snap, ok := h.engine.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot yet"})
	}
	return snap, ok
}

func (h *handler) health(c *gin.Context) {
	snap, ok := h.engine.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sequence": snap.Sequence,
		"taken_at": snap.TakenAt,
	})
}

func (h *handler) snapshot(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) clusters(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequence": snap.Sequence, "clusters": snap.Clusters})
}

func (h *handler) clustersKML(c *gin.Context) {
	snap, ok := h.latest(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/vnd.google-earth.kml+xml")
	c.Status(http.StatusOK)
	if err := writeClustersKML(c.Writer, snap); err != nil {
		h.logger.Warn("writing cluster kml", zap.Error(err))
	}
}

// activeAlerts reads the watch directly so home changes and
// acknowledgements show up before the next cycle.
func (h *handler) activeAlerts(c *gin.Context) {
	active := h.engine.Active()
	if active == nil {
		active = []model.ActivePair{}
	}
	c.JSON(http.StatusOK, gin.H{"home_id": h.engine.Home(), "active": active})
}

func (h *handler) setHome(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed := h.engine.SelectHome(req.ID)
	c.JSON(http.StatusOK, gin.H{"home_id": h.engine.Home(), "changed": changed})
}

func (h *handler) acknowledge(c *gin.Context) {
	other := c.Param("other")
	if !h.engine.Acknowledge(other) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no active alert for %s", other)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": other})
}

func (h *handler) simStart(c *gin.Context) {
	var req struct {
		SpeedMultiplier float64 `json:"speed_multiplier" binding:"omitempty,gt=0"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.sim.Start(req.SpeedMultiplier)
	h.logger.Info("simulation started", zap.Float64("speed_multiplier", h.sim.Status().SpeedMultiplier))
	c.JSON(http.StatusOK, h.sim.Status())
}

func (h *handler) simStop(c *gin.Context) {
	h.sim.Stop()
	h.logger.Info("simulation stopped")
	c.JSON(http.StatusOK, h.sim.Status())
}

func (h *handler) simReset(c *gin.Context) {
	h.sim.Reset()
	h.logger.Info("simulation reset")
	c.JSON(http.StatusOK, h.sim.Status())
}

func (h *handler) simStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sim.Status())
}
