package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/chatrelay/internal/adapters/ws"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const snapshotTimeout = 2 * time.Second

// Snapshotter is the read-only view of the relay the admin API needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().Str("module", "adapters.http").
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// SetupRouter wires the admin surface: health, state views, metrics and the
// websocket entry point. gw and m may be nil.
func SetupRouter(cfg *config.Config, state Snapshotter, gw *ws.Gateway, m *metrics.Metrics) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware(), AccessLogMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		snap, ok := snapshot(c, state)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": snap.Rooms})
	})
	api.GET("/users", func(c *gin.Context) {
		snap, ok := snapshot(c, state)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": snap.Users})
	})
	if gw != nil {
		api.GET("/ws", func(c *gin.Context) {
			gw.Handle(c.Writer, c.Request)
		})
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func snapshot(c *gin.Context, state Snapshotter) (core.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()
	snap, err := state.Snapshot(ctx)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		log.Warn().Err(err).Str("module", "adapters.http").Msg("snapshot")
		c.JSON(status, gin.H{"error": err.Error()})
		return core.Snapshot{}, false
	}
	return snap, true
}

var _ Snapshotter = (*app.Loop)(nil)
