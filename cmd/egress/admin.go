package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/avegress/internal/gateway"
	"github.com/vyrodovalexey/avegress/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// adminServer exposes the operational surface: health, breaker state,
// breaker reset, and Prometheus metrics.
type adminServer struct {
	engine     *gin.Engine
	httpServer *http.Server
	gateway    *gateway.Gateway
	logger     observability.Logger
}

// newAdminServer creates the admin HTTP server on addr.
func newAdminServer(addr string, gw *gateway.Gateway, logger observability.Logger) *adminServer {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &adminServer{
		engine:  engine,
		gateway: gw,
		logger:  logger,
	}

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/breakers", s.handleBreakers)
	engine.POST("/breakers/reset", s.handleBreakersReset)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	return s
}

// start runs the admin server in the background.
func (s *adminServer) start() {
	go func() {
		s.logger.Info("starting admin server",
			observability.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin server error", observability.Error(err))
		}
	}()
}

// stop gracefully shuts down the admin server.
func (s *adminServer) stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *adminServer) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version,
	})
}

func (s *adminServer) handleBreakers(c *gin.Context) {
	stats := s.gateway.Breakers().Stats()
	out := make(map[string]gin.H, len(stats))
	for key, st := range stats {
		out[key] = gin.H{
			"state":           st.State.String(),
			"successes":       st.Successes,
			"failures":        st.Failures,
			"timeouts":        st.Timeouts,
			"errorPercent":    st.ErrorPercent,
			"lastStateChange": st.LastStateChange,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(out),
		"breakers": out,
	})
}

func (s *adminServer) handleBreakersReset(c *gin.Context) {
	s.gateway.Breakers().ResetAll()
	s.logger.Info("all circuit breakers reset via admin endpoint")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
