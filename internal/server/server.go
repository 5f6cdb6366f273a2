// Package server exposes a session over a small JSON API so a browser front
// end can drive login and the developer feed.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/models"
	"github.com/stackmates/stackmates/internal/session"
)

// Session is the session surface the API drives
type Session interface {
	Login(ctx context.Context, token string) error
	Logout() error
	Refresh(ctx context.Context) models.DiscoveryResult
	State() session.Snapshot
	Profile(ctx context.Context, handle string) (*discovery.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]models.AccountProfile, error)
}

// Server wraps the gin router and its HTTP listener
type Server struct {
	router *gin.Engine
	cfg    config.ServerConfig
	logger logrus.FieldLogger
}

// New builds the router. gin runs in release mode unless GIN_MODE is set.
func New(sess Session, cfg config.ServerConfig, logger logrus.FieldLogger) *Server {
	logger = logger.WithField("component", "server")

	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	router.Use(cors.New(corsCfg))

	healthHandler := NewHealthHandler()
	sessionHandler := NewSessionHandler(sess, logger)
	userHandler := NewUserHandler(sess)

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", sessionHandler.State)
		v1.POST("/login", sessionHandler.Login)
		v1.POST("/logout", sessionHandler.Logout)
		v1.POST("/refresh", sessionHandler.Refresh)
		v1.GET("/developers", sessionHandler.Developers)

		v1.GET("/users/:handle", userHandler.Profile)
		v1.GET("/search", userHandler.Search)
	}

	return &Server{router: router, cfg: cfg, logger: logger}
}

// Handler returns the router for use with httptest or a custom listener
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("request")
	}
}
