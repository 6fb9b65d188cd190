// Package httpapi exposes the assistant over a small JSON API.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/router"
)

const shutdownTimeout = 5 * time.Second

type Session interface {
	Ask(ctx context.Context, source string, userID int64, query string) router.Response
	Lock() error
	Unlock(password string) error
	Locked() bool
}

type Server struct {
	engine  *gin.Engine
	session Session
	addr    string
	token   string
	log     *zap.Logger
}

type Config struct {
	Addr string
	// Token, when set, is required as a bearer token on /api routes.
	Token   string
	Session Session
	Logger  *zap.Logger
}

type queryRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID int64  `json:"user_id"`
}

type queryResponse struct {
	Reply      string  `json:"reply"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Route      string  `json:"route"`
	Exit       bool    `json:"exit"`
}

type unlockRequest struct {
	Password string `json:"password" binding:"required"`
}

type lockState struct {
	Locked bool `json:"locked"`
}

func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("httpapi: session is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	srv := &Server{
		engine:  gin.New(),
		session: cfg.Session,
		addr:    cfg.Addr,
		token:   cfg.Token,
		log:     cfg.Logger,
	}
	srv.mapHandlers()
	return srv, nil
}

// Handler exposes the routes, mainly for tests.
func (srv *Server) Handler() http.Handler { return srv.engine }

func (srv *Server) mapHandlers() {
	srv.engine.Use(gin.Recovery(), srv.requestLogger())
	srv.engine.GET("/healthz", srv.health)

	api := srv.engine.Group("/api/v1", srv.authorize())
	api.POST("/query", srv.query)
	api.POST("/lock", srv.lock)
	api.POST("/unlock", srv.unlock)
}

// Run serves until ctx is done, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:              srv.addr,
		Handler:           srv.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		srv.log.Info("http api listening", zap.String("addr", srv.addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) health(c *gin.Context) {
	ok(c, gin.H{"status": "healthy", "locked": srv.session.Locked()})
}

func (srv *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		fail(c, http.StatusBadRequest, "query is required")
		return
	}
	resp := srv.session.Ask(c.Request.Context(), assistant.SourceHTTP, req.UserID, req.Query)
	ok(c, queryResponse{
		Reply:      resp.Text,
		Intent:     resp.Intent.String(),
		Confidence: resp.Confidence,
		Route:      string(resp.Route),
		Exit:       resp.Exit,
	})
}

func (srv *Server) lock(c *gin.Context) {
	if err := srv.session.Lock(); err != nil {
		srv.log.Error("failed to lock", zap.Error(err))
		fail(c, http.StatusInternalServerError, "could not lock")
		return
	}
	ok(c, lockState{Locked: true})
}

func (srv *Server) unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "password is required")
		return
	}
	err := srv.session.Unlock(req.Password)
	switch {
	case err == nil:
		ok(c, lockState{Locked: false})
	case errors.Is(err, assistant.ErrWrongPassword):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, assistant.ErrNoPassword):
		fail(c, http.StatusConflict, err.Error())
	default:
		srv.log.Error("failed to unlock", zap.Error(err))
		fail(c, http.StatusInternalServerError, "could not unlock")
	}
}

func (srv *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if srv.token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(srv.token)) != 1 {
			fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func (srv *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		srv.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
