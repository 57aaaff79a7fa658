// Package httpserver exposes the GD protocol endpoints over gin, plus
// health and Prometheus metrics.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gdps-dev/gdps/internal/metrics"
	"github.com/gdps-dev/gdps/internal/model"
)

// LevelService answers the level endpoints. *levels.Service satisfies it.
type LevelService interface {
	BrowseLevels(ctx context.Context, req model.BrowseRequest) (string, error)
	DownloadLevel(ctx context.Context, req model.DownloadRequest) (string, error)
}

// UserService answers the user endpoints. *users.Service satisfies it.
type UserService interface {
	SearchUsers(ctx context.Context, req model.UserSearchRequest) (string, error)
	AccountComments(ctx context.Context, req model.AccountCommentsRequest) (string, error)
}

// HealthStore is the narrow store contract used by the health endpoint.
type HealthStore interface {
	TotalLevelCount(ctx context.Context) (int, error)
	SchemaVersion(ctx context.Context) (int, error)
}

// Config wires a Server. Metrics may be nil.
type Config struct {
	Addr      string
	Levels    LevelService
	Users     UserService
	Health    HealthStore
	Metrics   *metrics.Metrics
	RateLimit RateLimitConfig
	Logger    zerolog.Logger
}

// Server serves the GD database endpoints.
type Server struct {
	addr      string
	levels    LevelService
	users     UserService
	health    HealthStore
	metrics   *metrics.Metrics
	limit     RateLimitConfig
	log       zerolog.Logger
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	mu        sync.Mutex
}

// NewServer creates a new Server.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:8080"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      cfg.Addr,
		levels:    cfg.Levels,
		users:     cfg.Users,
		health:    cfg.Health,
		metrics:   cfg.Metrics,
		limit:     cfg.RateLimit,
		log:       cfg.Logger.With().Str("component", "httpserver").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the gin engine with every route and middleware attached.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.log), s.instrument())

	db := r.Group("/database", RateLimit(s.limit))
	db.POST("/getGJLevels21.php", s.handleGetLevels)
	db.POST("/downloadGJLevel22.php", s.handleDownloadLevel)
	db.POST("/getGJUsers20.php", s.handleGetUsers)
	db.POST("/getGJAccountComments20.php", s.handleAccountComments)

	r.GET("/api/health", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("serve")
		}
	}()
	s.log.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	count, err := s.health.TotalLevelCount(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}
	schema, err := s.health.SchemaVersion(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema version"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).String(),
		"level_count":    count,
		"schema_version": schema,
	})
}

func (s *Server) handleGetLevels(c *gin.Context) {
	s.respond(c, func(ctx context.Context) (string, error) {
		return s.levels.BrowseLevels(ctx, browseRequest(c))
	})
}

func (s *Server) handleDownloadLevel(c *gin.Context) {
	s.respond(c, func(ctx context.Context) (string, error) {
		return s.levels.DownloadLevel(ctx, downloadRequest(c))
	})
}

func (s *Server) handleGetUsers(c *gin.Context) {
	s.respond(c, func(ctx context.Context) (string, error) {
		return s.users.SearchUsers(ctx, userSearchRequest(c))
	})
}

func (s *Server) handleAccountComments(c *gin.Context) {
	s.respond(c, func(ctx context.Context) (string, error) {
		return s.users.AccountComments(ctx, accountCommentsRequest(c))
	})
}

// respond writes the wire body as text/plain. Service errors are logged and
// turned into the generic failure sentinel with a 500.
func (s *Server) respond(c *gin.Context, fn func(ctx context.Context) (string, error)) {
	body, err := fn(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		s.log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
		c.String(http.StatusInternalServerError, model.RespFailure)
		return
	}
	c.String(http.StatusOK, body)
}

func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(route, c.Writer.Status(), time.Since(start))
	}
}
