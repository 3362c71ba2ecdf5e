// Package api exposes the HTTP control plane: authentication, account
// upload, price queries and scheduled-task management.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"binance-monitor/internal/auth"
	"binance-monitor/internal/hosts"
	"binance-monitor/internal/pipeline"
	"binance-monitor/internal/pricetable"
	"binance-monitor/internal/scheduler"
)

// Repository is the slice of the database the handlers read and write.
type Repository interface {
	InsertHost(ctx context.Context, a hosts.Account) error
	LoadRecords(ctx context.Context, username, requestID string) ([]scheduler.TaskResult, error)
	MyTasks(ctx context.Context, username string) ([]scheduler.ScheduledTask, error)
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
	ClientVersion  int
	ServerVersion  int
}

// Server is the HTTP API server.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        Repository
	authService *auth.Service
	prices      *pricetable.Table
	taskQueue   *pipeline.Queue[scheduler.Message]
	config      ServerConfig
	log         zerolog.Logger
}

// NewServer builds the router and its middleware chain.
func NewServer(
	cfg ServerConfig,
	repo Repository,
	authService *auth.Service,
	prices *pricetable.Table,
	taskQueue *pipeline.Queue[scheduler.Message],
	logger zerolog.Logger,
) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		repo:        repo,
		authService: authService,
		prices:      prices,
		taskQueue:   taskQueue,
		config:      cfg,
		log:         logger.With().Str("component", "api").Logger(),
	}

	router.Use(s.requestIDMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.POST("/login", s.handleLogin)
	s.router.POST("/create_user", s.handleCreateUser)

	authed := s.router.Group("/", s.requireAuth())
	authed.POST("/upload", s.handleUpload)
	authed.GET("/trading_pairs", s.handleTradingPairs)
	authed.POST("/price", s.handlePrice)
	authed.POST("/task", s.handleTask)
	authed.GET("/my_tasks", s.handleMyTasks)
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("control plane listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// requestIDMiddleware tags every request and response for correlation.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requireAuth validates the bearer token and stashes its claims.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		const prefix = "Bearer "
		header := c.GetHeader("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			errorResponse(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := s.authService.Authorize(c.Request.Context(), header[len(prefix):])
		if err != nil {
			errorResponse(c, http.StatusUnauthorized, "invalid bearer token")
			c.Abort()
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.UserClaims {
	v, _ := c.Get("claims")
	claims, _ := v.(*auth.UserClaims)
	return claims
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": status, "message": message})
}

func successResponse(c *gin.Context, payload gin.H) {
	resp := gin.H{"status": http.StatusOK, "message": "success"}
	for k, v := range payload {
		resp[k] = v
	}
	c.JSON(http.StatusOK, resp)
}
