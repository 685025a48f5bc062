package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/config"
	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/db"
	"github.com/articlehub/apiserver/internal/events"
	"github.com/articlehub/apiserver/internal/handlers"
	"github.com/articlehub/apiserver/internal/logging"
	"github.com/articlehub/apiserver/internal/mq"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/internal/store"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Dependencies are the collaborators the router is assembled from.
type Dependencies struct {
	Users    services.UserRepository
	Articles services.ArticleRepository
	Sessions *scs.SessionManager
	Tokens   *auth.TokenIssuer
	// Events may be nil.
	Events services.EventPublisher
	Logger *zap.Logger
}

// NewRouter wires services, the auth pipeline and every route.
func NewRouter(deps Dependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	userService := services.NewUserService(deps.Users, deps.Events)
	articleService := services.NewArticleService(deps.Articles, deps.Events)
	pipeline := auth.NewPipeline(userService, deps.Sessions, deps.Tokens, logger.Named("auth"))
	pages := handlers.NewPageHandler(userService, articleService, pipeline)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		deps.Sessions.LoadAndSave,
		pipeline.Authenticate,
	)
	router.NotFound(pages.NotFound)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.NotFound(handlers.APINotFound)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, pipeline)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService)
		})
		r.Route("/articles", func(r chi.Router) {
			handlers.ArticleRouter(r, articleService)
		})
	})
	handlers.PageRouter(router, userService, articleService, pipeline)

	return router
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
	sessions   *scs.SessionManager
	logger     *zap.Logger
}

// New opens the database and the event broker and assembles the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	secret := strings.TrimSpace(cfg.Session.Secret)
	if secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	broker, err := mq.Open(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open events backend: %w", err)
	}
	var publisher services.EventPublisher
	if broker != nil {
		publisher = events.NewPublisher(broker, cfg.Events.Channel, logger.Named("events"))
	}

	sessions := auth.NewSessionManager(cfg.Session, dbConn)
	router := NewRouter(Dependencies{
		Users:    store.NewUserRepository(dbConn, cfg.Database.QueryTimeout),
		Articles: store.NewArticleRepository(dbConn, cfg.Database.QueryTimeout),
		Sessions: sessions,
		Tokens:   auth.NewTokenIssuer(secret, cfg.Session.Lifetime),
		Events:   publisher,
		Logger:   logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(logger),
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		sessions:   sessions,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown() error {
	s.logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if stopper, ok := s.sessions.Store.(interface{ StopCleanup() }); ok {
		stopper.StopCleanup()
	}
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("close events backend", zap.Error(err))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
