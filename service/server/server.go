package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pushrelay/service/config"
	"pushrelay/service/delivery"
	"pushrelay/service/subscription"
	"pushrelay/service/util"
	"pushrelay/service/webpush"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

const maxBodyBytes = 1 << 20

type Server struct {
	cfg        *config.Config
	store      subscription.Store
	registry   *delivery.Registry
	publisher  *delivery.Publisher
	defaults   delivery.Defaults
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	startTime  time.Time
	now        func() time.Time
}

// New opens the configured subscription store and wires the Web Push sender.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := subscription.Open(ctx, subscription.Options{
		StoragePath:    cfg.StoragePath,
		RedisURL:       cfg.RedisURL,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription store: %w", err)
	}

	if !cfg.IsVAPIDConfigured() {
		logger.Warn("VAPID keys not configured, notifications cannot be delivered")
	}

	sender := webpush.NewSender(webpush.Options{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubject,
		TTL:             cfg.PushTTL,
	}, logger)

	return NewWithDeps(cfg, store, sender, logger), nil
}

// NewWithDeps builds a server around an existing store and sender.
func NewWithDeps(cfg *config.Config, store subscription.Store, sender delivery.Sender, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		registry:  delivery.NewRegistry(store, logger),
		publisher: delivery.NewPublisher(store, sender, cfg.BroadcastConcurrency, logger),
		defaults: delivery.Defaults{
			Icon:  cfg.DefaultIcon,
			Badge: cfg.DefaultBadge,
			Tag:   cfg.DefaultTag,
			URL:   cfg.DefaultURL,
		},
		logger:    logger,
		startTime: time.Now(),
		now:       time.Now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		// forwarded headers are client-controlled unless a proxy rewrites them
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))
	r.Use(securityHeadersMiddleware())
	r.Use(middleware.StripSlashes)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}).Handler)
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimitMiddleware(s.cfg.RateLimit, s.logger))
	}
	r.Use(bodyLimitMiddleware(maxBodyBytes))

	r.Get("/health", s.handleHealth)
	r.Get("/vapid-public-key", s.handleVAPIDPublicKey)
	r.Get("/stats", s.handleStats)

	r.Post("/subscribe", s.handleSubscribe)
	r.Post("/unsubscribe", s.handleUnsubscribe)

	r.Post("/send-notification", s.handleSendNotification)
	r.Post("/broadcast-notification", s.handleBroadcastNotification)
	r.Post("/notify", s.handleNotify)
	r.Post("/notify-new-lead", s.handleNotifyNewLead)
	r.Post("/test-notification", s.handleTestNotification)

	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.StripPrefix("/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		util.JSONError(w, s.logger, "Not found", "", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		util.JSONError(w, s.logger, "Method not allowed", "", http.StatusMethodNotAllowed)
	})

	s.router = r
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	msg := fmt.Sprintf("Push relay running on:\n  Local: http://localhost:%d", s.cfg.Port)
	if lanIP := util.GetLANIP(); lanIP != "" {
		msg += fmt.Sprintf("\n  Network: http://%s:%d", lanIP, s.cfg.Port)
	}
	s.logger.Info(msg)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	return nil
}
