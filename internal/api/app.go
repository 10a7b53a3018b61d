package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/campus-messaging/internal/config"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/service"
)

type App struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	registry       *server.Registry
	messages       *service.MessageService
	notifications  *service.NotificationService
	signingKey     []byte
	allowedOrigins []string
}

func NewApp(
	mux *http.ServeMux,
	logger *log.Logger,
	registry *server.Registry,
	messages *service.MessageService,
	notifications *service.NotificationService,
	db database.Repository,
	cfg *config.Config,
) *App {
	s := &App{
		log:            logger,
		db:             db,
		registry:       registry,
		messages:       messages,
		notifications:  notifications,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("DELETE /api/messages/{id}", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.Handle("POST /api/notifications", s.authMiddleware(s.createNotification))
	mux.Handle("PUT /api/notifications", s.authMiddleware(s.markNotificationsRead))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	if logger != nil {
		h = handlers.LoggingHandler(logger.Writer(), h)
	}
	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *App) Handler() http.Handler {
	return s.mux.Handler
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
