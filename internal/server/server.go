package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/counseldesk/apiserver/config"
	"github.com/counseldesk/apiserver/internal/db"
	"github.com/counseldesk/apiserver/internal/events"
	"github.com/counseldesk/apiserver/internal/handlers"
	"github.com/counseldesk/apiserver/internal/mailer"
	"github.com/counseldesk/apiserver/internal/services"
	"github.com/counseldesk/apiserver/internal/storage"
	"github.com/counseldesk/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	feed       *events.Feed
}

// New constructs a Server with all services wired and routes mounted.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	feed, err := newFeed(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	uploads, err := newUploadStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		_ = feed.Close()
		return nil, err
	}
	if uploads != nil {
		if err := uploads.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			_ = feed.Close()
			return nil, fmt.Errorf("ensure image bucket: %w", err)
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	historyRepo := store.NewStatusHistoryRepository(dbConn)
	notificationRepo := store.NewNotificationRepository(dbConn)
	assignmentRepo := store.NewAssignmentRepository(dbConn)
	conversationRepo := store.NewConversationRepository(dbConn)
	appointmentRepo := store.NewAppointmentRepository(dbConn)

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP, cfg.SiteBaseURL)

	userService := services.NewUserService(userRepo)
	approvalService := services.NewApprovalService(userRepo, historyRepo, smtpMailer, feed)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, feed)
	assignmentService := services.NewAssignmentService(assignmentRepo, userRepo, feed)
	messagingService := services.NewMessagingService(conversationRepo, userRepo, feed)
	appointmentService := services.NewAppointmentService(appointmentRepo, userRepo, notificationService, feed)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, approvalService, uploads, authMiddleware)
	})
	router.Route("/notifications", func(r chi.Router) {
		handlers.NotificationRouter(r, notificationService, userService, authMiddleware)
	})
	router.Route("/assignments", func(r chi.Router) {
		handlers.AssignmentRouter(r, assignmentService, userService, authMiddleware)
	})
	router.Route("/conversations", func(r chi.Router) {
		handlers.ConversationRouter(r, messagingService, userService, authMiddleware)
	})
	router.Route("/appointments", func(r chi.Router) {
		handlers.AppointmentRouter(r, appointmentService, userService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		feed:       feed,
	}, nil
}

// newFeed selects the change-feed broker. With no broker configured the
// feed is disabled and publishes become no-ops.
func newFeed(ctx context.Context, cfg config.Config) (*events.Feed, error) {
	switch cfg.BrokerBackend {
	case "pubsub":
		if cfg.PubSub.ProjectID == "" {
			log.Println("change feed disabled: PUBSUB_PROJECT_ID not set")
			return events.NewFeed(nil), nil
		}
		backend, err := events.NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub backend: %w", err)
		}
		return events.NewFeed(backend), nil
	default:
		if cfg.RabbitMQ.URL == "" {
			log.Println("change feed disabled: RABBITMQ_URL not set")
			return events.NewFeed(nil), nil
		}
		backend, err := events.NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq backend: %w", err)
		}
		return events.NewFeed(backend), nil
	}
}

// newUploadStorage selects the object-storage driver for profile and proof
// images. Unconfigured storage returns nil and image uploads respond 503.
func newUploadStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.StorageDriver {
	case "gcs":
		if cfg.GCS.Bucket == "" {
			log.Println("image uploads disabled: GCS_BUCKET not set")
			return nil, nil
		}
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs storage: %w", err)
		}
		return storage.NewStorage(client), nil
	default:
		if cfg.Minio.Endpoint == "" {
			log.Println("image uploads disabled: MINIO_ENDPOINT not set")
			return nil, nil
		}
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		return storage.NewStorage(client), nil
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.feed != nil {
		_ = s.feed.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
