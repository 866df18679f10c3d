package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	authjwt "github.com/tenantdesk/tenantdesk-backend/internal/auth/jwt"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/handler"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/repository"
	"github.com/tenantdesk/tenantdesk-backend/internal/tenantbackend/service"
	"github.com/tenantdesk/tenantdesk-backend/migrations"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/httputil"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
)

const serviceName = "tenant-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Tenant Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.MigrationURL(), migrations.FS, log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to RabbitMQ when enabled
	var publisher messaging.EventPublisher = messaging.NopPublisher{}
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		go rmq.Watch(ctx)

		publisher, err = messaging.NewPublisher(rmq, messaging.ExchangeTenantEvents, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Info().Msg("RabbitMQ disabled, events are not published")
	}

	// Token verification
	verifier, err := authjwt.NewVerifier(ctx, &cfg.Identity)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	stores := service.Stores{
		Callers:   repository.NewCallerRepository(db),
		Tenants:   tenantRepo,
		Family:    repository.NewFamilyRepository(db),
		Documents: repository.NewDocumentRepository(db),
		Meters:    repository.NewMeterRepository(db),
		Billing:   repository.NewBillingRepository(db),
	}

	// Resolve the schema mode before serving traffic
	detector := service.NewModeDetector(tenantRepo, cfg.Backend, publisher, log)
	mode, inconclusive := detector.Status(ctx)
	log.Info().Str("mode", string(mode)).Bool("inconclusive", inconclusive).Msg("tenant schema mode resolved")

	backend := service.NewBackend(detector, stores, log)
	access := service.NewAccess(detector, stores, log)
	tenantHandler := handler.NewTenantHandler(backend, access, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":      "healthy",
			"service":     serviceName,
			"database":    db.Health(r.Context()),
			"schema_mode": detector.Mode(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// Tenant routes (authenticated, then scoped to the actor per route)
	r.Group(func(r chi.Router) {
		r.Use(authjwt.RequireBearer(verifier, log))
		tenantHandler.RegisterRoutes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
