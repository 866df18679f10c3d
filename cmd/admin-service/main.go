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
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/guard"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/handler"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/repository"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/service"
	authjwt "github.com/tenantdesk/tenantdesk-backend/internal/auth/jwt"
	"github.com/tenantdesk/tenantdesk-backend/migrations"
	"github.com/tenantdesk/tenantdesk-backend/pkg/config"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/httputil"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
	"github.com/tenantdesk/tenantdesk-backend/pkg/messaging"
	"golang.org/x/time/rate"
)

const serviceName = "admin-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Admin Service")

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

		publisher, err = messaging.NewPublisher(rmq, messaging.ExchangeAdminEvents, serviceName, log)
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

	catalog, err := guard.NewCatalog(cfg.Admin.AllowedTables, cfg.Admin.AuditTable)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid table allow-list")
	}

	// Initialize repositories
	tableRepo := repository.NewTableRepository(db)
	auditRepo := repository.NewAuditRepository(db, cfg.Admin.AuditTable)
	roleRepo := repository.NewRoleRepository(db)

	// Initialize services
	authenticator := service.NewAuthenticator(verifier, roleRepo, cfg.Admin.SuperAdminRole, publisher, log)
	recorder := service.NewRecorder(auditRepo, publisher, cfg.Admin.SystemOrganizationID, log)
	engine := service.NewEngine(catalog, tableRepo, db, recorder, publisher, service.EngineConfigFrom(cfg.Admin), log)

	dispatcher := handler.NewDispatcher(authenticator, engine, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "apikey", "x-client-info"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// Database-management endpoint
	limiter := rate.NewLimiter(rate.Limit(cfg.Admin.RateLimitRPS), cfg.Admin.RateLimitBurst)
	r.Group(func(r chi.Router) {
		r.Use(httputil.RateLimit(limiter, func(w http.ResponseWriter, err error) {
			httputil.ErrorObject(w, err, http.StatusTooManyRequests, "rate limit exceeded")
		}))
		dispatcher.Routes(r)
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
