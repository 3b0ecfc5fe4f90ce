package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eduinstitute/liveclass-server/internal/config"
	"github.com/eduinstitute/liveclass-server/internal/database"
	"github.com/eduinstitute/liveclass-server/internal/fanout"
	"github.com/eduinstitute/liveclass-server/internal/handler"
	"github.com/eduinstitute/liveclass-server/internal/jobs"
	"github.com/eduinstitute/liveclass-server/internal/middleware"
	"github.com/eduinstitute/liveclass-server/internal/mongodb"
	"github.com/eduinstitute/liveclass-server/internal/ratelimit"
	"github.com/eduinstitute/liveclass-server/internal/redis"
	"github.com/eduinstitute/liveclass-server/internal/repository"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction()
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	loc, _ := cfg.Location()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()
	log.Info().Str("driver", cfg.StoreDriver).Msg("store connected")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	var (
		broker    *fanout.Broker
		publisher fanout.Publisher = fanout.NopPublisher{}
	)
	if cfg.RealtimeEnabled {
		broker = fanout.NewBroker(redisClient)
		defer broker.Close()
		publisher = broker
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	liveSessionService := service.NewLiveSessionService(store, loc)
	enrollmentService := service.NewEnrollmentService(store, publisher)
	learnerService := service.NewLearnerService(store, loc)

	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminTokenHash)
	enrollLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		limiter, cfg.EnrollRateLimitPerMin, config.EnrollRateLimitWindow, "enroll",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var streamHandler *handler.StreamHandler
	if broker != nil {
		streamHandler = handler.NewStreamHandler(broker, liveSessionService, cfg.CORSOrigins)
	}
	liveSessionHandler := handler.NewLiveSessionHandler(
		liveSessionService, enrollmentService, streamHandler,
		adminAuthMiddleware.Handler, enrollLimitMiddleware.Handler,
	)
	learnerHandler := handler.NewLearnerHandler(learnerService, adminAuthMiddleware.Handler)
	healthHandler := handler.NewHealthHandler(store)
	assetHandler := handler.NewAssetHandler(cfg.StaticDir + "/images")

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Handle("/health", healthHandler)
	r.Handle("/images/*", assetHandler)

	// Streams are long-lived; the request timeout applies to everything else.
	r.Group(func(r chi.Router) {
		r.Use(timeoutExceptStreams(config.ServerRequestTimeout))
		r.Mount("/live-sessions", liveSessionHandler.Routes())
		r.Mount("/learners", learnerHandler.Routes())
	})

	reconcileJob := jobs.NewReconcileJob(enrollmentService, cfg.ReconcileSchedule, config.ReconcileJobTimeout)
	if err := reconcileJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reconcile job")
	}
	defer reconcileJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Bool("realtime", broker != nil).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Ends open SSE and WebSocket streams so Shutdown does not wait on them.
	if broker != nil {
		broker.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewPostgresStore(db), nil

	case config.DriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		store := repository.NewMongoStore(client)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, err
		}
		return store, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store: data is lost on restart")
		return repository.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func timeoutExceptStreams(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withTimeout := chimiddleware.Timeout(timeout)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreamRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			withTimeout.ServeHTTP(w, r)
		})
	}
}

func isStreamRequest(r *http.Request) bool {
	return r.Header.Get("Accept") == "text/event-stream" ||
		r.Header.Get("Upgrade") == "websocket" ||
		strings.HasSuffix(r.URL.Path, "/events") ||
		strings.HasSuffix(r.URL.Path, "/ws")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
