package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	authhttp "github.com/AlibekovAA/recordkeeper/internal/auth/http"
	authservice "github.com/AlibekovAA/recordkeeper/internal/auth/service"
	"github.com/AlibekovAA/recordkeeper/internal/common/cache"
	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	"github.com/AlibekovAA/recordkeeper/internal/common/config"
	"github.com/AlibekovAA/recordkeeper/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/recordkeeper/internal/common/crypto"
	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	commonhttp "github.com/AlibekovAA/recordkeeper/internal/common/http"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	srv "github.com/AlibekovAA/recordkeeper/internal/common/server"
	recordinghttp "github.com/AlibekovAA/recordkeeper/internal/recording/http"
	"github.com/AlibekovAA/recordkeeper/internal/recording/live"
	"github.com/AlibekovAA/recordkeeper/internal/recording/report"
	recordingrepo "github.com/AlibekovAA/recordkeeper/internal/recording/repository"
	recordingservice "github.com/AlibekovAA/recordkeeper/internal/recording/service"
	userrepo "github.com/AlibekovAA/recordkeeper/internal/user/repository"
)

const serviceName = "recordkeeper"

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, log, cfg.DatabaseURL); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	db.StartPoolMetrics(bgCtx, pool, constants.DBPoolMetricsInterval)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	clk := clock.NewRealClock()
	idGenerator := commoncrypto.NewUUIDGenerator()

	authService := authservice.NewAuthService(
		authservice.AuthServiceDeps{
			Repo:        userrepo.NewPgRepository(pool),
			Hasher:      commoncrypto.NewBcryptHasher(0),
			IDGenerator: idGenerator,
			Clock:       clk,
			Log:         log,
		},
		authservice.AuthServiceConfig{
			JWTSecret:               cfg.JWTSecret,
			AccessTokenTTL:          constants.AccessTokenTTL,
			CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
			CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
			CircuitBreakerReset:     cfg.CircuitBreakerReset,
		},
	)

	hub := live.NewHub(log)
	go hub.Run(bgCtx)

	deps := recordingservice.Deps{
		Repo:        recordingrepo.NewPgRepository(pool),
		IDGenerator: idGenerator,
		Clock:       clk,
		Log:         log,
		Publisher:   hub,
	}
	recordingCfg := recordingservice.Config{
		CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
		CircuitBreakerReset:     cfg.CircuitBreakerReset,
	}

	// The builder reads through the service, which is only built once the
	// cache (its invalidator) exists.
	var source reportSource
	var reports report.Renderer = report.NewBuilder(&source)
	if redisClient != nil {
		reportCache := report.NewCache(reports, redisClient, cfg.ReportCacheTTL, log)
		deps.Cache = reportCache
		reports = reportCache
		log.Infof("report cache enabled, ttl=%s", cfg.ReportCacheTTL)
	}
	recordingService := recordingservice.NewRecordingService(deps, recordingCfg)
	source.RecordingService = recordingService

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(pool, log))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/auth/", authhttp.NewHandler(authService, log, cfg.RequestTimeout))

	recordingHandler := recordinghttp.NewHandler(recordinghttp.Options{
		Recordings:     recordingService,
		Reports:        reports,
		Live:           live.NewHandler(hub, log),
		Verifier:       authService.Tokens().Verifier(),
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
	})
	mux.Handle("/recordings", recordingHandler)
	mux.Handle("/recordings/live", recordingHandler)
	mux.Handle("/reports", recordingHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteError(w, http.StatusNotFound, "not found")
	})

	rateLimiter := commonhttp.NewStrictRateLimiter()
	handler := rateLimiter.Middleware(commonhttp.BuildBaseHandler(serviceName, log, mux))

	server := srv.NewServer(srv.DefaultServerConfig(cfg.HTTPPort), handler)

	hooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("%s: stopping background workers", serviceName)
			rateLimiter.Stop()
			cancelBackground()
			return nil
		},
	}

	if err := srv.Run(ctx, server, log, serviceName, hooks); err != nil {
		log.Fatalf("%v", err)
	}
}

// reportSource lets the report builder be created before the recording
// service it reads from.
type reportSource struct {
	*recordingservice.RecordingService
}
