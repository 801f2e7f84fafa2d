package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/talkinator/internal/adapter/cache"
	"github.com/seu-repo/talkinator/internal/adapter/eventsocket"
	"github.com/seu-repo/talkinator/internal/adapter/guessapi"
	"github.com/seu-repo/talkinator/internal/adapter/http/fiber/server"
	"github.com/seu-repo/talkinator/internal/adapter/queue"
	"github.com/seu-repo/talkinator/internal/adapter/storage/postgres"
	wsAdapter "github.com/seu-repo/talkinator/internal/adapter/websocket"
	"github.com/seu-repo/talkinator/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/talkinator/internal/observability/telemetry"
	"github.com/seu-repo/talkinator/internal/ports"
	"github.com/seu-repo/talkinator/internal/service/call"
	"github.com/seu-repo/talkinator/internal/service/events"
	"github.com/seu-repo/talkinator/internal/service/guess"
	"github.com/seu-repo/talkinator/internal/service/health"
	"github.com/seu-repo/talkinator/internal/service/history"
	"github.com/seu-repo/talkinator/pkg/config"
)

var maxCallsFlag = flag.Int("max-calls", 0, "Maximum concurrent calls (overrides event_socket.max_calls)")

// callMonitor joins admission capacity with the live call registry
type callMonitor struct {
	*call.AdmissionController
	*events.Publisher
}

func main() {
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *maxCallsFlag > 0 {
		cfg.EventSocket.MaxCalls = *maxCallsFlag
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting talkinator",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.Int("max_calls", cfg.EventSocket.MaxCalls),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(
			cfg.OpenTelemetry.ServiceName,
			cfg.App.Version,
			cfg.OpenTelemetry.Jaeger.Endpoint,
			cfg.OpenTelemetry.Jaeger.SamplerParam,
		)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 4. Call history cache (Redis, in-memory fallback)
	var historyCache ports.Cache
	if cfg.Redis.URL != "" {
		historyCache, err = cache.NewRedisCache(cfg.Redis.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		historyCache = cache.NewLocalCache(cfg.History.CleanupInterval, logger)
	}
	defer historyCache.Close()
	callHistory := history.NewService(historyCache, cfg.History.TTL, logger)

	// Optional PostgreSQL archive behind the cache
	var archive *postgres.CallRecordRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer postgres.Close(db)
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to migrate call archive", zap.Error(err))
		}
		archive = postgres.NewCallRecordRepository(db, logger)
		callHistory.WithArchive(archive)
	}

	// 5. Call event fan-out (broker + websocket hub)
	messageQueue, err := queue.Open(cfg.Events.Driver, cfg.Events.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to event broker", zap.Error(err))
	}
	defer messageQueue.Close()

	wsHub := wsAdapter.NewHub(logger)
	go wsHub.Run(ctx)
	publisher := events.NewPublisher(messageQueue, wsHub, logger)

	// 6. Remote guessing service behind a circuit breaker
	httpClient := circuitbreaker.NewHTTPClientWithSettings(cfg.Guess.Timeout, circuitbreaker.Settings{
		Name:         "guess-api",
		MaxRequests:  cfg.CircuitBreaker.MaxRequests,
		Interval:     cfg.CircuitBreaker.Interval,
		Timeout:      cfg.CircuitBreaker.Timeout,
		FailureRatio: cfg.CircuitBreaker.FailureThreshold,
		MinRequests:  cfg.CircuitBreaker.MinRequests,
	}, logger)
	guessClient := guessapi.NewClient(guessapi.Config{
		BaseURL:      cfg.Guess.BaseURL,
		HostTemplate: cfg.Guess.HostTemplate,
	}, httpClient, logger)
	sessions := func() ports.GuessingSession {
		return guess.NewSession(guessClient, logger)
	}

	// 7. Call orchestration
	admission := call.NewAdmissionController(cfg.EventSocket.MaxCalls, logger)
	orchestrator := call.NewOrchestrator(admission, sessions, publisher, callHistory, call.Config{
		Voice:    cfg.Speech.Voice,
		Language: cfg.Guess.Language,
		Recognition: call.RecognitionConfig{
			Engine:        cfg.Speech.Engine,
			Grammars:      cfg.Speech.Grammars,
			MinConfidence: cfg.Speech.MinConfidence,
		},
		NameGrammar:        cfg.Speech.NameGrammar,
		SilenceParams:      cfg.Speech.SilenceParams,
		PromptTimeout:      cfg.Speech.PromptTimeout,
		RecognitionTimeout: cfg.Speech.RecognitionTimeout,
	}, logger)

	// 8. Health checks
	healthService := health.NewService(cfg.App.Version, logger)
	healthService.RegisterChecker("cache", health.PingChecker(historyCache, logger))
	if archive != nil {
		healthService.RegisterChecker("database", health.PingChecker(archive, logger))
	}
	healthService.RegisterChecker("calls", health.CapacityChecker(func() (int, int) {
		st := admission.Status()
		return st.Active, st.Max
	}))
	healthService.RegisterChecker("guess_api", health.BreakerChecker(httpClient.State))

	// 9. Admin HTTP server
	app := server.NewApp(server.Deps{
		Config:  *cfg,
		Health:  healthService,
		Monitor: callMonitor{admission, publisher},
		History: callHistory,
		Hub:     wsHub,
	}, logger)
	if cfg.HTTP.Enabled {
		go func() {
			logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
			if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
				logger.Error("HTTP Server failed", zap.Error(err))
				stop()
			}
		}()
	}

	// 10. Event socket server (FreeSWITCH outbound connections)
	eslAddr := net.JoinHostPort(cfg.EventSocket.Host, strconv.Itoa(cfg.EventSocket.Port))
	eslServer := eventsocket.NewServer(eslAddr, orchestrator, logger)
	if err := eslServer.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event socket server failed", zap.Error(err))
	}

	// 11. Graceful Shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	admitted, released := admission.Totals()
	logger.Info("Server exited gracefully",
		zap.Uint64("calls_admitted", admitted),
		zap.Uint64("calls_released", released),
	)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
