package main

import (
	"collab-lab/auth"
	"collab-lab/infrastructure/api"
	"collab-lab/infrastructure/ws"
	"collab-lab/internal"
	"collab-lab/moderation"
	"collab-lab/observability"
	"collab-lab/repositories"
	"collab-lab/repositories/postgres"
	"collab-lab/runtime"
	"collab-lab/runtime/workers"
	"collab-lab/services"
	"collab-lab/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	debugPort       = 8081
	debugEndpoint   = "/inspect"
	shutdownTimeout = 10 * time.Second
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal server error.
// Deferred cleanups (stores, index) run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine: the environment alone may be enough
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (chat log, profiles, full text index)
	storage, err := openStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer storage.close()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()
	index := repositories.NewMessageIndex(blugeWriter, logger)

	moderator, err := buildModerator(config, logger)
	if err != nil {
		return exitConfig, err
	}

	// 3. Live state, event loop & supervision
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(logger, registry, metrics)
	messageLog := sink.NewMessageLog(logger, storage.messages, index, moderator)
	gateway := runtime.NewGateway(logger, registry, dispatcher, messageLog, metrics,
		config.BufferSize, config.AppendTimeout)

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		gateway,
		workers.NewHeartbeatWorker(logger, registry, metrics, config.MetricInterval),
		workers.NewChannelCapacityWorker(logger, []workers.NamedChannel{{Name: "gateway", Channel: gateway.Inbox()}},
			metrics, config.MetricInterval),
	)
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(ctx)
	}()

	// 4. HTTP & WebSocket
	var tokens *auth.TokenValidator
	if config.AuthSecret != "" {
		tokens = auth.NewTokenValidator(config.AuthSecret)
	}
	socket := ws.NewServer(logger, gateway, tokens, ws.Config{
		ConnectionBufferSize: config.ConnectionBufferSize,
		HeartbeatInterval:    config.HeartbeatInterval,
		PongTimeout:          config.PongTimeout,
		WriteTimeout:         config.WriteTimeout,
		AllowedOrigins:       config.Origins(),
	})
	service := services.NewCollaborationService(registry, storage.messages, storage.users, index, config.SearchLimit)

	if !logger.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           api.NewRouter(logger, service, socket.Handle, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "storage", config.StorageDriver,
			"moderation", moderator != nil, "auth", tokens != nil, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errChan:
		code = exitRuntime
	}

	// 6. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP server shutdown failed", "error", shutdownErr)
	}
	// Cancelling the root context stops every supervised worker
	stop()
	<-supervised
	logger.Info("Program stopped cleanly")

	return code, err
}

type store struct {
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	close    func()
}

func openStore(ctx context.Context, config internal.Config, logger *slog.Logger) (store, error) {
	switch config.StorageDriver {
	case internal.DriverPostgres:
		db, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return store{}, err
		}
		if err := postgres.Migrate(db, logger); err != nil {
			_ = db.Close()
			return store{}, err
		}
		pg := postgres.NewStore(db, logger, config.LimitMessages)
		return store{messages: pg, users: pg, close: func() {
			logger.Info("Closing Postgres...")
			_ = db.Close()
		}}, nil
	default:
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return store{}, fmt.Errorf("database opening failed: %w", err)
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			url := fmt.Sprintf("http://localhost:%d%s?prefix=%s", debugPort, debugEndpoint, repositories.MessagePrefix)
			logger.Info("Debug Badger inspector available", "url", url)
			database.StartDebugServer(db, debugPort, debugEndpoint, MessageMapper)
		}
		return store{
			messages: repositories.NewMessageRepository(db, logger, config.LimitMessages),
			users:    repositories.NewUserRepository(db),
			close: func() {
				// Releases the directory lock and flushes buffers
				logger.Info("Closing BadgerDB...")
				_ = db.Close()
			},
		}, nil
	}
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// buildModerator returns nil when moderation is disabled.
func buildModerator(config internal.Config, logger *slog.Logger) (*moderation.Moderator, error) {
	if !config.EnableModeration {
		return nil, nil
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := runtime.NewCensoredLoader(runtime.CensoredFS).LoadAll(runtime.CensoredDir)
	if err != nil {
		return nil, fmt.Errorf("loading censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(data.Words, charReplacement, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return &moderator, nil
}

// MessageMapper renders a chat message of the badger log in the debug inspector.
func MessageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	if !strings.HasPrefix(key, repositories.MessagePrefix) {
		return row
	}

	message, err := repositories.DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = strings.ToUpper(string(message.Kind))
	row.Detail = fmt.Sprintf("%s: %s", message.User.Username, message.Message)
	return row
}
