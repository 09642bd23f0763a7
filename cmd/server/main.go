package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"tutor-realtime/auth"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"
	"tutor-realtime/infrastructure/embedded"
	grpcserver "tutor-realtime/infrastructure/grpc/server"
	httpserver "tutor-realtime/infrastructure/http/server"
	"tutor-realtime/infrastructure/postgres"
	"tutor-realtime/internal"
	"tutor-realtime/observability"
	"tutor-realtime/runtime"
	"tutor-realtime/runtime/workers"
	"tutor-realtime/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred closes run before main calls os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	// 2. Store and its listen sessions
	backend, err := openBackend(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing store...", "driver", config.StoreDriver)
		_ = backend.store.Close()
	}()

	// 3. Runtime
	registry := runtime.NewRegistry(logger, config.ConnectionBufferSize, config.PresenceBufferSize)
	subscriptions := runtime.NewSubscriptions()
	router := runtime.NewRouter(logger, registry, subscriptions)
	presence := runtime.NewPresenceTracker(registry)
	hub := runtime.NewHub(logger, registry, subscriptions, presence, backend.store)
	chatService := services.NewChatService(logger, backend.store, hub, router)

	// 4. Notification bridge, its health and the supervised workers
	health := grpcserver.NewHealthServer(logger)
	bridge := workers.NewNotificationBridge(logger, backend.dial,
		workers.DefaultBackoff(config.BridgeMaxBackoff), health.BridgeStateChanged)
	broadcast := workers.NewBroadcastHandler(logger, router)
	bridge.Register(event.MessagesNotification, broadcast)
	bridge.Register(event.ReactionsNotification, broadcast)

	monitoring := observability.NewMonitoringManager(logger, runtimeGauges{
		registry:      registry,
		subscriptions: subscriptions,
		presence:      presence,
		bridge:        bridge,
	}, config.MetricInterval)

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		bridge,
		workers.NewPresenceWorker(logger, registry.PresenceChanges(), router),
		monitoring,
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	errChan := make(chan error, 2)

	// 5. HTTP server (streams, commands, queries, ops)
	api := httpserver.NewServer(logger, hub, chatService, auth.NewTokens(config.JWTSecret),
		func() any { return monitoring.GetLatest() },
		httpserver.Options{
			PingInterval:    config.WSPingInterval,
			PongWait:        config.WSPongWait,
			WriteWait:       config.WSWriteWait,
			ReadLimit:       config.WSReadLimit,
			SSEPingInterval: config.SSEPingInterval,
			ReplyBufferSize: httpserver.DefaultOptions().ReplyBufferSize,
		})
	handler := api.Router()
	if backend.db != nil && logger.Enabled(ctx, slog.LevelDebug) {
		handler.Handle("/debug/badger", internal.InspectHandler(backend.db, nil, "msg:")).Methods(http.MethodGet)
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/debug/badger", config.Port))
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. gRPC health
	healthAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCHealthPort)
	listener, err := net.Listen("tcp", healthAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", healthAddress, err)
	}
	go func() {
		logger.Info("Starting gRPC health server", "address", healthAddress, "service", grpcserver.BridgeService)
		if err := health.Serve(listener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful shutdown
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	health.Stop()
	cancel()
	select {
	case <-supervisorDone:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop in time")
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

// backend is the store plus the way to open a listen session on it.
// db is only set for the embedded driver.
type backend struct {
	store contract.IStore
	dial  contract.ListenerDialer
	db    *badger.DB
}

func openBackend(ctx context.Context, config internal.Config, logger *slog.Logger) (backend, error) {
	switch config.StoreDriver {
	case internal.DriverBadger:
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return backend{}, fmt.Errorf("database opening failed: %w", err)
		}
		notifier := embedded.NewNotifier(logger, config.NotifierBufferSize)
		store := embedded.NewStore(logger, db, notifier)
		if config.MembershipSeedFile != "" {
			memberships, err := embedded.ReadMembershipsFile(config.MembershipSeedFile)
			if err == nil {
				_, err = store.Seed(ctx, memberships)
			}
			if err != nil {
				_ = db.Close()
				return backend{}, err
			}
		}
		return backend{
			store: store,
			dial:  notifier.Dial,
			db:    db,
		}, nil
	default:
		db, err := postgres.Open(ctx, config.DatabaseURL, config.MaxOpenConnections)
		if err != nil {
			return backend{}, fmt.Errorf("database opening failed: %w", err)
		}
		return backend{
			store: postgres.NewRepository(logger, db),
			dial:  postgres.Dialer(config.DatabaseURL),
		}, nil
	}
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

// runtimeGauges feeds the monitoring snapshot.
type runtimeGauges struct {
	registry      *runtime.Registry
	subscriptions *runtime.Subscriptions
	presence      *runtime.PresenceTracker
	bridge        *workers.NotificationBridge
}

func (g runtimeGauges) ConnectionCount() int      { return g.registry.ConnectionCount() }
func (g runtimeGauges) OnlineUserCount() int      { return len(g.registry.OnlineUsers()) }
func (g runtimeGauges) ChannelCount() int         { return g.subscriptions.ChannelCount() }
func (g runtimeGauges) TrackedPresenceCount() int { return g.presence.Len() }
func (g runtimeGauges) BridgeState() string       { return g.bridge.State().String() }
