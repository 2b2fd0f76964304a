package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/cache"
	"github.com/example/roombooking/internal/config"
	httptransport "github.com/example/roombooking/internal/http"
	"github.com/example/roombooking/internal/logging"
	"github.com/example/roombooking/internal/notify"
	"github.com/example/roombooking/internal/persistence/postgres"
	"github.com/example/roombooking/internal/persistence/sqlite"
)

const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("room booking service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go app.sessions.RunSweeper(sweepCtx, sweepInterval)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room booking API listening", "addr", server.Addr, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// app holds the wired service graph and the resources to release on exit.
type app struct {
	handler  http.Handler
	rooms    *application.RoomService
	bookings *application.BookingService
	sessions *application.SessionRegistry
	closers  []func() error
	logger   *slog.Logger
}

// close waits for in-flight notifications and then releases resources in
// reverse order of acquisition.
func (a *app) close() {
	if a.bookings != nil {
		a.bookings.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	occupancy := newOccupancyCache(ctx, cfg, logger, a)
	notifier := newNotifier(cfg, logger, a)

	a.rooms = application.NewRoomServiceWithLogger(newRoomRepositoryAdapter(store), idGenerator, now, logger)
	a.bookings = application.NewBookingService(application.BookingServiceDeps{
		Store:     newBookingStoreAdapter(store, store, store),
		Notifier:  notifier,
		Occupancy: occupancy,
		Policy: application.BookingPolicy{
			Location:    cfg.Location,
			EmailDomain: cfg.EmailDomain,
			MaxDuration: cfg.MaxDurationHours,
		},
		IDGenerator:    idGenerator,
		TokenGenerator: tokenGenerator,
		Now:            now,
		Logger:         logger,
	})
	a.sessions = application.NewSessionRegistry(a.bookings, idGenerator, now, cfg.SessionIdleTTL, logger)

	admin, err := application.NewAdminAuthenticator(cfg.AdminToken, application.DefaultArgon2idParams, logger)
	if err != nil {
		return nil, err
	}
	if !admin.Enabled() {
		logger.Warn("no admin token configured, room catalog changes are disabled")
	}

	if cfg.SeedRooms {
		seeded, err := a.rooms.SeedRooms(ctx, application.Principal{UserID: "seed", IsAdmin: true}, application.DefaultRooms())
		if err != nil {
			return nil, fmt.Errorf("failed to seed rooms: %w", err)
		}
		logger.Info("room catalog seeded", "rooms", seeded)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:    httptransport.NewRoomHandler(a.rooms, logger),
		Bookings: httptransport.NewBookingHandler(a.bookings, logger),
		Sessions: httptransport.NewSessionHandler(a.sessions, logger),
		Reports:  httptransport.NewReportHandler(a.bookings, logger),
		Admin:    httptransport.RequireAdmin(admin, logger),
	})
	a.handler = httptransport.RequestLogger(logger)(router)
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (bookingStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(cfg.SQLiteDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	}
}

// newOccupancyCache prefers Redis so several instances share occupancy. An
// unreachable Redis is logged and the process-local cache is used instead.
func newOccupancyCache(ctx context.Context, cfg config.Config, logger *slog.Logger, a *app) application.OccupancyCache {
	if cfg.RedisAddr == "" {
		return application.NewMemoryOccupancyCache(cfg.OccupancyTTL, 0, nil)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	occupancy := cache.NewRedisOccupancy(rdb, cfg.OccupancyTTL, "", logger)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := occupancy.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, using in-memory occupancy cache", "addr", cfg.RedisAddr, "error", err)
		_ = rdb.Close()
		return application.NewMemoryOccupancyCache(cfg.OccupancyTTL, 0, nil)
	}
	a.closers = append(a.closers, rdb.Close)
	return occupancy
}

func newNotifier(cfg config.Config, logger *slog.Logger, a *app) application.Notifier {
	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if cfg.EmailRelayURL != "" {
		notifiers = append(notifiers, notify.NewEmailRelay(notify.EmailRelayConfig{
			BaseURL: cfg.EmailRelayURL,
			APIKey:  cfg.EmailRelayAPIKey,
			From:    cfg.EmailFrom,
			Retries: 2,
		}))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, publisher.Close)
		notifiers = append(notifiers, publisher)
	}
	return notifiers
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
