// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/clock"
	"github.com/Shivanand-hulikatti/event-booking/internal/config"
	"github.com/Shivanand-hulikatti/event-booking/internal/database"
	"github.com/Shivanand-hulikatti/event-booking/internal/handler"
	"github.com/Shivanand-hulikatti/event-booking/internal/lib/jwt"
	"github.com/Shivanand-hulikatti/event-booking/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/event-booking/internal/metrics"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-booking/internal/service"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		migrateOnly bool
		migrateDown bool
		issueToken  string
	)

	flagSet := pflag.NewFlagSet("event-booking", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flagSet.BoolVar(&migrateOnly, "migrate", false, "apply database migrations and exit")
	flagSet.BoolVar(&migrateDown, "migrate-down", false, "roll back all database migrations and exit")
	flagSet.StringVar(&issueToken, "issue-token", "", "print a bearer token for the given holder id and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if issueToken != "" {
		token, err := jwt.NewToken(issueToken, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	log := sl.New(cfg.Env)
	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("store", cfg.Store),
		slog.String("strategy", cfg.Booking.Strategy),
	)

	switch {
	case migrateDown:
		return database.MigrateDown(cfg.Database.DSN(), log)
	case migrateOnly:
		return database.Migrate(cfg.Database.DSN(), log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────
	var (
		events       service.EventStore
		reservations service.ReservationStore
		ledger       service.Ledger
	)
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.New(memory.WithLockTimeout(cfg.Booking.LockTimeout))
		events, reservations, ledger = store, store, store
	default:
		if err := database.Migrate(cfg.Database.DSN(), log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		events = repository.NewEventRepository(pool)
		reservations = repository.NewReservationRepository(pool)
		ledger = repository.NewLedger(pool,
			repository.WithStrategy(repository.Strategy(cfg.Booking.Strategy)),
			repository.WithLockTimeout(cfg.Booking.LockTimeout),
			repository.WithMaxRetries(cfg.Booking.MaxRetries),
		)
	}

	// ── 2. Services and router ──────────────────────────────────────────
	m := metrics.New()
	clk := clock.NewSystem()
	eventSvc := service.NewEventService(events, reservations, clk)
	bookingSvc := service.NewBookingService(log, ledger, clk, m)

	router := handler.NewRouter(handler.RouterConfig{
		Log:            log,
		Events:         eventSvc,
		Booking:        bookingSvc,
		Requests:       m,
		Metrics:        m.Handler(),
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	// ── 3. Serve until signalled ────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
