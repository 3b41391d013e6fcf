/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance portal server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize structured logger
  3. Initialize SQLite store and balance ledger
  4. Wire leave, regularization and attendance services
  5. Optionally load a demo scenario
  6. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port      HTTP server port (APP_PORT, default 8080)
  -db        SQLite database path (DB_PATH, default attendance.db)
             Use ":memory:" for in-memory database
  -scenario  Demo scenario to load at startup (small-team, night-shift)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Development with demo data
  ./server -db=":memory:" -scenario=small-team

  # Production
  APP_ENV=production JWT_SECRET=... ./server -db="/var/lib/attendance/attendance.db"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lavkush9051/attendance-app/api"
	"github.com/lavkush9051/attendance-app/attendance"
	"github.com/lavkush9051/attendance-app/config"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/lavkush9051/attendance-app/regularization"
	"github.com/lavkush9051/attendance-app/store/sqlite"
)

const devJWTSecret = "development-only-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	scenario := flag.String("scenario", "", "Demo scenario to load (small-team, night-shift)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(cfg.App.LogLevel),
		ReplaceAttr: httplog.SchemaECS.Concise(cfg.IsDevelopment()).ReplaceAttr,
	})).With(slog.String("app", "attendance-app"), slog.String("env", cfg.App.Env))
	slog.SetDefault(logger)

	if err := run(cfg, *port, *dbPath, *scenario, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, port int, dbPath, scenario string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	loc := cfg.App.Location
	clock := generic.SystemClock{Location: loc}
	ledger := generic.NewBalanceLedger(store, clock)
	audit := store.AuditLog()

	// Services
	leaveSvc := leave.NewService(ledger, store, store, leave.Config{
		BackdateWindowDays: cfg.Leave.BackdateWindowDays,
		SecondLevel:        leave.MinDaysForSecondLevel(cfg.Leave.SecondLevelMinDays),
		CancelCutoff:       cfg.Leave.CancelCutoff,
		Location:           loc,
		Clock:              clock,
		Audit:              audit,
		Logger:             logger,
	})
	regSvc := regularization.NewService(store.Regularizations(), store, store, regularization.Config{
		Escalation: cfg.Attendance.RegularizationEscalation,
		Clock:      clock,
		Location:   loc,
		Audit:      audit,
		Logger:     logger,
	})
	attSvc := attendance.NewService(store, store, store, store, attendance.Config{
		Clock:    clock,
		Location: loc,
		Logger:   logger,
	})
	recorder := attendance.NewRecorder(store, store, attendance.RecorderConfig{
		Fence: attendance.Geofence{
			Latitude:     cfg.Attendance.OfficeLatitude,
			Longitude:    cfg.Attendance.OfficeLongitude,
			RadiusMeters: cfg.Attendance.GeofenceRadiusMeters,
		},
		Clock:    clock,
		Location: loc,
		Logger:   logger,
	})

	if scenario != "" {
		if err := api.LoadScenario(ctx, scenario, store, ledger); err != nil {
			return fmt.Errorf("failed to load scenario %s: %w", scenario, err)
		}
		logger.Info("scenario loaded", "scenario", scenario)
	}

	secret := cfg.JWT.Secret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}

	handler := api.NewHandler(api.Deps{
		Leave:          leaveSvc,
		Regularization: regSvc,
		Attendance:     attSvc,
		Recorder:       recorder,
		Ledger:         ledger,
		Directory:      store,
		Audit:          audit,
		Clock:          clock,
		Location:       loc,
		Logger:         logger,
		Ready:          store.Ping,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		JWTAuth:     jwtauth.New("HS256", []byte(secret), nil),
		Logger:      logger,
		CORSOrigins: cfg.App.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", dbPath, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
