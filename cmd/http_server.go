package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/assistant"
	"github.com/roamplan/roamplan/internal/core/events"
	"github.com/roamplan/roamplan/internal/expense"
	"github.com/roamplan/roamplan/internal/identity"
	identityPostgres "github.com/roamplan/roamplan/internal/identity/postgres"
	"github.com/roamplan/roamplan/internal/transport/rest"
	"github.com/roamplan/roamplan/internal/transport/swagger"
	"github.com/roamplan/roamplan/internal/trip"
	tripPostgres "github.com/roamplan/roamplan/internal/trip/postgres"
	"github.com/roamplan/roamplan/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Bus    *events.EventBus
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	lg := deps.Logger

	tripRepo := tripPostgres.NewTripRepository(deps.Gorm)
	tripService := trip.NewService(tripRepo, deps.Bus, lg)
	tripHandler := trip.NewHandler(tripService)

	rates := expense.DefaultRates()
	expenseService := expense.NewService(tripRepo, rates, deps.Bus, lg)
	expenseHandler := expense.NewHandler(expenseService)

	guestRepo := identityPostgres.NewGuestRepository(deps.Gorm)
	tokens := identity.NewJWTTokenGenerator(cfg.Security.SessionSecret, cfg.Security.SessionDuration)
	identityService := identity.NewService(guestRepo, tokens, deps.Bus, lg, cfg.Security.BCryptCost)
	identityHandler := identity.NewHandler(identityService)

	assistantClient := assistant.NewClient(assistant.Config{
		BaseURL:        cfg.Assistant.BaseURL,
		APIKey:         cfg.Assistant.APIKey,
		RequestTimeout: cfg.Assistant.RequestTimeout,
		MaxWorkers:     cfg.Assistant.MaxWorkers,
	}, lg)
	assistantHandler := assistant.NewHandler(assistantClient)

	registerAuditSubscribers(deps.Bus, lg)

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		cfg.Server.AllowedOrigins,
		identityHandler,
		tripHandler,
		expenseHandler,
		assistantHandler,
		lg,
	)
}

// registerAuditSubscribers logs every trip mutation through the event bus so
// persistence side effects stay out of the services.
func registerAuditSubscribers(bus *events.EventBus, lg *slog.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		lg.Info("audit",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}

	for _, eventType := range []string{
		events.TripCreated,
		events.TripUpdated,
		events.TripMetadataPatched,
		events.ExpenseListReplaced,
		events.GuestSessionStarted,
		events.GuestIdentityCleared,
	} {
		bus.Subscribe(eventType, audit)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	lg := logger.L()

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := swagger.ValidateSpec("./api/openapi.yml"); err != nil {
		lg.Warn("OpenAPI spec validation failed, swagger UI may misbehave", "error", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
		Bus:    events.NewEventBus(lg),
	}, nil
}

// initDB opens one pgx-backed connection pool and layers GORM on top of it.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: dbConn.DB}), &gorm.Config{})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm over db connection: %w", err)
	}

	return dbConn, gormDB, nil
}
