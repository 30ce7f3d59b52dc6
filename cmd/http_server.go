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

	"github.com/waynecorp/project-registry/internal"
	"github.com/waynecorp/project-registry/internal/auth"
	authSqlite "github.com/waynecorp/project-registry/internal/auth/sqlite"
	"github.com/waynecorp/project-registry/internal/core/events"
	"github.com/waynecorp/project-registry/internal/project"
	projectSqlite "github.com/waynecorp/project-registry/internal/project/sqlite"
	"github.com/waynecorp/project-registry/internal/storage"
	"github.com/waynecorp/project-registry/internal/transport"
	"github.com/waynecorp/project-registry/internal/transport/rest"
	"github.com/waynecorp/project-registry/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
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
	DB     *gorm.DB
	SQLDB  *sqlx.DB
	Store  *storage.Store
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	// Create tables and seed rows before accepting traffic. The router
	// carries the same bootstrap as middleware, so this is belt and
	// braces for the startup path only.
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	if err := deps.Store.Initialize(initCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize storage: %v\n", err)
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
		if err := deps.SQLDB.Close(); err != nil {
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

	baseHandler := transport.NewBaseHandler(lg)

	tokens := auth.NewJWTTokenGenerator(cfg.Security.SessionSecret, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(authSqlite.NewRepository(deps.DB), tokens, lg)
	authHandler := auth.NewHandler(baseHandler, authService)

	bus := events.NewEventBus(lg)
	events.RegisterAuditLogger(bus, lg)

	projectService := project.NewService(projectSqlite.NewProjectRepository(deps.DB), authService, bus, lg)
	projectHandler := project.NewHandler(baseHandler, projectService, authService)

	healthHandler := rest.NewHealthHandler(deps.SQLDB, deps.Store)

	rest.RegisterAllRoutes(deps.Router, deps.Store, healthHandler, authHandler, projectHandler, cfg.Server.AllowedOrigins, lg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, sqlDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := storage.New(db, config.Security.BCryptCost, lg)
	router := chi.NewRouter()

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		SQLDB:  sqlDB,
		Store:  store,
		Router: router,
	}, nil
}

// initDB opens the configured engine through gorm and hands the same
// connection pool to sqlx for the raw health queries.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sqlx.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Source)
	default:
		dialector = sqlite.Open(cfg.Source)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access db pool: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// verify connection; close underlying pool on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, sqlx.NewDb(sqlDB, sqlxDriverName(cfg.Driver)), nil
}

func sqlxDriverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return "sqlite3"
}
