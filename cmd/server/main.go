// Package main is the entry point for the printq API server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"printq/internal/domain/auth"
	"printq/internal/domain/quotes"
	v1 "printq/internal/infrastructure/http/v1"
	"printq/internal/infrastructure/storage/postgres"
	"printq/internal/infrastructure/storage/postgres/auth_repo"
	"printq/migrations"
	"printq/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting printq server")

	dsn := mustEnv("DATABASE_URL")

	if getEnv("MIGRATE_ON_START", "true") == "true" {
		if err := runMigrations(dsn); err != nil {
			log.Fatalw("migrations failed", "error", err)
		}
		log.Info("migrations applied")
	}

	// --- Database pool ---
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- JWT service ---
	jwtConfig := auth.DefaultJWTConfig()
	jwtConfig.Secret = mustEnv("JWT_SECRET")
	if ttl := getEnvDuration("JWT_TTL", 0); ttl > 0 {
		jwtConfig.AccessTokenTTL = ttl
	}

	jwtService, err := auth.NewJWTService(jwtConfig)
	if err != nil {
		log.Fatalw("failed to initialize jwt service", "error", err)
	}

	// --- Auth service ---
	userRepo := auth_repo.NewUserRepo(txManager)
	authService := auth.NewService(userRepo, jwtService, auth.DefaultConfig())

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		TxManager:     txManager,
		Logger:        log,
		JWTValidator:  jwtService,
		AuthService:   authService,
		Authenticator: &supervisorAuth{auth: authService},
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// supervisorAuth adapts the auth service to the approval gate's
// authenticator without a domain-level import cycle.
type supervisorAuth struct {
	auth *auth.Service
}

func (a *supervisorAuth) Authenticate(ctx context.Context, email, password string) (*quotes.Supervisor, error) {
	user, err := a.auth.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &quotes.Supervisor{ID: user.ID.String(), Role: user.Role}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
