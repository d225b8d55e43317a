package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/crestbank/corebank/internal/account"
	"github.com/crestbank/corebank/internal/auth"
	"github.com/crestbank/corebank/internal/config"
	"github.com/crestbank/corebank/internal/events"
	"github.com/crestbank/corebank/internal/handler"
	"github.com/crestbank/corebank/internal/journal"
	"github.com/crestbank/corebank/internal/ledger"
	"github.com/crestbank/corebank/internal/middleware"
	"github.com/crestbank/corebank/internal/orchestrator"
	"github.com/crestbank/corebank/internal/ratelimit"
	"github.com/crestbank/corebank/internal/storage"
	"github.com/crestbank/corebank/internal/storage/memory"
	"github.com/crestbank/corebank/internal/storage/postgres"
	"github.com/crestbank/corebank/internal/user"
	"github.com/crestbank/corebank/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(); err != nil {
		return err
	}
	defer logger.Sync()

	// Storage: postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		ledgerStore storage.LedgerStore
		userStore   storage.UserStore
		cardStore   storage.CardStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		if err := runMigrations(db, cfg.MigrationsDir); err != nil {
			return err
		}
		store := postgres.New(db)
		ledgerStore, userStore, cardStore = store, store, store
		logger.Log.Info("using postgres storage")
	} else {
		store := memory.New()
		ledgerStore, userStore, cardStore = store, store, store
		logger.Log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	locker := redsync.New(goredis.NewPool(redisClient))

	publisher, closePublisher := newPublisher(cfg, redisClient)
	defer closePublisher()

	// Auth stack.
	issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL, redisClient)
	verifier := auth.NewVerifier(userStore, issuer, locker)
	resets := auth.NewResetManager(userStore, verifier, []byte(cfg.JWTSecret), cfg.ResetTokenTTL)
	authService := auth.NewService(verifier, issuer, resets, cardStore, ledgerStore, publisher)

	// Money stack.
	ledgerService := ledger.New(ledgerStore, cfg.LedgerMaxRetries)
	journalService := journal.New(ledgerStore)
	limiter := ratelimit.New(redisClient, map[ratelimit.Class]ratelimit.Rule{
		ratelimit.ClassLogin:    {Limit: cfg.LoginRateLimit, Window: cfg.LoginRateWindow},
		ratelimit.ClassReset:    {Limit: cfg.ResetRateLimit, Window: cfg.ResetRateWindow},
		ratelimit.ClassMutation: {Limit: cfg.MutationRateLimit, Window: cfg.MutationRateWindow},
	})
	coordinator := orchestrator.New(ledgerService, journalService, limiter, ledgerStore, publisher, cfg.LedgerTimeout)

	userService := user.NewService(userStore, publisher)
	accountService := account.NewService(ledgerStore, publisher)

	authHandler := handler.NewAuthHandler(authService, limiter)
	userHandler := handler.NewUserHandler(userService)
	accountHandler := handler.NewAccountHandler(accountService)
	txHandler := handler.NewTransactionHandler(coordinator)
	cardHandler := handler.NewCardHandler(authService, limiter)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", authHandler.Login)
		v1.POST("/auth/reset-password/request", authHandler.RequestReset)
		v1.POST("/auth/reset-password/reset", authHandler.ConfirmReset)
		v1.POST("/users", userHandler.Register)
		v1.POST("/cards/validate", cardHandler.Validate)
	}

	authed := router.Group("/v1", middleware.AuthMiddleware(issuer))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/users/me", userHandler.GetMe)
		authed.POST("/accounts", accountHandler.Open)
		authed.GET("/accounts", accountHandler.List)
		authed.GET("/accounts/:accountId/balance", txHandler.Balance)
		authed.POST("/accounts/:accountId/deposit", txHandler.Deposit)
		authed.POST("/accounts/:accountId/withdraw", txHandler.Withdraw)
		authed.GET("/accounts/:accountId/transactions", txHandler.History)
		authed.POST("/transfers", txHandler.Transfer)
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Info("server starting", logger.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runMigrations(db *sql.DB, dir string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func newPublisher(cfg *config.Config, redisClient *redis.Client) (events.Publisher, func()) {
	switch cfg.EventBroker {
	case "kafka":
		p := events.NewKafkaPublisher(cfg.KafkaBrokers)
		return p, func() { _ = p.Close() }
	case "none":
		return nil, func() {}
	default:
		return events.NewStreamPublisher(redisClient), func() {}
	}
}
