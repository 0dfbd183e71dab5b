package main

import (
	"context"
	"credit-ledger/internal/api"
	"credit-ledger/internal/api/middleware"
	"credit-ledger/internal/batch"
	"credit-ledger/internal/config"
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/event"
	"credit-ledger/internal/infrastructure/credithistory"
	"credit-ledger/internal/infrastructure/database/postgres"
	"credit-ledger/internal/infrastructure/logging"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// @title Credit Ledger API
// @version 1.0
// @description Borrower onboarding, credit-line loans, repayments and the daily interest and billing cycle.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	policy, err := loanPolicy(cfg.Loan)
	if err != nil {
		logger.Error("Invalid loan policy configuration", "error", err)
		os.Exit(1)
	}

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	redisClient := initializeRedisClient(cfg, logger)
	rabbitConn := initializeRabbitMQ(cfg, logger)
	publisher := initializePublisher(cfg, rabbitConn, logger)
	history := initializeHistorySource(cfg, redisClient, logger)

	borrowerService, loanService := initializeServices(dbPool, history, publisher, policy, cfg, logger)
	dailyJob := batch.NewDailyLedgerJob(loanService, cfg.Batch.Workers, cfg.Batch.DailyCycleTimeout, logger)

	cronScheduler := startBatchJobs(cfg, logger, dailyJob)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger)
	router := api.SetupRouter(api.Services{
		Borrowers:  borrowerService,
		Loans:      loanService,
		DailyCycle: dailyJob,
	}, rateLimiter, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitConn, redisClient, shutdownChan, serverErrors, logger)
	rateLimiter.Stop()
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

// loanPolicy converts the configured product limits, falling back to the
// built-in policy for any value left empty.
func loanPolicy(cfg config.LoanConfig) (loan.Policy, error) {
	p := loan.DefaultPolicy()

	decimals := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"maxAmount", cfg.MaxAmount, &p.MaxAmount},
		{"minAnnualRate", cfg.MinAnnualRate, &p.MinAnnualRate},
		{"minAnnualIncome", cfg.MinAnnualIncome, &p.MinAnnualIncome},
		{"maxEMIIncomeRatio", cfg.MaxEMIIncomeRatio, &p.MaxEMIIncomeRatio},
		{"minMonthlyInterest", cfg.MinMonthlyInterest, &p.MinMonthlyInterest},
		{"principalPortionRate", cfg.PrincipalPortionRate, &p.PrincipalPortionRate},
	}
	for _, d := range decimals {
		if d.value == "" {
			continue
		}
		v, err := decimal.NewFromString(d.value)
		if err != nil {
			return loan.Policy{}, fmt.Errorf("loan.%s: %w", d.name, err)
		}
		if v.IsNegative() {
			return loan.Policy{}, fmt.Errorf("loan.%s must not be negative", d.name)
		}
		*d.dst = v
	}

	if cfg.MinCreditScore > 0 {
		p.MinCreditScore = cfg.MinCreditScore
	}
	if cfg.InstallmentStepDays > 0 {
		p.InstallmentStepDays = cfg.InstallmentStepDays
	}
	if cfg.BillingCycleDays > 0 {
		p.BillingCycleDays = cfg.BillingCycleDays
	}
	if cfg.BillDueDays > 0 {
		p.BillDueDays = cfg.BillDueDays
	}
	return p, nil
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if cfg.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := postgres.Migrate(ctx, dbPool, logger); err != nil {
			logger.Error("Failed to apply database migrations", "error", err)
			dbPool.Close()
			os.Exit(1)
		}
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled, credit history lookups will not be cached.")
		return nil
	}
	logger.Info("Initializing Redis client...", "addr", cfg.Redis.Addr)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Warn("Redis unreachable, continuing without history cache", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		return nil
	}

	logger.Info("Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		logger.Info("Redis client was not initialized, skipping close.")
		return
	}
	logger.Info("Closing Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Redis client connection closed.")
	}
}

func initializeRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, ledger events will only be logged.")
		return nil
	}
	logger.Info("Connecting to RabbitMQ...", "host", cfg.RabbitMQ.Host, "port", cfg.RabbitMQ.Port)
	conn, err := amqp.Dial(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ, falling back to log publisher", slog.Any("error", err))
		return nil
	}
	logger.Info("RabbitMQ connection established.")
	return conn
}

func initializePublisher(cfg *config.Config, conn *amqp.Connection, logger *slog.Logger) event.EventPublisher {
	if conn == nil {
		return event.NewLogPublisher(logger)
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to set up RabbitMQ publisher, falling back to log publisher", slog.Any("error", err))
		return event.NewLogPublisher(logger)
	}
	return publisher
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn != nil && !rabbitConn.IsClosed() {
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	} else if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
	} else {
		logger.Info("RabbitMQ connection already closed, skipping close.")
	}
}

func initializeHistorySource(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) borrower.HistorySource {
	var source borrower.HistorySource = credithistory.NewCSVSource(cfg.Credit.TransactionsCSVPath, logger)
	if redisClient != nil {
		source = credithistory.NewCachedSource(source, redisClient, cfg.Redis.TTL, logger)
	}
	return source
}

func initializeServices(dbPool *pgxpool.Pool, history borrower.HistorySource, publisher event.EventPublisher, policy loan.Policy,
	cfg *config.Config, logger *slog.Logger) (borrower.Service, loan.LoanService) {
	logger.Info("Initializing application components...")
	borrowerRepo := postgres.NewBorrowerRepository(dbPool, logger)
	loanRepo := postgres.NewLoanRepository(dbPool, logger)

	borrowerService := borrower.NewBorrowerService(borrowerRepo, history, cfg.Credit.LookupTimeout, publisher, logger)
	return borrowerService, loan.NewLoanService(loanRepo, borrowerService, policy, publisher, logger)
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, dailyJob cron.Job) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	scheduleSpec := cfg.Batch.DailyCycleSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 1 * * *"
		logger.Warn("Daily ledger cycle schedule not configured, using default", "schedule", scheduleSpec)
	}

	jobID, err := c.AddJob(scheduleSpec, dailyJob)
	if err != nil {
		logger.Error("Failed to schedule daily ledger cycle", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled daily ledger cycle", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
