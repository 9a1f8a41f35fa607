package main

import (
	"context"
	"errors"
	"fmt"
	"library-system/internal/api"
	"library-system/internal/batch"
	"library-system/internal/config"
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/loan"
	"library-system/internal/domain/member"
	"library-system/internal/domain/report"
	"library-system/internal/event"
	"library-system/internal/event/loanevent"
	"library-system/internal/infrastructure/database/postgres"
	"library-system/internal/infrastructure/logging"
	"library-system/internal/infrastructure/tracing"
	"library-system/internal/notification"
	"library-system/internal/pkg/clock"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const defaultReminderSchedule = "*/1 * * * *"

// @title Library System API
// @version 1.0
// @description Catalog, membership and loan management for a lending library.
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	shutdownTracing := initializeTracing(cfg, logger)
	defer shutdownTracing()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	app := initializeServices(cfg, dbPool, logger)
	defer app.close()

	reminderJob := batch.NewOverdueReminderJob(app.loanRepo, app.notifier, app.clock, cfg.Batch.OverdueReminderConcurrency, logger)
	cronScheduler := startBatchJobs(cfg, logger, reminderJob)

	router, stopRouter := api.SetupRouter(app.services, cfg, logger)
	defer stopRouter()

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeTracing(cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := tracing.Setup(context.Background(), cfg.Tracing, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing, continuing without it", "error", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("Tracer provider shutdown failed", "error", err)
		}
	}
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if cfg.Database.Migrate {
		if err := postgres.Migrate(context.Background(), dbPool, logger); err != nil {
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

// application holds the wired components main needs after start-up.
type application struct {
	services api.Services
	loanRepo *postgres.LoanRepository
	notifier *notification.Notifier
	clock    clock.Clock
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func initializeServices(cfg *config.Config, dbPool *pgxpool.Pool, logger *slog.Logger) *application {
	logger.Info("Initializing application components...")
	app := &application{clock: clock.System()}

	authorRepo := postgres.NewAuthorRepository(dbPool, logger)
	bookRepo := postgres.NewBookRepository(dbPool, logger)
	userRepo := postgres.NewUserRepository(dbPool, logger)
	memberRepo := postgres.NewMemberRepository(dbPool, logger)
	app.loanRepo = postgres.NewLoanRepository(dbPool, logger)
	reportRepo := postgres.NewReportRepository(dbPool, logger)

	mailer, err := notification.NewMailer(cfg.Mail, logger)
	if err != nil {
		logger.Error("Failed to initialize mailer", "error", err)
		os.Exit(1)
	}
	app.notifier = notification.NewNotifier(mailer, cfg.Mail.From, logger)

	confirmations := loanevent.NewHandler(app.loanRepo, app.notifier, logger)
	publisher := initializePublisher(cfg, confirmations, app, logger)

	app.services = api.Services{
		Catalog: catalog.NewCatalogService(authorRepo, bookRepo, logger),
		Members: member.NewMemberService(userRepo, memberRepo, logger),
		Loans:   loan.NewLoanService(app.loanRepo, publisher, app.clock, cfg.Loan.PeriodDays, logger),
		Reports: report.NewReportService(reportRepo, logger),
		DB:      dbPool,
	}
	return app
}

// initializePublisher routes loan.created events through RabbitMQ when it is
// enabled and falls back to handling them in-process otherwise.
func initializePublisher(cfg *config.Config, confirmations *loanevent.Handler, app *application, logger *slog.Logger) event.EventPublisher {
	direct := func() event.EventPublisher {
		dispatcher := event.NewDirectDispatcher(confirmations, logger)
		app.closers = append(app.closers, dispatcher.Wait)
		return dispatcher
	}
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, loan confirmations are sent in-process")
		return direct()
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, falling back to in-process delivery", "error", err)
		return direct()
	}
	app.closers = append(app.closers, func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ connection", "error", err)
		}
	})

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize RabbitMQ publisher, falling back to in-process delivery", "error", err)
		return direct()
	}

	consumer, err := loanevent.NewConsumer(conn, cfg.RabbitMQ.ExchangeName, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.ConsumerTag, confirmations.HandleDelivery, logger)
	if err != nil {
		logger.Error("Failed to initialize loan event consumer", "error", err)
		os.Exit(1)
	}
	if err := consumer.Start(context.Background()); err != nil {
		logger.Error("Failed to start loan event consumer", "error", err)
		os.Exit(1)
	}
	app.closers = append(app.closers, consumer.Stop)
	return publisher
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

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

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

	logger.Info("Application shutdown process complete.")
}

// reminderRunner is the part of the overdue reminder job the scheduler drives.
type reminderRunner interface {
	Run(ctx context.Context) error
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, reminderJob reminderRunner) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.OverdueReminderSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultReminderSchedule
		logger.Warn("Overdue reminder schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.OverdueReminderTimeout
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}

	// SkipIfStillRunning keeps two scans from mailing the same loan.
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "OverdueReminder")
		jobLogger.Info("Cron triggered: Running overdue reminder job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := reminderJob.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue reminder job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Overdue reminder job finished successfully.")
		}
	}))

	jobID, err := c.AddJob(scheduleSpec, job)
	if err != nil {
		logger.Error("Failed to schedule overdue reminder job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue reminder job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}
