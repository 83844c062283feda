package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"leaveflow/internal/domain/approval"
	"leaveflow/internal/domain/audit"
	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/domain/delegation"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/events"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/platform/config"
	"leaveflow/internal/platform/jobs"
	"leaveflow/internal/platform/logger"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/platform/seed"
	audithandler "leaveflow/internal/transport/http/handlers/audit"
	calendarhandler "leaveflow/internal/transport/http/handlers/calendar"
	delegationhandler "leaveflow/internal/transport/http/handlers/delegation"
	directoryhandler "leaveflow/internal/transport/http/handlers/directory"
	leavehandler "leaveflow/internal/transport/http/handlers/leave"
	notificationshandler "leaveflow/internal/transport/http/handlers/notifications"
	"leaveflow/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Jobs    *jobs.Service

	Directory     *directory.Directory
	Calendar      *calendar.Calendar
	Ledger        *balance.Ledger
	Delegations   *delegation.Registry
	Leave         *leave.Service
	Notifications *notifications.Service
	Audit         *audit.Service

	stopJobs context.CancelFunc
	closers  []func() error
}

type Option func(*options)

type options struct {
	now       func() time.Time
	logger    *zap.Logger
	publisher events.Publisher
	seed      *seed.File
}

// WithClock fixes the clock every component reads.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPublisher replaces the publisher chosen from KAFKA_BROKERS.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithSeed applies f instead of reading SEED_FILE.
func WithSeed(f seed.File) Option {
	return func(o *options) { o.seed = &f }
}

// New wires every component. The returned App owns a running job worker;
// call Close to drain it.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l, err := logger.New(cfg.Environment, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		o.logger = l
	}
	log := o.logger

	seedFile := o.seed
	if seedFile == nil && cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		seedFile = &f
	}

	weekend := cfg.WeekendDays
	if seedFile != nil && len(seedFile.WeekendDays) > 0 {
		weekend = seedFile.WeekendDays
	}
	cal, err := calendar.New(weekend, log)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}

	app := &App{
		Config:    cfg,
		Logger:    log,
		Directory: directory.New(log),
		Calendar:  cal,
		Ledger:    balance.NewLedger(cfg.ShortLeaveHoursPerDay, log),
		Audit:     audit.New(o.now),
	}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}
	app.Delegations = delegation.NewRegistry(app.Directory, o.now, log)
	app.Notifications = notifications.New(notifications.NewStore(o.now), o.now, log)

	if seedFile != nil {
		if err := seed.Apply(*seedFile, seed.Targets{
			Directory:   app.Directory,
			Ledger:      app.Ledger,
			Calendar:    app.Calendar,
			Delegations: app.Delegations,
		}, log); err != nil {
			return nil, err
		}
	}

	publisher := o.publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
		if len(cfg.KafkaBrokers) > 0 {
			kp := kafka.NewPublisher(kafka.NewWriter(cfg.KafkaBrokers), cfg.KafkaTopic, log)
			app.closers = append(app.closers, kp.Close)
			publisher = kp
			log.Info("publishing workflow events to kafka",
				zap.Strings("brokers", cfg.KafkaBrokers),
				zap.String("topic", cfg.KafkaTopic),
			)
		}
	}

	app.Jobs = jobs.New(0, log)
	jobsCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	app.stopJobs = stop
	app.Jobs.Start(jobsCtx)

	app.Leave = leave.NewService(leave.Options{
		Users:       app.Directory,
		Calendar:    app.Calendar,
		Ledger:      app.Ledger,
		Delegations: app.Delegations,
		Router:      approval.NewEngine(app.Directory, app.Delegations, log),
		Publisher:   publisher,
		Notifier:    app.Notifications,
		Jobs:        app.Jobs,
		Metrics:     app.Metrics,
		Now:         o.now,
		Logger:      log,
	})

	app.Router = app.routes(o.now)
	return app, nil
}

func (a *App) routes(now func() time.Time) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Logger, a.Metrics))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Actor(a.Directory))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(a.Logger)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if a.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	idem := middleware.NewIdempotencyStore(24*time.Hour, now)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MutationRateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(a.Logger)))

		leavehandler.NewHandler(a.Leave, a.Ledger, a.Audit, idem, a.Logger).RegisterRoutes(r)
		delegationhandler.NewHandler(a.Delegations, a.Notifications, a.Audit, a.Logger).RegisterRoutes(r)
		directoryhandler.NewHandler(a.Directory, a.Ledger, a.Audit, a.Logger).RegisterRoutes(r)
		calendarhandler.NewHandler(a.Calendar, a.Audit, a.Logger).RegisterRoutes(r)
		notificationshandler.NewHandler(a.Notifications, a.Logger).RegisterRoutes(r)
		audithandler.NewHandler(a.Audit, a.Logger).RegisterRoutes(r)
	})
	return router
}

// Close stops the job worker after it has drained and closes the publisher.
func (a *App) Close() error {
	if a.stopJobs != nil {
		a.stopJobs()
		a.Jobs.Wait()
	}
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("leaveflow listening", zap.String("addr", cfg.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
