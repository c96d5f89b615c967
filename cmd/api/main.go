package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cimillas/hut-booking/internal/app"
	"github.com/cimillas/hut-booking/internal/auth"
	"github.com/cimillas/hut-booking/internal/clock"
	"github.com/cimillas/hut-booking/internal/config"
	"github.com/cimillas/hut-booking/internal/domain"
	"github.com/cimillas/hut-booking/internal/logging"
	"github.com/cimillas/hut-booking/internal/notify"
	"github.com/cimillas/hut-booking/internal/storage/postgres"
	transporthttp "github.com/cimillas/hut-booking/internal/transport/http"
	"github.com/cimillas/hut-booking/migrations"
)

func main() {
	cfg, err := config.Load(os.Getenv("HUT_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("api stopped")
	}
	logger.Info("api stopped")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	loc, err := clock.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	tokens, err := auth.NewIssuer(cfg.Auth.TokenSecret)
	if err != nil {
		return err
	}
	directory := app.ReviewerDirectory(cfg.Reviewers.Emails())
	for _, r := range domain.Reviewers {
		if _, ok := directory[r]; !ok {
			logger.WithField("reviewer", r.String()).Warn("no e-mail configured, self-review disabled for this reviewer")
		}
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.WithField("migrations", applied).Info("applied migrations")
	}

	clk := clock.NewSystem()
	policy := cfg.Booking.Policy()
	bookingRepo := postgres.NewBookingRepository(pool)
	bookingSvc := app.NewBookingService(bookingRepo, clk,
		app.WithLocation(loc),
		app.WithPolicy(policy),
		app.WithReviewerDirectory(directory),
	)
	decisionSvc := app.NewDecisionService(bookingRepo, clk,
		app.WithDecisionLocation(loc),
		app.WithDecisionPolicy(policy),
	)
	querySvc := app.NewQueryService(postgres.NewQueryRepository(pool), clk,
		app.WithQueryLocation(loc),
		app.WithListLimits(cfg.Booking.OutstandingLimit, cfg.Booking.HistoryLimit),
	)

	publisher, err := notify.NewPublisher(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Warn("close publisher")
		}
	}()
	relay := notify.NewRelay(postgres.NewOutboxRepository(pool), publisher, logger.WithField("component", "relay"),
		notify.WithInterval(cfg.Notify.PollInterval),
		notify.WithBatchSize(cfg.Notify.BatchSize),
	)

	router := transporthttp.NewRouter(transporthttp.Services{
		Bookings:  bookingSvc,
		Decisions: decisionSvc,
		Queries:   querySvc,
		Tokens:    tokens,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.HTTP.CORSOrigins, router), logger)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(stopCtx)

	g.Go(func() error {
		logger.WithField("addr", server.Addr).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
