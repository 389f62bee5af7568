package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/events"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// newLedgerFactory applies the configured defaults to every new session's ledger.
func newLedgerFactory(cfg *config.Config) (session.Factory, error) {
	budget, err := cfg.Budget()
	if err != nil {
		return nil, err
	}
	categories := cfg.DefaultCategories
	return func() *ledger.Ledger {
		return ledger.New(ledger.WithBudget(budget), ledger.WithCategories(categories))
	}, nil
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (events.Publisher, func() error, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, ledger events are discarded")
		return events.NopPublisher{}, func() error { return nil }, nil
	}
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, wrapError("connect event broker", err)
	}
	logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, client.Close, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	factory, err := newLedgerFactory(cfg)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	sessions := session.NewManager(session.Config{
		MaxSessions: cfg.MaxSessions,
		IdleTTL:     cfg.SessionTTL,
	}, factory, logger)

	caches := cache.NewManager(logger)
	caches.Register(sessions.Store())

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		DefaultPolicy:      policy,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, sessions, publisher, logger)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensetracker server", log.FieldAddr, srv.Addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return wrapError("listen", err)
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(ctx, time.Minute)
	})
	g.Go(func() error {
		return srv.RunLimiterCleanup(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
