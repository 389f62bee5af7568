package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"expensetracker/internal/amqp"
	"expensetracker/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print ledger events from the broker as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AMQPURL == "" {
			return errors.New("AMQP_URL is not configured")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return wrapError("connect event broker", err)
		}
		defer client.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		err = client.Consume(ctx, func(e events.LedgerEvent) error {
			return enc.Encode(e)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
