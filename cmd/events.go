/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/articlehub/apiserver/internal/events"
	"github.com/articlehub/apiserver/internal/mq"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the configured broker as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.Events)
		if err != nil {
			return fmt.Errorf("open events backend: %w", err)
		}
		if broker == nil {
			return errors.New("no events backend configured; set EVENTS_BACKEND")
		}
		defer broker.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		publisher := events.NewPublisher(broker, cfg.Events.Channel, logger.Named("events"))
		err = publisher.Tail(ctx, func(ev events.Event) {
			_ = out.Encode(ev)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
