package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sevigo/neat/internal/wire"
)

var skipCmd = &cobra.Command{
	Use:   "skip <form-id>",
	Short: "Skips a pending form so it leaves the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		form, err := app.Service.Skip(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to skip form: %w", err)
		}

		slog.Info("form skipped", "id", form.ID, "card", form.FizzyCardNumber)
		return nil
	},
}

var unskipCmd = &cobra.Command{
	Use:   "unskip <form-id>",
	Short: "Restores a skipped form to the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		form, err := app.Service.Unskip(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to unskip form: %w", err)
		}

		slog.Info("form restored to queue", "id", form.ID, "card", form.FizzyCardNumber)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(unskipCmd)
}
