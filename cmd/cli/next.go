package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/neat/internal/wire"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Shows the next pending form in the queue",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		form, err := app.Service.NextPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch next form: %w", err)
		}

		if form == nil {
			slog.Info("No pending forms.")
			return nil
		}

		if nextJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(form)
		}

		fmt.Printf("ID:       %s\n", form.ID)
		fmt.Printf("Card:     #%d\n", form.FizzyCardNumber)
		fmt.Printf("Title:    %s\n", form.Title)
		fmt.Printf("Priority: %d\n", form.Priority)
		if form.Summary != "" {
			fmt.Printf("Summary:  %s\n", form.Summary)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "Output the form as JSON")
	rootCmd.AddCommand(nextCmd)
}
