package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/wire"
)

var createFile string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a form from a JSON definition file",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		data, err := os.ReadFile(createFile)
		if err != nil {
			return fmt.Errorf("failed to read form definition: %w", err)
		}

		var form core.Form
		if err := json.Unmarshal(data, &form); err != nil {
			return fmt.Errorf("invalid form definition: %w", err)
		}

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		created, err := app.Service.CreateForm(ctx, &form)
		if err != nil {
			return fmt.Errorf("failed to create form: %w", err)
		}

		slog.Info("form created", "id", created.ID, "card", created.FizzyCardNumber, "title", created.Title)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "Path to the form definition JSON file")
	_ = createCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(createCmd)
}
