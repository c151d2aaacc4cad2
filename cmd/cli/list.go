package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/neat/internal/core"
	"github.com/sevigo/neat/internal/wire"
)

var (
	listStatus string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists forms, optionally filtered by status",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		var status *core.FormStatus
		if listStatus != "" {
			s := core.FormStatus(listStatus)
			status = &s
		}

		forms, err := app.Service.ListForms(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to retrieve forms: %w", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(forms)
		}

		if len(forms) == 0 {
			slog.Info("No forms found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tCARD\tTITLE\tSTATUS\tPRIORITY\tCREATED")
		for _, form := range forms {
			fmt.Fprintf(w, "%s\t#%d\t%s\t%s\t%d\t%s\n",
				form.ID,
				form.FizzyCardNumber,
				form.Title,
				form.Status,
				form.Priority,
				form.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, completed, skipped)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output forms as JSON")
	rootCmd.AddCommand(listCmd)
}
