package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nao1215/keyvet/internal/config"
	"github.com/nao1215/keyvet/internal/database"
	"github.com/nao1215/keyvet/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command inspects past validation runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [endpoint]",
		Short: "Inspect past validation runs",
		Long: `History displays validation runs saved in the local database.

Every 'keyvet check' run is recorded (unless --no-save was given) with
per-key outcomes identified by masked form and fingerprint. Raw keys
are never stored.

Examples:
  # List all recorded runs
  keyvet history

  # List runs for a specific endpoint
  keyvet history https://api.example.com/v1/models

  # List all endpoints with recorded runs
  keyvet history --list-endpoints

  # Show the full report of a specific run by ID
  keyvet history --run-id 5

  # Show every recorded outcome for one key by its fingerprint
  keyvet history --key <fingerprint>

  # Output in JSON format
  keyvet history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list-endpoints", "L", false,
		"List all endpoints with recorded runs")

	// Detail flags
	cmd.Flags().Int64P("run-id", "i", 0,
		"Show the full report of a specific run (use the ID from the run list)")
	cmd.Flags().StringP("key", "k", "",
		"Show all recorded outcomes for a key fingerprint")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listEndpoints, err := cmd.Flags().GetBool("list-endpoints")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	fingerprint, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var endpoint string
	if len(args) > 0 {
		endpoint = args[0]
	}

	// Use XDG data directory for database
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case listEndpoints:
		return listRecordedEndpoints(ctx, db, jsonOutput)
	case runID > 0:
		return showRun(ctx, db, runID, jsonOutput)
	case fingerprint != "":
		return showKeyHistory(ctx, db, fingerprint, jsonOutput)
	default:
		return listRuns(ctx, db, endpoint, jsonOutput)
	}
}

// listRecordedEndpoints lists all endpoints that have runs in the database.
func listRecordedEndpoints(ctx context.Context, db *database.HistoryDB, jsonOutput bool) error {
	endpoints, err := db.ListEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to list endpoints: %w", err)
	}

	if jsonOutput {
		return writeHistoryJSON(endpoints)
	}

	if len(endpoints) == 0 {
		fmt.Println("No recorded runs found in the database.")
		fmt.Println("\nUse 'keyvet check' to validate keys and record a run.")
		return nil
	}

	fmt.Printf("Endpoints with recorded runs (%d):\n\n", len(endpoints))
	for _, endpoint := range endpoints {
		fmt.Printf("  • %s\n", endpoint)
	}
	fmt.Println("\nUse 'keyvet history <endpoint>' to see the runs for an endpoint.")

	return nil
}

// listRuns lists recorded runs, optionally filtered by endpoint.
func listRuns(ctx context.Context, db *database.HistoryDB, endpoint string, jsonOutput bool) error {
	runs, err := db.GetRunHistory(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if jsonOutput {
		return writeHistoryJSON(runs)
	}

	if len(runs) == 0 {
		if endpoint != "" {
			fmt.Printf("No runs found for %s\n", endpoint)
		} else {
			fmt.Println("No recorded runs found in the database.")
		}
		fmt.Println("\nUse 'keyvet check' to validate keys and record a run.")
		return nil
	}

	if endpoint != "" {
		fmt.Printf("Runs for %s (%d):\n\n", endpoint, len(runs))
	} else {
		fmt.Printf("Recorded runs (%d):\n\n", len(runs))
	}

	fmt.Printf("  %-6s  %-20s  %-8s  %-8s  %-8s  %-8s\n",
		"ID", "Date", "Total", "Active", "Invalid", "Error")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, meta := range runs {
		fmt.Printf("  %-6d  %-20s  %-8d  %-8d  %-8d  %-8d\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.TotalCount,
			meta.ActiveCount,
			meta.InvalidCount,
			meta.ErrorCount,
		)
	}

	fmt.Println("\nUse 'keyvet history --run-id <id>' to see a run's full report.")

	return nil
}

// showRun displays the full report of one stored run.
func showRun(ctx context.Context, db *database.HistoryDB, runID int64, jsonOutput bool) error {
	runReport, err := db.GetRunByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if runReport == nil {
		return fmt.Errorf("run with ID %d not found (use 'keyvet history' to list runs)", runID)
	}

	var writer report.Writer
	if jsonOutput {
		writer = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(os.Stdout)
	}

	_, err = writer.Write(runReport)
	return err
}

// showKeyHistory displays every recorded outcome for a key fingerprint.
func showKeyHistory(ctx context.Context, db *database.HistoryDB, fingerprint string, jsonOutput bool) error {
	outcomes, err := db.GetKeyHistory(ctx, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to get key history: %w", err)
	}

	if jsonOutput {
		return writeHistoryJSON(outcomes)
	}

	if len(outcomes) == 0 {
		fmt.Printf("No recorded outcomes for fingerprint %s\n", fingerprint)
		return nil
	}

	fmt.Printf("Key history for %s (%d outcomes):\n\n", outcomes[0].Masked, len(outcomes))
	fmt.Printf("  %-6s  %-20s  %-8s  %-6s\n", "Run", "Date", "Status", "Code")
	fmt.Println("  " + strings.Repeat("-", 48))

	for _, o := range outcomes {
		code := "-"
		if o.StatusCode != 0 {
			code = fmt.Sprintf("%d", o.StatusCode)
		}
		fmt.Printf("  %-6d  %-20s  %-8s  %-6s\n",
			o.RunID,
			o.Timestamp.Format("2006-01-02 15:04:05"),
			o.Status,
			code,
		)
	}

	return nil
}

// writeHistoryJSON writes any history value as pretty-printed JSON to stdout.
func writeHistoryJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
