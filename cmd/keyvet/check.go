package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/keyvet/internal/config"
	"github.com/nao1215/keyvet/internal/database"
	"github.com/nao1215/keyvet/internal/keyfile"
	"github.com/nao1215/keyvet/internal/log"
	"github.com/nao1215/keyvet/internal/model"
	"github.com/nao1215/keyvet/internal/pipeline"
	"github.com/nao1215/keyvet/internal/probe"
	"github.com/nao1215/keyvet/internal/report"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate API keys against an HTTP endpoint",
		Long: `Check reads API keys from a newline-delimited file and validates each
one with a single GET request to the configured endpoint.

Keys are checked strictly one at a time with a fixed pause between
requests so the run stays under per-IP rate limits. Each key is
classified as:
- ACTIVE:  the endpoint returned HTTP 200
- INVALID: the endpoint returned HTTP 401 or 403
- ERROR:   the request failed or returned another status

Active keys are written to a file next to the input (or --active-file),
a per-key debug log is written for troubleshooting, and the run is
saved to a local history database unless --no-save is given.

Examples:
  # Check keys from api.txt against the default endpoint
  keyvet check

  # Check a specific file against a custom endpoint
  keyvet check -f keys.txt -e https://api.example.com/v1/models

  # Send the key as a bearer token instead of a query parameter
  keyvet check --auth-mode bearer -e https://api.openai.com/v1/models

  # Send the key in a custom header
  keyvet check --auth-mode header --key-name x-goog-api-key

  # Use a provider profile from the .keyvet config file
  keyvet check --provider openai

  # Slow down for a strict rate limit
  keyvet check -d 2s

  # Output JSON report to a file
  keyvet check --json -o report.json

  # Route requests through a SOCKS5 proxy
  keyvet check --proxy 127.0.0.1:1080

Configuration file (.keyvet) example:
  providers:
    gemini:
      endpoint: https://generativelanguage.googleapis.com/v1/models
      authMode: query
    openai:
      endpoint: https://api.openai.com/v1/models
      authMode: bearer
      delay: "1s"`,
		Args: cobra.NoArgs,
		RunE: runCheckCmd,
	}

	// Input and endpoint flags
	cmd.Flags().StringP("file", "f", config.DefaultKeyFile,
		"Key file with one API key per line ('#' lines and blanks are skipped)")
	cmd.Flags().StringP("endpoint", "e", config.DefaultEndpoint,
		"Endpoint URL each key is validated against")

	// Authentication flags
	cmd.Flags().String("auth-mode", config.DefaultAuthMode,
		"Where to place the key: query, bearer, or header")
	cmd.Flags().String("key-name", config.DefaultKeyName,
		"Header name used in header auth mode")

	// Pacing flags
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Pause between consecutive key checks")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")

	// Output file flags
	cmd.Flags().String("debug-log", config.DefaultDebugLogFile,
		"Path for the per-key debug log")
	cmd.Flags().String("active-file", "",
		"Path for the active-keys file (default: active.txt next to the key file)")

	// Configuration file
	cmd.Flags().String("provider", "",
		"Provider profile name from the configuration file")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .keyvet in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Network flags
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each request")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not save this run to the history database")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	// Build config from flags and the optional config file
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging. The secure handler masks key material,
	// so even verbose logs are safe to share.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCheck(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.KeyFile, err = flags.GetString("file"); err != nil {
		return nil, err
	}
	if cfg.Endpoint, err = flags.GetString("endpoint"); err != nil {
		return nil, err
	}
	if cfg.AuthMode, err = flags.GetString("auth-mode"); err != nil {
		return nil, err
	}
	if cfg.KeyName, err = flags.GetString("key-name"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DebugLogFile, err = flags.GetString("debug-log"); err != nil {
		return nil, err
	}
	if cfg.ActiveFile, err = flags.GetString("active-file"); err != nil {
		return nil, err
	}
	if cfg.Provider, err = flags.GetString("provider"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()
	cfg.Verbose = getVerboseFlag(cmd)

	// Load provider profiles from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Providers, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.Providers = &config.File{
			Providers: make(map[string]config.Provider),
		}
	}

	if cfg.Provider != "" {
		if err := applyProvider(cfg, cmd); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyProvider fills in config values from the named provider profile.
// Flags the user set explicitly on the command line win over the profile.
func applyProvider(cfg *config.Config, cmd *cobra.Command) error {
	p, ok := cfg.Providers.GetProvider(cfg.Provider)
	if !ok {
		return fmt.Errorf("%w: %q (check the providers section of your config file)",
			config.ErrUnknownProvider, cfg.Provider)
	}

	flags := cmd.Flags()
	if p.Endpoint != "" && !flags.Changed("endpoint") {
		cfg.Endpoint = p.Endpoint
	}
	if p.AuthMode != "" && !flags.Changed("auth-mode") {
		cfg.AuthMode = p.AuthMode
	}
	if p.KeyName != "" && !flags.Changed("key-name") {
		cfg.KeyName = p.KeyName
	}
	if p.UserAgent != "" && !flags.Changed("user-agent") {
		cfg.UserAgent = p.UserAgent
	}
	if len(p.Headers) > 0 {
		cfg.Headers = p.Headers
	}

	delay, set, err := p.ParseDelay()
	if err != nil {
		return fmt.Errorf("invalid delay in provider %q: %w", cfg.Provider, err)
	}
	if set && !flags.Changed("delay") {
		cfg.Delay = delay
	}

	return nil
}

// runCheck executes the validation run.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// A missing or unreadable key file is the one fatal input error:
	// without keys there is nothing to validate.
	keys, err := keyfile.ReadKeys(cfg.KeyFile)
	if err != nil {
		return err
	}

	// A key file with nothing to check ends the run here, before any
	// network traffic or file output. A previous run's active-keys
	// file, debug log, and history stay untouched.
	if len(keys) == 0 {
		logger.Warn("no keys found", "keyFile", cfg.KeyFile)
		fmt.Printf("No keys found in %s\n", cfg.KeyFile)
		return nil
	}

	mode, err := probe.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return err
	}

	client, err := probe.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return err
	}

	logger.Info("starting validation run",
		"keyFile", cfg.KeyFile,
		"keyCount", len(keys),
		"endpoint", cfg.Endpoint,
		"authMode", mode.String(),
		"delay", cfg.Delay,
		"saveToDB", cfg.SaveToDB,
	)

	checkerOpts := []probe.CheckerOption{
		probe.WithAuthMode(mode),
		probe.WithKeyName(cfg.KeyName),
		probe.WithUserAgent(cfg.UserAgent),
	}
	if len(cfg.Headers) > 0 {
		checkerOpts = append(checkerOpts, probe.WithHeaders(cfg.Headers))
	}
	if cfg.MaxBodySize > 0 {
		checkerOpts = append(checkerOpts, probe.WithMaxBodySize(cfg.MaxBodySize))
	}
	checker := probe.NewChecker(client, cfg.Endpoint, checkerOpts...)

	checkOpts := []pipeline.CheckKeysStepOption{
		pipeline.WithDelay(cfg.Delay),
	}

	// Progress lines go to stdout. Suppress them when a machine-readable
	// report is also going to stdout, so the output stays parseable.
	machineToStdout := (cfg.JSONReport || cfg.MarkdownReport) && cfg.ReportFile == ""
	if !machineToStdout {
		checkOpts = append(checkOpts, pipeline.WithProgress(func(current, total int, masked string) {
			fmt.Printf("[%d/%d] Checking %s ...\n", current, total, masked)
		}))
	}

	// The output steps run with continue-on-error: an unwritable debug
	// log or active-keys path must never cost the user their results.
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(pipeline.DefaultSteps(checker, keys, cfg.ActiveFilePath(), cfg.DebugLogFile, logger, checkOpts...)...)

	runReport := &model.RunReport{
		Endpoint: cfg.Endpoint,
		AuthMode: mode.String(),
		KeyFile:  cfg.KeyFile,
	}

	if err := p.Execute(ctx, runReport); err != nil {
		return err
	}

	// Generate and output report
	if err := outputReport(cfg, runReport); err != nil {
		logger.Error("report output failed", "error", err)
		return err
	}

	// Save to history database if enabled
	if err := saveRunReport(ctx, cfg, runReport, logger); err != nil {
		logger.Warn("failed to save run history", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: run was not saved to history: %v\n", err)
	}

	return nil
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, runReport *model.RunReport) error {
	if cfg.ReportFile == "" {
		return writeReport(cfg, os.Stdout, runReport)
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Create/overwrite the output file with secure permissions (0600).
	// Reports identify which endpoints were probed and when.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := writeReport(cfg, f, runReport); err != nil {
		_ = f.Close() //nolint:errcheck // Best effort cleanup on write failure
		return err
	}

	// A failed close can mean a failed flush, so it is a report error.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// writeReport writes the report to output in the configured format.
func writeReport(cfg *config.Config, output io.Writer, runReport *model.RunReport) error {
	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(runReport)
	return err
}

// saveRunReport saves the run to the history database if enabled.
func saveRunReport(ctx context.Context, cfg *config.Config, runReport *model.RunReport, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, runReport)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run saved to history", "runID", id, "dir", cfg.DBDir)
	return nil
}
