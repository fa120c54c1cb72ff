package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"educabiz-exporter/pkg/auth"
	"educabiz-exporter/pkg/config"
	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/exporter"
	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/metrics"
	"educabiz-exporter/pkg/ui"
	"educabiz-exporter/pkg/ui/tui"
)

var (
	// Export command flags
	slug            string
	baseURL         string
	childID         string
	username        string
	accountName     string
	since           string
	fastScan        bool
	resumeExport    bool
	outputDir       string
	overwrite       bool
	pollTimeout     time.Duration
	pollMaxAttempts int
	rateLimit       int
	metricsFile     string
	useTUI          bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export gallery pictures to a zip archive",
	Long: `Export every gallery picture taken on or after --since into one zip archive.

The portal packs the archive itself; ebexport waits for the job and downloads
the result into the output directory. Credentials come from, in order:
  - --account (a stored account, see 'ebexport auth login')
  - EDUCABIZ_USERNAME / EDUCABIZ_PASSWORD or the configuration file
  - The single stored account for the portal`,
	Example: `  # Everything since the start of the year
  ebexport export --slug happykids --child-id 4242 --since 2024-01-01

  # Only what is new since the last successful export
  ebexport export --since last

  # Pick up an archive job that was interrupted
  ebexport export --resume

  # Full-screen progress
  ebexport export --tui`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	for _, cmd := range []*cobra.Command{rootCmd, exportCmd} {
		addExportFlags(cmd)
	}
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&slug, "slug", "", "portal name, as in https://<slug>.educabiz.com")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "portal root URL (overrides --slug)")
	cmd.Flags().StringVar(&childID, "child-id", "", "child whose gallery is exported")
	cmd.Flags().StringVarP(&username, "username", "u", "", "portal username")
	cmd.Flags().StringVarP(&accountName, "account", "a", "", "use a stored account ([slug/]username)")
	cmd.Flags().StringVarP(&since, "since", "s", "", "only pictures on or after this date (YYYY-MM-DD or 'last')")
	cmd.Flags().BoolVar(&fastScan, "fast-scan", false, "stop scanning one page after the first picture older than --since")
	cmd.Flags().BoolVar(&resumeExport, "resume", false, "wait for the pending archive job instead of starting a new one")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the archive (default: current directory)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing archive with the same name")
	cmd.Flags().DurationVar(&pollTimeout, "poll-timeout", 0, "give up waiting for the archive after this long (default 30m)")
	cmd.Flags().IntVar(&pollMaxAttempts, "poll-max-attempts", 0, "give up after this many progress polls (default: no cap)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "gallery page requests per minute (default 60)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here after the run")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

func exportFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("slug") {
		flags["slug"] = slug
	}
	if changed("base-url") {
		flags["base-url"] = baseURL
	}
	if changed("child-id") {
		flags["child-id"] = childID
	}
	if changed("username") {
		flags["username"] = username
	}
	if changed("since") {
		flags["since"] = since
	}
	if changed("fast-scan") {
		flags["fast-scan"] = fastScan
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("overwrite") {
		flags["overwrite"] = overwrite
	}
	if changed("poll-timeout") {
		flags["poll-timeout"] = pollTimeout
	}
	if changed("poll-max-attempts") {
		flags["poll-max-attempts"] = pollMaxAttempts
	}
	if changed("rate-limit") {
		flags["requests-per-minute"] = rateLimit
	}
	if changed("metrics-file") {
		flags["metrics-file"] = metricsFile
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications-enabled"] = notifications
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	} else if quiet {
		flags["log-level"] = "error"
	}

	return flags
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, exportFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		return reportedError{err}
	}

	if err := setupLogger(cfg); err != nil {
		ui.PrintError("Failed to initialize logger", err)
		return reportedError{err}
	}

	if err := resolveCredentials(cfg); err != nil {
		logger.WithError(err).Error("No usable credentials")
		ui.PrintError("Missing Educabiz credentials", err)
		fmt.Fprintln(os.Stderr)
		auth.ShowCredentialGuide(os.Stderr)
		return reportedError{err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.New()
	opts := []exporter.Option{exporter.WithMetrics(collector)}

	var terminal *tui.TUI
	switch {
	case useTUI:
		terminal = tui.NewTUI(ctx, os.Stdout, cancel)
		opts = append(opts, exporter.WithReporter(terminal))
	case quiet:
		opts = append(opts, exporter.WithReporter(exporter.NopReporter{}))
	default:
		ui.PrintInfo("Portal", cfg.BaseURL())
		ui.PrintInfo("Child", cfg.Educabiz.ChildID)
		opts = append(opts, exporter.WithReporter(ui.NewConsoleReporter(os.Stdout, verbose)))
	}

	orchestrator, err := exporter.New(cfg, opts...)
	if err != nil {
		ui.PrintError("Failed to initialize exporter", err)
		return reportedError{err}
	}

	runOpts := exporter.RunOptions{Resume: resumeExport}

	var (
		result *exporter.Result
		runErr error
	)
	if terminal != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			result, runErr = orchestrator.Run(ctx, runOpts)
		}()

		if err := terminal.Run(); err != nil {
			logger.WithError(err).Error("TUI failed")
			cancel()
		}
		<-done
	} else {
		result, runErr = orchestrator.Run(ctx, runOpts)
	}

	notifier := ui.NewNotifier(cfg.Notifications)
	if runErr != nil {
		notifier.NotifyError(runErr)
		if quiet {
			return runErr
		}
		if hint := resumeHint(runErr); hint != "" {
			ui.PrintWarning(hint)
		}
		return reportedError{runErr}
	}

	notifier.NotifyResult(result)
	return nil
}

// setupLogger keeps the console free for the full-screen UI unless logs go to a file
func setupLogger(cfg *config.Config) error {
	if useTUI && cfg.Logging.File == "" {
		logger.SetLogger(logger.NewNopLogger())
		return nil
	}
	return logger.Initialize(&cfg.Logging)
}

// resolveCredentials fills the username and password from the credential
// store unless both are already configured
func resolveCredentials(cfg *config.Config) error {
	if accountName == "" && cfg.Educabiz.Username != "" && cfg.Educabiz.Password != "" {
		return cfg.ValidateCredentials()
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	switch {
	case accountName != "":
		accountSlug, accountUser := splitAccount(accountName, cfg.Educabiz.Slug)
		account, err = manager.Retrieve(accountSlug, accountUser)
	case cfg.Educabiz.Username != "":
		account, err = manager.Retrieve(cfg.Educabiz.Slug, cfg.Educabiz.Username)
	default:
		account, err = manager.RetrieveDefault(cfg.Educabiz.Slug)
	}
	if err != nil && !errors.Is(err, auth.ErrCredentialsNotFound) {
		return err
	}

	if account != nil {
		if cfg.Educabiz.Slug == "" {
			cfg.Educabiz.Slug = account.Slug
		}
		cfg.Educabiz.Username = account.Username
		cfg.Educabiz.Password = account.Password
		logger.WithField("account", account.Key()).Info("Using stored credentials")
	}

	return cfg.ValidateCredentials()
}

// splitAccount accepts "slug/username" or a bare username on the configured portal
func splitAccount(name, defaultSlug string) (string, string) {
	if i := strings.Index(name, "/"); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSlug, name
}

func resumeHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errs.IsType(err, errs.ErrorTypeTimeout):
		return "The archive job is still pending. Run again with --resume to wait for it."
	}
	return ""
}
