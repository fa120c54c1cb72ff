package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"educabiz-exporter/pkg/config"
	"educabiz-exporter/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ebexport configuration files.

Configuration is layered, later sources win:
  - Default values
  - Configuration file
  - .env files
  - Environment variables (EDUCABIZ_*)
  - Command line flags`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as 'ebexport.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after all sources are merged.

The password is masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value ranges and enums
  - Output and log directories
  - Portal credentials (warnings only, they may be stored with 'auth login')`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# ebexport configuration
#
# Every value can also be set with an EDUCABIZ_* environment variable,
# for example EDUCABIZ_SLUG, EDUCABIZ_CHILD_ID or EDUCABIZ_SINCE.

educabiz:
  # Portal name, as in https://<slug>.educabiz.com
  slug: ""

  # Full portal URL, overrides slug when set
  base_url: ""

  # Child whose gallery is exported
  child_id: ""

  # Portal login. Prefer 'ebexport auth login' over storing the password here.
  username: ""
  password: ""

export:
  # Only pictures on or after this date (YYYY-MM-DD), or "last" for
  # everything since the last successful export. Empty exports everything.
  since: ""

  # exhaustive scans the whole gallery; fast stops one page after the first
  # picture older than since
  scan_mode: "exhaustive"

  # Archive job polling
  poll_interval: 1s
  poll_timeout: 30m
  # 0 means no cap besides poll_timeout
  poll_max_attempts: 0

http:
  timeout: 60s

rate_limit:
  # Gallery page requests per minute
  requests_per_minute: 60

output:
  base_directory: "."
  # When false an existing archive is kept and the new one gets a numbered name
  overwrite_existing: false
  # Write <archive>.manifest.json (or .yaml) next to the archive
  save_manifest: true
  manifest_format: "json"

notifications:
  enabled: true
  on_complete: true
  on_error: true

logging:
  # debug, info, warn, error
  level: "info"
  # Optional log file (JSON lines)
  file: ""

metrics:
  # Prometheus textfile written after every run, for node_exporter
  textfile_path: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "ebexport.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Fprintln(ui.Output, "\nTo overwrite, first remove the existing file:")
		fmt.Fprintf(ui.Output, "  rm %s\n", configPath)
		return reportedError{fmt.Errorf("%s already exists", configPath)}
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err)
		return reportedError{err}
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Set educabiz.slug and educabiz.child_id")
	fmt.Fprintln(ui.Output, "2. Store your login with 'ebexport auth login'")
	fmt.Fprintln(ui.Output, "3. Run 'ebexport config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "4. Export with 'ebexport export --since 2024-01-01'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		return reportedError{err}
	}

	data, err := yaml.Marshal(cfg.Sanitized())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (EDUCABIZ_*)")
	fmt.Fprintln(ui.Output, "3. .env files")
	fmt.Fprintf(ui.Output, "4. Configuration file: %s\n", source)
	fmt.Fprintln(ui.Output, "5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintError("No configuration file found", "specify a file with --config")
		return reportedError{fmt.Errorf("no configuration file found")}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return reportedError{err}
	}

	warnings, problems := checkConfig(cfg)

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(ui.Output, "  - %s\n", p)
		}
		return reportedError{fmt.Errorf("%d configuration errors", len(problems))}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Portal: %s\n", cfg.BaseURL())
	fmt.Fprintf(ui.Output, "  Scan mode: %s\n", cfg.Export.ScanMode)
	fmt.Fprintf(ui.Output, "  Poll timeout: %s\n", cfg.Export.PollTimeout)
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(ui.Output, "  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// checkConfig reports what Validate cannot: missing credentials and
// directories that cannot be created
func checkConfig(cfg *config.Config) (warnings, problems []string) {
	if cfg.Educabiz.Slug == "" && cfg.Educabiz.BaseURL == "" {
		warnings = append(warnings, "portal slug not configured")
	}
	if cfg.Educabiz.ChildID == "" {
		warnings = append(warnings, "child ID not configured")
	}
	if cfg.Educabiz.Username == "" || cfg.Educabiz.Password == "" {
		warnings = append(warnings, "no username/password in configuration (stored credentials will be used)")
	}
	if cfg.Educabiz.Password != "" {
		warnings = append(warnings, "password stored in plain text, consider 'ebexport auth login'")
	}

	if cfg.Output.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	return warnings, problems
}
