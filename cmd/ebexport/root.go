package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	notifications bool
	quiet         bool
	verbose       bool
)

// rootCmd runs an export when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "ebexport",
	Short: "Export your child's Educabiz photo gallery as a zip archive",
	Long: `ebexport signs in to an Educabiz child-care portal, collects every gallery
picture taken on or after a date, asks the portal to pack them into a zip
archive and downloads the result.

Features:
  - Credentials kept in the system keychain or an encrypted file
  - Date filter, including "since the last successful export"
  - Resume a pending archive job after an interruption
  - Progress display or full-screen terminal UI
  - Desktop notifications and Prometheus textfile metrics`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version

		if quiet {
			ui.Output = io.Discard
		}

		if !quiet && !useTUI && (cmd.Name() == "ebexport" || cmd.Name() == "export") {
			ui.PrintLogo()
		}
	},
	RunE: runExport,
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ebexport %s\n", rootCmd.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, ui.Red("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./ebexport.yaml or ~/.config/ebexport/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every scanned gallery page")

	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(`ebexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// reportedError marks an error the command already showed to the user
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }
