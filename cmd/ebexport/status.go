package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"educabiz-exporter/pkg/checkpoint"
	"educabiz-exporter/pkg/config"
	"educabiz-exporter/pkg/metadata"
	"educabiz-exporter/pkg/ui"
)

var (
	resetState     bool
	cleanManifests bool
)

// statusCmd shows the saved export state of one child
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pending archive job and the last export",
	Long: `Show what ebexport remembers about a child's gallery: the archive job
waiting to be resumed, if any, and the date used by --since last.

--reset forgets both. --clean-manifests removes manifest files whose archive
was deleted from the output directory.`,
	Example: `  ebexport status --slug happykids --child-id 4242
  ebexport status --reset`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&slug, "slug", "", "portal slug")
	statusCmd.Flags().StringVar(&childID, "child-id", "", "child id")
	statusCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory holding the archives")
	statusCmd.Flags().BoolVar(&resetState, "reset", false, "forget the pending job and the last export date")
	statusCmd.Flags().BoolVar(&cleanManifests, "clean-manifests", false, "remove manifests whose archive no longer exists")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, exportFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		return reportedError{err}
	}
	if cfg.Educabiz.Slug == "" || cfg.Educabiz.ChildID == "" {
		err := fmt.Errorf("--slug and --child-id are required")
		ui.PrintError("Cannot locate export state", err)
		return reportedError{err}
	}

	if cleanManifests {
		removed, err := metadata.CleanOrphaned(cfg.Output.BaseDirectory)
		if err != nil {
			ui.PrintError("Failed to clean manifests", err)
			return reportedError{err}
		}
		ui.PrintInfo("Orphaned manifests removed", fmt.Sprintf("%d", removed))
	}

	manager, err := checkpoint.NewManager(cfg.Educabiz.Slug, cfg.Educabiz.ChildID)
	if err != nil {
		ui.PrintError("Failed to open export state", err)
		return reportedError{err}
	}

	if resetState {
		if err := manager.Delete(); err != nil {
			ui.PrintError("Failed to reset export state", err)
			return reportedError{err}
		}
		ui.PrintSuccess("Export state cleared")
		return nil
	}

	if !manager.Exists() {
		ui.PrintInfo("Export state", "none yet, run 'ebexport export' first")
		return nil
	}

	state, err := manager.Load()
	if err != nil {
		ui.PrintError("Failed to read export state", err)
		return reportedError{err}
	}

	ui.PrintHighlight(fmt.Sprintf("%s / child %s", state.Slug, state.ChildID))
	ui.PrintInfo("State file", manager.Path())

	if state.HasPending() {
		p := state.Pending
		ui.PrintInfo("Pending job", fmt.Sprintf("%s (%d pictures, submitted %s)",
			p.NotificationID, p.PictureCount, p.SubmittedAt.Local().Format("2006-01-02 15:04")))
		ui.PrintWarning("Run 'ebexport export --resume' to download it")
	} else {
		ui.PrintInfo("Pending job", "none")
	}

	cutoff, ok := state.SinceLast()
	if !ok {
		ui.PrintInfo("Last export", "never")
		return nil
	}
	ui.PrintInfo("Last export", state.LastExportAt.Local().Format("2006-01-02 15:04"))
	ui.PrintInfo("--since last", cutoff.Format("2006-01-02"))

	if state.LastArchive == "" {
		return nil
	}
	ui.PrintInfo("Last archive", state.LastArchive)
	for _, format := range []string{metadata.FormatJSON, metadata.FormatYAML} {
		if !metadata.Exists(state.LastArchive, format) {
			continue
		}
		manifest, err := metadata.Load(metadata.PathFor(state.LastArchive, format))
		if err != nil {
			ui.PrintWarning("Unreadable manifest", err)
			break
		}
		ui.PrintInfo("Pictures", fmt.Sprintf("%d since %s (%s scan, job %s)",
			manifest.PictureCount, manifest.Cutoff, manifest.ScanMode, manifest.JobID))
		break
	}
	return nil
}
