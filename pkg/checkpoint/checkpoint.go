package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"educabiz-exporter/pkg/logger"
)

const currentVersion = 1

// PendingJob is an export job that was submitted but whose archive has not
// been downloaded yet
type PendingJob struct {
	NotificationID string    `json:"notification_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
	PictureCount   int       `json:"picture_count"`
	Cutoff         string    `json:"cutoff"`
	ScanMode       string    `json:"scan_mode"`
	RunID          string    `json:"run_id"`
}

// State is the persisted export state of one child on one deployment. The
// session token is never part of it.
type State struct {
	Slug    string `json:"slug"`
	ChildID string `json:"child_id"`

	Pending *PendingJob `json:"pending,omitempty"`

	// LastExportAt is when the last successful export started
	LastExportAt time.Time `json:"last_export_at,omitempty"`
	LastArchive  string    `json:"last_archive,omitempty"`
	LastRunID    string    `json:"last_run_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// HasPending reports whether a submitted job awaits download
func (s *State) HasPending() bool {
	return s != nil && s.Pending != nil && s.Pending.NotificationID != ""
}

// Manager handles checkpoint operations for one (slug, child) pair
type Manager struct {
	checkpointPath string
	slug           string
	childID        string
	logger         logger.Logger
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewManager creates a manager under the platform data directory
func NewManager(slug, childID string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerAt(filepath.Join(dataDir, "checkpoints"), slug, childID)
}

// NewManagerAt creates a manager that keeps its file in dir
func NewManagerAt(dir, slug, childID string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.checkpoint.json",
		unsafeChars.ReplaceAllString(slug, "_"),
		unsafeChars.ReplaceAllString(childID, "_"))

	return &Manager{
		checkpointPath: filepath.Join(dir, name),
		slug:           slug,
		childID:        childID,
		logger:         logger.GetLogger(),
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load returns the stored state, or a fresh unsaved state when none exists
func (m *Manager) Load() (*State, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			now := time.Now().UTC()
			return &State{Slug: m.slug, ChildID: m.childID, CreatedAt: now, UpdatedAt: now, Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var state State
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if state.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", state.Version, currentVersion)
	}

	m.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"path":           m.checkpointPath,
		"pending":        state.HasPending(),
		"last_export_at": state.LastExportAt,
	})

	return &state, nil
}

// Save saves the state to disk atomically
func (m *Manager) Save(state *State) error {
	state.UpdatedAt = time.Now().UTC()
	state.Version = currentVersion

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"path":    m.checkpointPath,
		"pending": state.HasPending(),
	})
	return nil
}

// RecordSubmitted stores a freshly submitted job so it can be resumed
func (m *Manager) RecordSubmitted(state *State, job PendingJob) error {
	state.Pending = &job
	return m.Save(state)
}

// RecordCompleted clears the pending job and remembers the export
func (m *Manager) RecordCompleted(state *State, startedAt time.Time, archive, runID string) error {
	state.Pending = nil
	state.LastExportAt = startedAt.UTC()
	state.LastArchive = archive
	state.LastRunID = runID
	return m.Save(state)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// SinceLast returns the cutoff for an incremental export: the calendar day
// (UTC) of the last successful export. ok is false when there was none.
func (s *State) SinceLast() (cutoff time.Time, ok bool) {
	if s == nil || s.LastExportAt.IsZero() {
		return time.Time{}, false
	}
	y, mo, d := s.LastExportAt.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "ebexport")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "ebexport")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "ebexport")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "ebexport")
		}
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
