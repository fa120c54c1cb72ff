package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported manifest formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Manifest records what one export run asked for and what it received
type Manifest struct {
	// Run identity
	RunID   string `json:"run_id" yaml:"run_id"`
	Slug    string `json:"slug" yaml:"slug"`
	ChildID string `json:"child_id" yaml:"child_id"`

	// Selection
	Cutoff   string `json:"cutoff" yaml:"cutoff"`
	ScanMode string `json:"scan_mode" yaml:"scan_mode"`

	// Job
	JobID        string   `json:"job_id" yaml:"job_id"`
	PictureCount int      `json:"picture_count" yaml:"picture_count"`
	PictureIDs   []string `json:"picture_ids" yaml:"picture_ids"`
	Resumed      bool     `json:"resumed,omitempty" yaml:"resumed,omitempty"`

	// Result
	ResultURL string `json:"result_url" yaml:"result_url"`
	Archive   string `json:"archive" yaml:"archive"`
	Bytes     int64  `json:"bytes" yaml:"bytes"`

	// Timestamps
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Duration returns how long the run took
func (m *Manifest) Duration() time.Duration {
	if m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// PathFor returns the manifest path that sits next to archivePath
func PathFor(archivePath, format string) string {
	return archivePath + ".manifest." + normalizeFormat(format)
}

func normalizeFormat(format string) string {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Save writes the manifest next to archivePath and returns the file written
func (m *Manifest) Save(archivePath, format string) (string, error) {
	format = normalizeFormat(format)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	manifestPath := PathFor(archivePath, format)
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest file: %w", err)
	}

	return manifestPath, nil
}

// Load reads a manifest file. The format follows the file extension.
func Load(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m Manifest
	switch filepath.Ext(manifestPath) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &m, nil
}

// Exists checks if a manifest was written for an archive
func Exists(archivePath, format string) bool {
	_, err := os.Stat(PathFor(archivePath, format))
	return err == nil
}

// CleanOrphaned removes manifests whose archive no longer exists
func CleanOrphaned(directory string) (int, error) {
	removed := 0
	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		idx := strings.LastIndex(path, ".manifest.")
		if idx <= 0 {
			return nil
		}

		archivePath := path[:idx]
		if _, err := os.Stat(archivePath); os.IsNotExist(err) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove orphaned manifest %s: %w", path, err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}
