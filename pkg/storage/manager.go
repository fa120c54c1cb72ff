package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ProgressFunc is called with the running byte count while an archive is written
type ProgressFunc func(written int64)

// SavedFile describes an archive written to disk
type SavedFile struct {
	Path  string
	Name  string
	Bytes int64
}

// Manager writes export archives into the output directory
type Manager struct {
	outputDir string
	overwrite bool
	mu        sync.Mutex
	saved     []SavedFile
}

// NewManager creates a new storage manager
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
	}, nil
}

// FileNameFromURL derives the archive name from the last path segment of rawURL
func FileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL: %w", err)
	}

	name := path.Base(u.Path)
	switch name {
	case "", ".", "/", "..":
		return "", fmt.Errorf("download URL %q has no file name", rawURL)
	}
	// Keep the name inside the output directory on every platform
	name = strings.ReplaceAll(name, "\\", "_")
	return name, nil
}

// TargetPath returns where name would be written. When overwriting is off and
// the name is taken, a numbered variant is chosen.
func (m *Manager) TargetPath(name string) string {
	target := filepath.Join(m.outputDir, name)
	if m.overwrite {
		return target
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; fileExists(target); i++ {
		target = filepath.Join(m.outputDir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
	return target
}

// Save streams r into the output directory under name. Data goes to a
// temporary file first and is renamed into place once complete.
func (m *Manager) Save(r io.Reader, name string, progress ProgressFunc) (*SavedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.TargetPath(name)
	tempFile := target + ".part"

	out, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var w io.Writer = out
	if progress != nil {
		w = &progressWriter{w: out, fn: progress}
	}

	written, err := io.Copy(w, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to save archive data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	saved := SavedFile{Path: target, Name: filepath.Base(target), Bytes: written}
	m.saved = append(m.saved, saved)
	return &saved, nil
}

// Saved returns the archives written by this manager
func (m *Manager) Saved() []SavedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedFile(nil), m.saved...)
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written)
	return n, err
}
