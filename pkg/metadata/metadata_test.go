package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *Manifest {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Manifest{
		RunID:        "run-1",
		Slug:         "happykids",
		ChildID:      "4242",
		Cutoff:       "2024-02-01",
		ScanMode:     "exhaustive",
		JobID:        "1234567",
		PictureCount: 2,
		PictureIDs:   []string{"A", "B"},
		ResultURL:    "https://happykids.educabiz.com/files/photos.zip",
		Archive:      "photos.zip",
		Bytes:        1024,
		StartedAt:    started,
		FinishedAt:   started.Add(90 * time.Second),
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "photos.zip")
			m := sampleManifest()

			path, err := m.Save(archive, format)
			require.NoError(t, err)
			assert.Equal(t, archive+".manifest."+format, path)
			assert.True(t, Exists(archive, format))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, m.PictureIDs, loaded.PictureIDs)
			assert.Equal(t, m.JobID, loaded.JobID)
			assert.True(t, m.StartedAt.Equal(loaded.StartedAt))
			assert.Equal(t, 90*time.Second, loaded.Duration())
		})
	}
}

func TestPathForNormalizesFormat(t *testing.T) {
	assert.Equal(t, "a.zip.manifest.yaml", PathFor("a.zip", "YML"))
	assert.Equal(t, "a.zip.manifest.json", PathFor("a.zip", ""))
	assert.Equal(t, "a.zip.manifest.json", PathFor("a.zip", "toml"))
}

func TestDurationUnfinished(t *testing.T) {
	m := sampleManifest()
	m.FinishedAt = time.Time{}
	assert.Zero(t, m.Duration())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.manifest.json"))
	assert.Error(t, err)
}

func TestCleanOrphaned(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.zip")
	require.NoError(t, os.WriteFile(kept, []byte("zip"), 0644))

	_, err := sampleManifest().Save(kept, FormatJSON)
	require.NoError(t, err)
	_, err = sampleManifest().Save(filepath.Join(dir, "gone.zip"), FormatYAML)
	require.NoError(t, err)

	removed, err := CleanOrphaned(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.True(t, Exists(kept, FormatJSON))
	assert.False(t, Exists(filepath.Join(dir, "gone.zip"), FormatYAML))
}
