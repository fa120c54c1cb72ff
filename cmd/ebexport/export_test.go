package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"educabiz-exporter/pkg/config"
	errs "educabiz-exporter/pkg/errors"
)

func TestSplitAccount(t *testing.T) {
	tests := []struct {
		name, input, defaultSlug string
		wantSlug, wantUser       string
	}{
		{"bare username", "parent@example.com", "happykids", "happykids", "parent@example.com"},
		{"slug prefix", "sunnyside/parent@example.com", "happykids", "sunnyside", "parent@example.com"},
		{"leading slash", "/parent", "happykids", "happykids", "/parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, user := splitAccount(tt.input, tt.defaultSlug)
			assert.Equal(t, tt.wantSlug, slug)
			assert.Equal(t, tt.wantUser, user)
		})
	}
}

func TestExportFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "export"}
	addExportFlags(cmd)
	cmd.Flags().BoolVar(&notifications, "notifications", true, "")

	require.NoError(t, cmd.Flags().Parse([]string{
		"--slug", "happykids",
		"--since", "last",
		"--fast-scan",
		"--poll-timeout", "5m",
		"--rate-limit", "30",
	}))

	flags := exportFlags(cmd)
	assert.Equal(t, "happykids", flags["slug"])
	assert.Equal(t, "last", flags["since"])
	assert.Equal(t, true, flags["fast-scan"])
	assert.Equal(t, 5*time.Minute, flags["poll-timeout"])
	assert.Equal(t, 30, flags["requests-per-minute"])
	assert.NotContains(t, flags, "output")
	assert.NotContains(t, flags, "child-id")
	assert.NotContains(t, flags, "notifications-enabled")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, config.ScanModeFast, cfg.Export.ScanMode)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
}

func TestResumeHint(t *testing.T) {
	assert.NotEmpty(t, resumeHint(fmt.Errorf("run: %w", context.Canceled)))
	assert.NotEmpty(t, resumeHint(errs.Timeout("export job did not finish", nil)))
	assert.Empty(t, resumeHint(errs.Authentication("wrong credentials")))
	assert.Empty(t, resumeHint(errors.New("boom")))
}

func TestCheckConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = filepath.Join(t.TempDir(), "exports")

	warnings, problems := checkConfig(cfg)
	assert.Empty(t, problems)
	assert.Contains(t, warnings, "portal slug not configured")
	assert.Contains(t, warnings, "child ID not configured")

	cfg.Educabiz.Slug = "happykids"
	cfg.Educabiz.ChildID = "4242"
	cfg.Educabiz.Username = "parent@example.com"
	cfg.Educabiz.Password = "secret"
	warnings, _ = checkConfig(cfg)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "plain text")
}

func TestReportedErrorUnwraps(t *testing.T) {
	err := reportedError{context.Canceled}
	assert.ErrorIs(t, err, context.Canceled)

	var reported reportedError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &reported))
}
