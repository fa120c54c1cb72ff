package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Scan modes for the gallery feed
const (
	ScanModeExhaustive = "exhaustive"
	ScanModeFast       = "fast"
)

// SinceLast asks the exporter to reuse the date of the previous successful export
const SinceLast = "last"

// Config holds all configuration options for the exporter
type Config struct {
	// Portal account and target child
	Educabiz EducabizConfig `yaml:"educabiz" json:"educabiz"`

	// Gallery scan and export job settings
	Export ExportConfig `yaml:"export" json:"export"`

	// HTTP transport settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// EducabizConfig identifies the portal deployment and the account to export
type EducabizConfig struct {
	Slug      string `yaml:"slug" json:"slug"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	ChildID   string `yaml:"child_id" json:"child_id"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"password"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// ExportConfig controls the gallery scan and the export job polling
type ExportConfig struct {
	// Since is the inclusive cutoff date (YYYY-MM-DD), empty for no filter, or "last"
	Since           string        `yaml:"since" json:"since"`
	ScanMode        string        `yaml:"scan_mode" json:"scan_mode"`
	PollInterval    time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollTimeout     time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
	PollMaxAttempts int           `yaml:"poll_max_attempts" json:"poll_max_attempts"`
}

// HTTPConfig holds transport settings
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	SaveManifest      bool   `yaml:"save_manifest" json:"save_manifest"`
	ManifestFormat    string `yaml:"manifest_format" json:"manifest_format"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics output configuration
type MetricsConfig struct {
	// TextfilePath is written in Prometheus text format at the end of a run
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Educabiz: EducabizConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Export: ExportConfig{
			ScanMode:        ScanModeExhaustive,
			PollInterval:    time.Second,
			PollTimeout:     30 * time.Minute,
			PollMaxAttempts: 0, // 0 means bounded by PollTimeout only
		},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			BaseDirectory:     ".",
			OverwriteExisting: false,
			SaveManifest:      true,
			ManifestFormat:    "json",
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if slug := os.Getenv("EDUCABIZ_SLUG"); slug != "" {
		c.Educabiz.Slug = slug
	}
	if baseURL := os.Getenv("EDUCABIZ_BASE_URL"); baseURL != "" {
		c.Educabiz.BaseURL = baseURL
	}
	if childID := os.Getenv("EDUCABIZ_CHILD_ID"); childID != "" {
		c.Educabiz.ChildID = childID
	}
	if username := os.Getenv("EDUCABIZ_USERNAME"); username != "" {
		c.Educabiz.Username = username
	}
	if password := os.Getenv("EDUCABIZ_PASSWORD"); password != "" {
		c.Educabiz.Password = password
	}
	if userAgent := os.Getenv("EDUCABIZ_USER_AGENT"); userAgent != "" {
		c.Educabiz.UserAgent = userAgent
	}

	if since := os.Getenv("EDUCABIZ_SINCE"); since != "" {
		c.Export.Since = since
	}
	if mode := os.Getenv("EDUCABIZ_SCAN_MODE"); mode != "" {
		c.Export.ScanMode = strings.ToLower(mode)
	}
	if timeout := os.Getenv("EDUCABIZ_POLL_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid EDUCABIZ_POLL_TIMEOUT: %w", err)
		}
		c.Export.PollTimeout = d
	}

	if rpm := os.Getenv("EDUCABIZ_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid EDUCABIZ_REQUESTS_PER_MINUTE: %w", err)
		}
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if outputDir := os.Getenv("EDUCABIZ_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if notifEnabled := os.Getenv("EDUCABIZ_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv("EDUCABIZ_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if metricsFile := os.Getenv("EDUCABIZ_METRICS_FILE"); metricsFile != "" {
		c.Metrics.TextfilePath = metricsFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"ebexport.yaml",
		".ebexport.yaml",
		".ebexport.yml",
		filepath.Join(home, ".config", "ebexport", "config.yaml"),
		filepath.Join(home, ".config", "ebexport", "config.yml"),
		filepath.Join(home, ".ebexport.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks value ranges and enums. Credentials are checked separately by
// ValidateCredentials because they may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	switch c.Export.ScanMode {
	case ScanModeExhaustive, ScanModeFast:
	default:
		errs = append(errs, fmt.Errorf("invalid scan mode %q (want %s or %s)", c.Export.ScanMode, ScanModeExhaustive, ScanModeFast))
	}
	if _, err := ParseSince(c.Export.Since); err != nil && c.Export.Since != SinceLast {
		errs = append(errs, err)
	}
	if c.Export.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Export.PollTimeout < 0 {
		errs = append(errs, errors.New("poll timeout cannot be negative"))
	}
	if c.Export.PollMaxAttempts < 0 {
		errs = append(errs, errors.New("poll max attempts cannot be negative"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	validFormats := map[string]bool{"json": true, "yaml": true}
	if !validFormats[strings.ToLower(c.Output.ManifestFormat)] {
		errs = append(errs, errors.New("invalid manifest format"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if c.Educabiz.BaseURL != "" {
		if u, err := url.Parse(c.Educabiz.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid base URL %q", c.Educabiz.BaseURL))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks that everything needed to reach the portal is set
func (c *Config) ValidateCredentials() error {
	var errs []error

	if c.Educabiz.Slug == "" && c.Educabiz.BaseURL == "" {
		errs = append(errs, errors.New("portal slug is required (EDUCABIZ_SLUG)"))
	}
	if c.Educabiz.ChildID == "" {
		errs = append(errs, errors.New("child ID is required (EDUCABIZ_CHILD_ID)"))
	}
	if c.Educabiz.Username == "" {
		errs = append(errs, errors.New("username is required (EDUCABIZ_USERNAME)"))
	}
	if c.Educabiz.Password == "" {
		errs = append(errs, errors.New("password is required (EDUCABIZ_PASSWORD)"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// BaseURL returns the portal root for this deployment
func (c *Config) BaseURL() string {
	if c.Educabiz.BaseURL != "" {
		return strings.TrimRight(c.Educabiz.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.educabiz.com", c.Educabiz.Slug)
}

// ParseSince parses a cutoff date in YYYY-MM-DD form as midnight UTC.
// An empty value means no filter and yields the Unix epoch.
func ParseSince(value string) (time.Time, error) {
	if value == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since date %q (want YYYY-MM-DD)", value)
	}
	return t, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sanitized returns a copy with the password masked, for display
func (c *Config) Sanitized() *Config {
	out := *c
	if out.Educabiz.Password != "" {
		out.Educabiz.Password = "********"
	}
	return &out
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if slug, ok := flags["slug"].(string); ok && slug != "" {
		c.Educabiz.Slug = slug
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Educabiz.BaseURL = baseURL
	}
	if childID, ok := flags["child-id"].(string); ok && childID != "" {
		c.Educabiz.ChildID = childID
	}
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Educabiz.Username = username
	}
	if since, ok := flags["since"].(string); ok && since != "" {
		c.Export.Since = since
	}
	if fast, ok := flags["fast-scan"].(bool); ok && fast {
		c.Export.ScanMode = ScanModeFast
	}
	if timeout, ok := flags["poll-timeout"].(time.Duration); ok && timeout > 0 {
		c.Export.PollTimeout = timeout
	}
	if attempts, ok := flags["poll-max-attempts"].(int); ok && attempts > 0 {
		c.Export.PollMaxAttempts = attempts
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if overwrite, ok := flags["overwrite"].(bool); ok && overwrite {
		c.Output.OverwriteExisting = true
	}
	if enabled, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Metrics.TextfilePath = metricsFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ebexport.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
