package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Backend     BackendConfig    `toml:"backend"`
	Storage     StorageConfig    `toml:"storage"`
	Upload      UploadConfig     `toml:"upload"`
	Prediction  PredictionConfig `toml:"prediction"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BackendConfig points at the loan decision backend.
// PredictionMode is "post_query" or "get_path"; ConfirmMode is "json" or "query".
type BackendConfig struct {
	URL            string `toml:"url"`
	Timeout        string `toml:"timeout"`
	PredictionMode string `toml:"prediction_mode"`
	ConfirmMode    string `toml:"confirm_mode"`
}

// GetTimeout parses and returns the backend request timeout.
func (c *BackendConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	GCS    GCSConfig    `toml:"gcs"`
	Badger BadgerConfig `toml:"badger"`
}

// GCSConfig holds the statement bucket and signing credentials.
// ClientEmail and PrivateKey are only used in dev mode; prod relies on
// application default credentials.
type GCSConfig struct {
	Bucket          string `toml:"bucket"`
	ProjectID       string `toml:"project_id"`
	ClientEmail     string `toml:"client_email"`
	PrivateKey      string `toml:"private_key"`
	CredentialsFile string `toml:"credentials_file"`
	Hostname        string `toml:"hostname"` // emulator host, e.g. "localhost:4443"
	Insecure        bool   `toml:"insecure"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// UploadConfig governs statement uploads.
type UploadConfig struct {
	MaxSizeMB      int    `toml:"max_size_mb"`
	KeyPrefix      string `toml:"key_prefix"`
	WriteURLExpiry string `toml:"write_url_expiry"`
	ReadURLExpiry  string `toml:"read_url_expiry"`
}

// GetWriteURLExpiry returns the lifetime of signed upload URLs.
func (c *UploadConfig) GetWriteURLExpiry() time.Duration {
	return parseDuration(c.WriteURLExpiry, 15*time.Minute)
}

// GetReadURLExpiry returns the lifetime of signed download URLs.
func (c *UploadConfig) GetReadURLExpiry() time.Duration {
	return parseDuration(c.ReadURLExpiry, 120*time.Minute)
}

// MaxSizeBytes returns the upload size cap in bytes.
func (c *UploadConfig) MaxSizeBytes() int64 {
	if c.MaxSizeMB <= 0 {
		return 20 << 20
	}
	return int64(c.MaxSizeMB) << 20
}

// PredictionConfig bounds how long the portal waits for an analysis.
type PredictionConfig struct {
	PollInterval string `toml:"poll_interval"`
	MaxInterval  string `toml:"max_interval"`
	MaxAttempts  int    `toml:"max_attempts"`
	MaxWait      string `toml:"max_wait"`
	CacheTTL     string `toml:"cache_ttl"`
	CacheEntries int    `toml:"cache_entries"`
}

// GetPollInterval returns the initial backoff between fetches.
func (c *PredictionConfig) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, time.Second)
}

// GetMaxInterval returns the backoff cap.
func (c *PredictionConfig) GetMaxInterval() time.Duration {
	return parseDuration(c.MaxInterval, 10*time.Second)
}

// GetMaxWait returns the overall waiting budget.
func (c *PredictionConfig) GetMaxWait() time.Duration {
	return parseDuration(c.MaxWait, 60*time.Second)
}

// GetCacheTTL returns how long ready predictions are cached.
func (c *PredictionConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 5*time.Minute)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the portal runs with development credentials.
func (c *Config) IsDevMode() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "dev" || env == "development"
}

// BaseURL returns the portal's own base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports mandatory fields that are missing or invalid.
func (c *Config) Validate() []string {
	var issues []string
	if strings.TrimSpace(c.Backend.URL) == "" {
		issues = append(issues, "backend.url is required (BACKEND_URL)")
	} else if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		issues = append(issues, fmt.Sprintf("backend.url must be an http(s) URL, got %q", c.Backend.URL))
	}
	if strings.TrimSpace(c.Storage.GCS.Bucket) == "" {
		issues = append(issues, "storage.gcs.bucket is required (GCP_BUCKET_NAME)")
	}
	if c.IsDevMode() {
		if c.Storage.GCS.ClientEmail == "" {
			issues = append(issues, "storage.gcs.client_email is required in dev mode (CLIENT_EMAIL)")
		}
		if c.Storage.GCS.PrivateKey == "" {
			issues = append(issues, "storage.gcs.private_key is required in dev mode (GCS_PRIVATE_KEY)")
		}
	}
	switch c.Backend.PredictionMode {
	case "post_query", "get_path":
	default:
		issues = append(issues, fmt.Sprintf("backend.prediction_mode must be post_query or get_path, got %q", c.Backend.PredictionMode))
	}
	switch c.Backend.ConfirmMode {
	case "json", "query":
	default:
		issues = append(issues, fmt.Sprintf("backend.confirm_mode must be json or query, got %q", c.Backend.ConfirmMode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	return issues
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies LOAN_* and legacy front-end environment variables.
// LOAN_* names win over the legacy names when both are set.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NODE_ENV"); env != "" {
		config.Environment = env
	}
	if env := os.Getenv("LOAN_ENVIRONMENT"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("LOAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LOAN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	setString(&config.Backend.URL, "BACKEND_URL", "LOAN_BACKEND_URL")
	setString(&config.Backend.Timeout, "LOAN_BACKEND_TIMEOUT")
	setString(&config.Backend.PredictionMode, "LOAN_BACKEND_PREDICTION_MODE")
	setString(&config.Backend.ConfirmMode, "LOAN_BACKEND_CONFIRM_MODE")

	setString(&config.Storage.GCS.Bucket, "GCP_BUCKET_NAME", "LOAN_GCS_BUCKET")
	setString(&config.Storage.GCS.ProjectID, "PROJECT_ID", "LOAN_GCS_PROJECT_ID")
	setString(&config.Storage.GCS.ClientEmail, "CLIENT_EMAIL", "LOAN_GCS_CLIENT_EMAIL")
	setString(&config.Storage.GCS.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS", "LOAN_GCS_CREDENTIALS_FILE")
	setString(&config.Storage.GCS.Hostname, "LOAN_GCS_HOSTNAME")
	var key string
	setString(&key, "GCS_PRIVATE_KEY", "LOAN_GCS_PRIVATE_KEY")
	if key != "" {
		// Keys pasted into .env files usually carry literal "\n" sequences.
		config.Storage.GCS.PrivateKey = strings.ReplaceAll(key, `\n`, "\n")
	}
	setString(&config.Storage.Badger.Path, "LOAN_BADGER_PATH")

	if size := os.Getenv("LOAN_UPLOAD_MAX_SIZE_MB"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			config.Upload.MaxSizeMB = n
		}
	}
	setString(&config.Prediction.MaxWait, "LOAN_PREDICTION_MAX_WAIT")

	setString(&config.Logging.Level, "LOAN_LOG_LEVEL")
	setString(&config.Logging.Format, "LOAN_LOG_FORMAT")
}

// setString assigns the last non-empty env var among names to dst.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
