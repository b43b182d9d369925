package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4250,
			Host: "localhost",
		},
		Backend: BackendConfig{
			URL:            "http://localhost:8000",
			Timeout:        "120s",
			PredictionMode: "post_query",
			ConfirmMode:    "json",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/loan-portal",
			},
		},
		Upload: UploadConfig{
			MaxSizeMB:      20,
			KeyPrefix:      "statements/",
			WriteURLExpiry: "15m",
			ReadURLExpiry:  "120m",
		},
		Prediction: PredictionConfig{
			PollInterval: "1s",
			MaxInterval:  "10s",
			MaxAttempts:  8,
			MaxWait:      "60s",
			CacheTTL:     "5m",
			CacheEntries: 256,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
