package common

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// IntegrationEnv gates the container and browser suites.
const IntegrationEnv = "LOAN_PORTAL_INTEGRATION"

type TestConfig struct {
	Results struct {
		Dir string `toml:"dir"`
	} `toml:"results"`
	Browser struct {
		Headless    bool `toml:"headless"`
		TimeoutSecs int  `toml:"timeout_seconds"`
	} `toml:"browser"`
	GCS struct {
		Image  string `toml:"image"`
		Bucket string `toml:"bucket"`
	} `toml:"gcs"`
}

var (
	globalConfig     *TestConfig
	globalConfigOnce sync.Once
	resultsDir       string
	resultsDirOnce   sync.Once
)

func LoadTestConfig() *TestConfig {
	globalConfigOnce.Do(func() {
		globalConfig = &TestConfig{}
		globalConfig.Results.Dir = "tests/results"
		globalConfig.Browser.Headless = true
		globalConfig.Browser.TimeoutSecs = 60
		globalConfig.GCS.Image = "fsouza/fake-gcs-server:1.52"
		globalConfig.GCS.Bucket = "loan-statements-test"

		configPaths := []string{
			"tests/test_config.toml",
			"../test_config.toml",
			"test_config.toml",
		}
		for _, path := range configPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := toml.Unmarshal(data, globalConfig); err == nil {
				return
			}
		}
	})
	return globalConfig
}

// RequireIntegration skips t unless the integration suites are enabled.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests skipped in short mode")
	}
	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s=1 to run integration tests", IntegrationEnv)
	}
}

func GetResultsDir() string {
	if dir := os.Getenv("LOAN_PORTAL_TEST_RESULTS_DIR"); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	resultsDirOnce.Do(func() {
		baseDir := LoadTestConfig().Results.Dir
		if !filepath.IsAbs(baseDir) {
			if wd, err := os.Getwd(); err == nil && filepath.Base(filepath.Dir(wd)) == "tests" {
				baseDir = filepath.Join("..", "..", baseDir)
			}
		}
		resultsDir = filepath.Join(baseDir, time.Now().Format("2006-01-02-15-04-05"))
		if err := os.MkdirAll(resultsDir, 0755); err != nil {
			panic("failed to create results dir: " + err.Error())
		}
	})
	return resultsDir
}

func GetScreenshotDir(subdir string) string {
	dir := filepath.Join(GetResultsDir(), subdir)
	os.MkdirAll(dir, 0755)
	return dir
}
