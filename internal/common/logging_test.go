package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerFromConfig_ReturnsNonNil(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{Level: "error", Outputs: []string{"console"}})
	if logger == nil {
		t.Fatal("NewLoggerFromConfig returned nil")
	}
}

func TestNewLoggerFromConfig_FluentAPI(t *testing.T) {
	// Must not panic
	logger := NewLoggerFromConfig(LoggingConfig{Level: "error"})
	logger.Info().Str("key", "value").Msg("test message")
	logger.Warn().Int("count", 42).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Float64("rate", 3.14).Bool("ok", true).Msg("debug")
}

func TestNewLoggerFromConfig_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logger := NewLoggerFromConfig(LoggingConfig{
		Level:    "info",
		Outputs:  []string{"file"},
		FilePath: dir + "/portal.log",
	})
	logger.Info().Str("statement_id", "abc").Msg("file output")
}

func TestNewLoggerWithOutput_WritesToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)
	logger.Info().Str("key", "value").Msg("hello")

	if buf.String() == "" {
		t.Error("expected output to provided writer, got empty string")
	}
}

func TestNewSilentLogger_DoesNotWriteToGlobalWriters(t *testing.T) {
	var buf bytes.Buffer
	_ = NewLoggerWithOutput("info", &buf)
	buf.Reset()

	silent := NewSilentLogger()
	silent.Info().Str("leak", "check").Msg("silent message")

	if strings.Contains(buf.String(), "silent message") {
		t.Errorf("silent logger leaked output to global writer: %q", buf.String())
	}
}

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	logger := NewSilentLogger()
	scoped := logger.WithCorrelationId("req-1")
	if scoped == nil || scoped == logger {
		t.Fatal("expected a distinct scoped logger")
	}
	scoped.Info().Msg("scoped")
}
