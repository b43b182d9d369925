// Command loan-mcp serves the portal's MCP tools on their own, over stdio for
// desktop clients or streamable HTTP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/loan-portal/internal/client"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/confirm"
	"github.com/bobmcallan/loan-portal/internal/mcp"
	"github.com/bobmcallan/loan-portal/internal/prediction"
	"github.com/bobmcallan/loan-portal/internal/storage"
)

func main() {
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop MCP clients)")
	configFile := flag.String("config", "config/loan-portal.toml", "Path to config file")
	envFile := flag.String("env", ".env", "Environment file loaded before config (missing file is ignored)")
	port := flag.Int("port", 8501, "Streamable HTTP port")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to load env file %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	}

	var paths []string
	if _, err := os.Stat(*configFile); err == nil {
		paths = append(paths, *configFile)
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Backend.URL == "" {
		fmt.Fprintln(os.Stderr, "backend.url is required (or LOAN_BACKEND_URL / BACKEND_URL)")
		os.Exit(1)
	}

	// stdout belongs to the protocol in stdio mode.
	var logger *common.Logger
	if *stdio {
		logger = common.NewLoggerWithOutput(cfg.Logging.Level, os.Stderr)
	} else {
		logger = common.NewLoggerFromConfig(common.LoggingConfig{
			Level:      cfg.Logging.Level,
			Outputs:    cfg.Logging.Outputs,
			FilePath:   cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open storage")
		os.Exit(1)
	}
	defer store.Close()

	backend := client.NewBackendClient(cfg.Backend.URL,
		client.WithTimeout(cfg.Backend.GetTimeout()),
		client.WithPredictionMode(cfg.Backend.PredictionMode),
		client.WithConfirmMode(cfg.Backend.ConfirmMode),
		client.WithKeyPrefix(cfg.Upload.KeyPrefix),
	)
	poller := prediction.NewPoller(backend, cfg.Prediction, logger,
		prediction.WithRefStore(store.KeyValueStorage()),
	)
	confirmer := confirm.NewGuarded(confirm.NewSubmitter(backend, store.ConfirmationStore(), logger))

	keyPrefix := cfg.Upload.KeyPrefix
	handler := mcp.NewHandler(mcp.Services{
		Predictions: poller,
		Confirmer:   confirmer,
		Backend:     backend,
		StorageKey:  func(statementID string) string { return keyPrefix + statementID },
	}, logger)

	if *stdio {
		if err := server.ServeStdio(handler.Server()); err != nil {
			logger.Error().Err(err).Msg("stdio server error")
			os.Exit(1)
		}
		return
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, *port)
	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	logger.Info().Str("addr", addr).Str("backend", cfg.Backend.URL).Msg("Starting MCP Streamable HTTP")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("http server error")
		os.Exit(1)
	}
}
