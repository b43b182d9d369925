package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/loan-portal/internal/cache"
	"github.com/bobmcallan/loan-portal/internal/client"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/confirm"
	"github.com/bobmcallan/loan-portal/internal/handlers"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/mcp"
	"github.com/bobmcallan/loan-portal/internal/prediction"
	"github.com/bobmcallan/loan-portal/internal/storage"
	"github.com/bobmcallan/loan-portal/internal/storage/gcs"
	"github.com/bobmcallan/loan-portal/internal/upload"
)

// uploadOverheadBytes is allowed on top of the file limit for multipart
// framing and form fields.
const uploadOverheadBytes = 1 << 20

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage       interfaces.StorageManager
	Signer        interfaces.ObjectSigner
	Backend       *client.BackendClient
	Cache         *cache.ResponseCache
	Uploads       *upload.Client
	Predictions   *prediction.Poller
	Confirmations *confirm.Guarded

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	UploadHandler       *handlers.UploadHandler
	ResultsHandler      *handlers.ResultsHandler
	ConfirmHandler      *handlers.ConfirmHandler
	MCPHandler          *mcp.Handler

	closeSigner func() error
}

// Option overrides a dependency, mainly for tests.
type Option func(*options)

type options struct {
	signer     interfaces.ObjectSigner
	httpClient *http.Client
}

// WithSigner uses s instead of a GCS signer built from config.
func WithSigner(s interfaces.ObjectSigner) Option {
	return func(o *options) { o.signer = s }
}

// WithHTTPClient uses hc for backend and storage requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE: signing with a local service-account key")
	} else if env != "prod" && env != "production" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.Storage = store

	if o.signer != nil {
		a.Signer = o.signer
	} else {
		signer, err := gcs.New(context.Background(), cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create storage signer: %w", err)
		}
		a.Signer = signer
		a.closeSigner = signer.Close
	}

	a.initServices(o.httpClient)
	a.initHandlers()

	logger.Info().
		Str("backend", cfg.Backend.URL).
		Str("bucket", cfg.Storage.GCS.Bucket).
		Msg("application initialization complete")

	return a, nil
}

// initServices wires the upload, prediction and confirmation services.
func (a *App) initServices(hc *http.Client) {
	pc := a.Config.Prediction
	a.Cache = cache.New(pc.GetCacheTTL(), pc.CacheEntries)

	backendOpts := []client.Option{
		client.WithTimeout(a.Config.Backend.GetTimeout()),
		client.WithPredictionMode(a.Config.Backend.PredictionMode),
		client.WithConfirmMode(a.Config.Backend.ConfirmMode),
		client.WithKeyPrefix(a.Config.Upload.KeyPrefix),
	}
	uploadOpts := []upload.Option{
		upload.WithCache(a.Cache),
		upload.WithUploadStore(a.Storage.UploadStore()),
	}
	if hc != nil {
		backendOpts = append(backendOpts, client.WithHTTPClient(hc))
		uploadOpts = append(uploadOpts, upload.WithHTTPClient(hc))
	}

	a.Backend = client.NewBackendClient(a.Config.Backend.URL, backendOpts...)
	a.Uploads = upload.NewClient(a.Signer, a.Config.Upload, a.Logger, uploadOpts...)
	a.Predictions = prediction.NewPoller(a.Backend, pc, a.Logger,
		prediction.WithCache(a.Cache),
		prediction.WithRefStore(a.Storage.KeyValueStorage()),
	)
	a.Confirmations = confirm.NewGuarded(
		confirm.NewSubmitter(a.Backend, a.Storage.ConfirmationStore(), a.Logger),
	)

	a.Logger.Debug().Msg("services initialized")
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.IsDevMode())
	a.PageHandler.SetUploadStore(a.Storage.UploadStore())

	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Backend)

	a.UploadHandler = handlers.NewUploadHandler(a.Logger, a.PageHandler, a.Uploads, a.Config.Upload.MaxSizeBytes())
	a.ResultsHandler = handlers.NewResultsHandler(a.Logger, a.PageHandler, a.Predictions, a.Uploads)
	a.ConfirmHandler = handlers.NewConfirmHandler(a.Logger, a.PageHandler, a.Confirmations, a.Predictions, a.Uploads)

	a.MCPHandler = mcp.NewHandler(mcp.Services{
		Predictions: a.Predictions,
		Confirmer:   a.Confirmations,
		Backend:     a.Backend,
		StorageKey:  a.Uploads.StorageKey,
	}, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// MaxRequestBytes is the request body limit: one upload plus framing.
func (a *App) MaxRequestBytes() int64 {
	return a.Config.Upload.MaxSizeBytes() + uploadOverheadBytes
}

// Close closes all application resources.
func (a *App) Close() error {
	var firstErr error
	if a.closeSigner != nil {
		if err := a.closeSigner(); err != nil {
			firstErr = err
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
