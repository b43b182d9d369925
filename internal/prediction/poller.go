// Package prediction fetches the backend's statement analysis and decides
// whether it is ready, still pending, or failed.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bobmcallan/loan-portal/internal/cache"
	"github.com/bobmcallan/loan-portal/internal/client"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/models"
)

// ServerFailureMessage is shown to users for every fetch failure.
const ServerFailureMessage = "Server Failure. Please try again."

// refKeyPrefix namespaces statement refs in the key-value store.
const refKeyPrefix = "ref:"

var errPending = errors.New("analysis pending")

// State is the result of one fetch.
type State int

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Outcome is a tagged fetch result: Response is set only when Ready, Err
// only when Failed.
type Outcome struct {
	State    State
	Response *models.FetchResponse
	Err      error
	Attempts int
}

// Backend is the part of the backend client the poller uses.
type Backend interface {
	GetLoanPrediction(ctx context.Context, storageKey string) (*client.Response, error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithCache caches ready responses.
func WithCache(rc *cache.ResponseCache) Option {
	return func(p *Poller) { p.cache = rc }
}

// WithRefStore remembers the latest statement ref per storage key.
func WithRefStore(kv interfaces.KeyValueStorage) Option {
	return func(p *Poller) { p.refs = kv }
}

// Poller fetches predictions.
type Poller struct {
	backend Backend
	cfg     config.PredictionConfig
	cache   *cache.ResponseCache
	refs    interfaces.KeyValueStorage
	logger  *common.Logger
}

// NewPoller creates a Poller.
func NewPoller(backend Backend, cfg config.PredictionConfig, logger *common.Logger, opts ...Option) *Poller {
	p := &Poller{backend: backend, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch asks the backend once. 202 and 425 mean the analysis is not ready.
func (p *Poller) Fetch(ctx context.Context, storageKey string) Outcome {
	if resp, ok := p.Cached(storageKey); ok {
		return Outcome{State: StateReady, Response: resp}
	}

	raw, err := p.backend.GetLoanPrediction(ctx, storageKey)
	if err != nil {
		return failed(failure.Server(0, ServerFailureMessage, err))
	}

	switch raw.StatusCode {
	case http.StatusOK:
	case http.StatusAccepted, http.StatusTooEarly:
		return Outcome{State: StatePending}
	default:
		detail := strings.TrimSpace(string(raw.Body))
		return failed(failure.Server(raw.StatusCode, ServerFailureMessage, fmt.Errorf("backend: %s", detail)))
	}

	resp, err := decode(raw.Body)
	if err != nil {
		return failed(failure.Server(raw.StatusCode, ServerFailureMessage, err))
	}

	if p.cache != nil {
		p.cache.Set(cache.MakeKey(cache.PredictionTag, storageKey), &cache.CachedResponse{StatusCode: raw.StatusCode, Body: raw.Body})
	}
	if p.refs != nil {
		if err := p.refs.Set(ctx, refKeyPrefix+storageKey, resp.StatementAnalysisRef); err != nil {
			p.logger.Warn().Err(err).Str("key", storageKey).Msg("Failed to remember statement ref")
		}
	}
	return Outcome{State: StateReady, Response: resp}
}

// Cached returns the ready analysis for storageKey without asking the
// backend. Undecodable entries are dropped.
func (p *Poller) Cached(storageKey string) (*models.FetchResponse, bool) {
	if p.cache == nil {
		return nil, false
	}
	key := cache.MakeKey(cache.PredictionTag, storageKey)
	cached, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	resp, err := decode(cached.Body)
	if err != nil {
		p.cache.Delete(key)
		return nil, false
	}
	return resp, true
}

// Wait retries Fetch with capped exponential backoff while the analysis is
// pending. When the budget runs out the last Pending outcome is returned.
// Cancelling ctx stops waiting with a Failed outcome.
func (p *Poller) Wait(ctx context.Context, storageKey string) Outcome {
	attempts := p.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := retry.NewExponential(p.cfg.GetPollInterval())
	b = retry.WithCappedDuration(p.cfg.GetMaxInterval(), b)
	b = retry.WithMaxDuration(p.cfg.GetMaxWait(), b)
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	start := time.Now()
	var out Outcome
	n := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		n++
		out = p.Fetch(ctx, storageKey)
		if out.State == StatePending {
			return retry.RetryableError(errPending)
		}
		return nil
	})
	out.Attempts = n

	if ctxErr := ctx.Err(); ctxErr != nil && out.State != StateReady {
		out = Outcome{State: StateFailed, Err: ctxErr, Attempts: n}
	}

	logEvent := p.logger.Info()
	if out.State == StateFailed {
		logEvent = p.logger.Warn().Err(out.Err)
	}
	logEvent.
		Str("key", storageKey).
		Str("state", out.State.String()).
		Int("attempts", n).
		Dur("elapsed", time.Since(start)).
		Bool("budget_exhausted", errors.Is(err, errPending)).
		Msg("Prediction wait finished")

	return out
}

// RefFor returns the last statement ref seen for storageKey.
func (p *Poller) RefFor(ctx context.Context, storageKey string) (string, error) {
	if p.refs == nil {
		return "", fmt.Errorf("ref for %s: %w", storageKey, interfaces.ErrNotFound)
	}
	return p.refs.Get(ctx, refKeyPrefix+storageKey)
}

func decode(body []byte) (*models.FetchResponse, error) {
	var resp models.FetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if err := models.Validate(&resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &resp, nil
}

func failed(err error) Outcome {
	return Outcome{State: StateFailed, Err: err}
}
