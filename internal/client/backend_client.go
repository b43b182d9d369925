package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Prediction modes select how the backend is asked for an analysis.
const (
	PredictionModePostQuery = "post_query"
	PredictionModeGetPath   = "get_path"
)

// Confirmation modes select how the statement ref is sent.
const (
	ConfirmModeJSON  = "json"
	ConfirmModeQuery = "query"
)

const maxBodyBytes = 8 << 20

// Response is a raw backend reply. Non-2xx statuses are not errors at this
// layer; callers classify them.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 200 reply.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Option configures a BackendClient.
type Option func(*BackendClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *BackendClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BackendClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPredictionMode selects post_query or get_path.
func WithPredictionMode(mode string) Option {
	return func(c *BackendClient) {
		if mode != "" {
			c.predictionMode = mode
		}
	}
}

// WithConfirmMode selects json or query.
func WithConfirmMode(mode string) Option {
	return func(c *BackendClient) {
		if mode != "" {
			c.confirmMode = mode
		}
	}
}

// WithKeyPrefix sets the storage key prefix stripped for get_path lookups.
func WithKeyPrefix(prefix string) Option {
	return func(c *BackendClient) {
		c.keyPrefix = prefix
	}
}

// BackendClient talks to the loan analysis backend.
type BackendClient struct {
	baseURL        string
	httpClient     *http.Client
	predictionMode string
	confirmMode    string
	keyPrefix      string
}

// NewBackendClient creates a client for the backend at baseURL.
func NewBackendClient(baseURL string, opts ...Option) *BackendClient {
	c := &BackendClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 120 * time.Second},
		predictionMode: PredictionModePostQuery,
		confirmMode:    ConfirmModeJSON,
		keyPrefix:      "statements/",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root URL.
func (c *BackendClient) BaseURL() string {
	return c.baseURL
}

// GetLoanPrediction asks the backend to analyse the statement stored at
// storageKey.
//
//	post_query: POST /get_loan_prediction_endpoint/?statement_pdf_blob={storageKey}
//	get_path:   GET  /api/loan_prediction/{statement_id}
func (c *BackendClient) GetLoanPrediction(ctx context.Context, storageKey string) (*Response, error) {
	var (
		method string
		target string
	)
	switch c.predictionMode {
	case PredictionModeGetPath:
		id := strings.TrimPrefix(storageKey, c.keyPrefix)
		method = http.MethodGet
		target = c.baseURL + "/api/loan_prediction/" + url.PathEscape(id)
	default:
		method = http.MethodPost
		target = c.baseURL + "/get_loan_prediction_endpoint/?" + url.Values{"statement_pdf_blob": {storageKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// SaveTrainingDatapoint asks the backend to keep the analysis identified by
// ref as a labeled training example.
func (c *BackendClient) SaveTrainingDatapoint(ctx context.Context, ref string) (*Response, error) {
	target := c.baseURL + "/save_training_datapoint_endpoint/"

	var body io.Reader
	if c.confirmMode == ConfirmModeQuery {
		target += "?" + url.Values{"statement_analysis_ref": {ref}}.Encode()
	} else {
		data, err := json.Marshal(map[string]string{"statement_analysis_ref": ref})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("build confirmation request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// Ping reports whether the backend answers on its root path. Any status
// below 500 counts as up.
func (c *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return nil
}

func (c *BackendClient) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
