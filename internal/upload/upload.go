// Package upload validates statement PDFs and writes them to the bucket
// through signed URLs.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/loan-portal/internal/cache"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/models"
)

// PDFMimeType is the only accepted content type.
const PDFMimeType = "application/pdf"

const (
	msgNoFile     = "Please select a PDF file to upload."
	msgNotPDF     = "Only PDF files are accepted."
	msgInvalidPDF = "The selected file is not a readable PDF."
	msgUpload     = "Upload failed. Please select the file and try again."
	maxNameLength = 120
)

// File is a user-selected statement.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Target is a granted write location.
type Target struct {
	URL         string    `json:"url"`
	StorageKey  string    `json:"storage_key"`
	StatementID string    `json:"statement_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for the storage PUT.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache sets the prediction cache to invalidate after each upload.
func WithCache(rc *cache.ResponseCache) Option {
	return func(c *Client) { c.cache = rc }
}

// WithUploadStore sets where successful uploads are recorded.
func WithUploadStore(s interfaces.UploadStore) Option {
	return func(c *Client) { c.uploads = s }
}

// Client uploads statements to object storage with signed URLs.
type Client struct {
	signer     interfaces.ObjectSigner
	cfg        config.UploadConfig
	httpClient *http.Client
	cache      *cache.ResponseCache
	uploads    interfaces.UploadStore
	logger     *common.Logger
	newID      func() string
	now        func() time.Time
}

// NewClient creates an upload client.
func NewClient(signer interfaces.ObjectSigner, cfg config.UploadConfig, logger *common.Logger, opts ...Option) *Client {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "statements/"
	}
	c := &Client{
		signer:     signer,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StorageKey returns the object key for a statement ID.
func (c *Client) StorageKey(statementID string) string {
	return c.cfg.KeyPrefix + statementID
}

// Validate checks a selection before any network call: declared type, size,
// sniffed content and PDF structure.
func (c *Client) Validate(f File) error {
	_, err := c.inspect(f)
	return err
}

func (c *Client) inspect(f File) (int, error) {
	if strings.TrimSpace(f.Name) == "" || len(f.Data) == 0 {
		return 0, failure.Validation(msgNoFile)
	}
	if !isPDFType(f.MimeType) {
		return 0, failure.Validation(msgNotPDF)
	}
	if limit := c.cfg.MaxSizeBytes(); int64(len(f.Data)) > limit {
		return 0, failure.Validation(fmt.Sprintf("The file is larger than %d MB.", limit>>20))
	}
	if !mimetype.Detect(f.Data).Is(PDFMimeType) {
		return 0, failure.Validation(msgNotPDF)
	}
	pages, err := countPages(f.Data)
	if err != nil || pages < 1 {
		return 0, failure.Validation(msgInvalidPDF)
	}
	return pages, nil
}

func isPDFType(mimeType string) bool {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), PDFMimeType)
}

// countPages opens data with the PDF reader, which panics on some
// malformed input.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// RequestUploadTarget reserves a new unique key for fileName and signs a
// write URL bound to it and to mimeType.
func (c *Client) RequestUploadTarget(ctx context.Context, fileName, mimeType string) (*Target, error) {
	if !isPDFType(mimeType) {
		return nil, failure.Validation(msgNotPDF)
	}
	id := c.newID() + "-" + SanitizeFileName(fileName)
	key := c.StorageKey(id)
	expiry := c.cfg.GetWriteURLExpiry()

	u, err := c.signer.SignedWriteURL(ctx, key, PDFMimeType, expiry)
	if err != nil {
		return nil, failure.Upload(0, msgUpload, fmt.Errorf("sign write url: %w", err))
	}
	return &Target{
		URL:         u,
		StorageKey:  key,
		StatementID: id,
		ExpiresAt:   c.now().Add(expiry),
	}, nil
}

// Upload PUTs data to a signed URL. A non-2xx reply is a KindUpload error
// carrying the status. It is never retried.
func (c *Client) Upload(ctx context.Context, url string, data []byte, mimeType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return failure.Upload(0, msgUpload, err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.Upload(0, msgUpload, fmt.Errorf("put object: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return failure.Upload(resp.StatusCode, msgUpload, fmt.Errorf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return nil
}

// Submit validates, uploads and records a statement. On success every
// cached prediction is invalidated.
func (c *Client) Submit(ctx context.Context, f File) (*models.UploadResult, error) {
	pages, err := c.inspect(f)
	if err != nil {
		c.logger.Info().Str("file", f.Name).Str("mime", f.MimeType).Msg("Upload rejected")
		return nil, err
	}

	target, err := c.RequestUploadTarget(ctx, f.Name, PDFMimeType)
	if err != nil {
		c.logger.Error().Err(err).Str("file", f.Name).Msg("Failed to obtain upload target")
		return nil, err
	}

	if err := c.Upload(ctx, target.URL, f.Data, PDFMimeType); err != nil {
		c.logger.Warn().Err(err).Str("key", target.StorageKey).Msg("Statement upload failed")
		return nil, err
	}

	if c.cache != nil {
		n := c.cache.InvalidateTag(cache.PredictionTag)
		c.logger.Debug().Int("entries", n).Msg("Prediction cache invalidated")
	}

	result := &models.UploadResult{
		StorageKey:  target.StorageKey,
		StatementID: target.StatementID,
		FileName:    f.Name,
		MimeType:    PDFMimeType,
		SizeBytes:   int64(len(f.Data)),
		Pages:       pages,
		UploadedAt:  c.now().UTC(),
	}

	if c.uploads != nil {
		if err := c.uploads.SaveUpload(ctx, models.NewUploadRecord(result)); err != nil {
			c.logger.Warn().Err(err).Str("statement_id", result.StatementID).Msg("Failed to record upload")
		}
	}

	c.logger.Info().
		Str("statement_id", result.StatementID).
		Int64("bytes", result.SizeBytes).
		Int("pages", pages).
		Msg("Statement uploaded")

	return result, nil
}

// ReadURL signs a short-lived download URL for a stored statement.
func (c *Client) ReadURL(ctx context.Context, storageKey string) (string, error) {
	u, err := c.signer.SignedReadURL(ctx, storageKey, c.cfg.GetReadURLExpiry())
	if err != nil {
		return "", fmt.Errorf("sign read url: %w", err)
	}
	return u, nil
}

// SanitizeFileName reduces a client-supplied name to a safe path segment.
// Empty results become "statement.pdf".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		ok := r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			r = '_'
		}
		if r == '_' && lastUnderscore {
			continue
		}
		lastUnderscore = r == '_'
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "._")
	if len(out) > maxNameLength {
		out = strings.TrimLeft(out[len(out)-maxNameLength:], "._")
	}
	if out == "" {
		return "statement.pdf"
	}
	return out
}
