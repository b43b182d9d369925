// Package gcs signs V4 URLs for the statement bucket.
package gcs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
)

// maxExpiry is the V4 signing limit.
const maxExpiry = 7 * 24 * time.Hour

// Signer issues signed URLs for one bucket. It is built once at startup and
// injected where needed.
type Signer struct {
	bucket     string
	client     *storage.Client
	projectID  string
	accessID   string
	privateKey []byte
	hostname   string
	insecure   bool
	now        func() time.Time
}

var _ interfaces.ObjectSigner = (*Signer)(nil)

// New picks the signing mode for cfg: explicit service-account key in dev
// mode, application default credentials otherwise.
func New(ctx context.Context, cfg *config.Config) (*Signer, error) {
	if cfg.IsDevMode() {
		return NewKeySigner(cfg.Storage.GCS)
	}
	return NewClientSigner(ctx, cfg.Storage.GCS)
}

// NewKeySigner signs locally with a service-account email and PEM key.
func NewKeySigner(cfg config.GCSConfig) (*Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}
	if cfg.ClientEmail == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("gcs: client_email and private_key are required for key signing")
	}
	return &Signer{
		bucket:     cfg.Bucket,
		projectID:  cfg.ProjectID,
		accessID:   cfg.ClientEmail,
		privateKey: []byte(cfg.PrivateKey),
		hostname:   cfg.Hostname,
		insecure:   cfg.Insecure,
		now:        time.Now,
	}, nil
}

// NewClientSigner signs through a storage client using application default
// credentials, or CredentialsFile when set.
func NewClientSigner(ctx context.Context, cfg config.GCSConfig) (*Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}

	client, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &Signer{
		bucket:    cfg.Bucket,
		client:    client,
		projectID: cfg.ProjectID,
		accessID:  cfg.ClientEmail,
		hostname:  cfg.Hostname,
		insecure:  cfg.Insecure,
		now:       time.Now,
	}, nil
}

// clientOptions maps cfg onto storage client options. ProjectID becomes the
// quota project billed for API calls.
func clientOptions(cfg config.GCSConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(cfg.ProjectID))
	}
	if cfg.Hostname != "" {
		scheme := "https"
		if cfg.Insecure {
			scheme = "http"
		}
		opts = append(opts, option.WithEndpoint(scheme+"://"+cfg.Hostname+"/storage/v1/"))
	}
	return opts
}

// Bucket returns the bucket name.
func (s *Signer) Bucket() string {
	return s.bucket
}

// ProjectID returns the configured quota project, empty when unset.
func (s *Signer) ProjectID() string {
	return s.projectID
}

// SignedWriteURL returns a PUT URL for key that only accepts contentType.
func (s *Signer) SignedWriteURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if contentType == "" {
		return "", fmt.Errorf("gcs: content type is required for write URLs")
	}
	return s.sign(ctx, key, http.MethodPut, contentType, expiry)
}

// SignedReadURL returns a GET URL for key.
func (s *Signer) SignedReadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.sign(ctx, key, http.MethodGet, "", expiry)
}

func (s *Signer) sign(ctx context.Context, key, method, contentType string, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("gcs: object key is required")
	}
	if expiry <= 0 || expiry > maxExpiry {
		return "", fmt.Errorf("gcs: expiry %s outside (0, %s]", expiry, maxExpiry)
	}

	opts := &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      method,
		ContentType: contentType,
		Expires:     s.now().Add(expiry),
		Hostname:    s.hostname,
		Insecure:    s.insecure,
	}

	var (
		u   string
		err error
	)
	if s.client != nil {
		if s.accessID != "" {
			opts.GoogleAccessID = s.accessID
		}
		u, err = s.client.Bucket(s.bucket).SignedURL(key, opts)
	} else {
		opts.GoogleAccessID = s.accessID
		opts.PrivateKey = s.privateKey
		u, err = storage.SignedURL(s.bucket, key, opts)
	}
	if err != nil {
		return "", fmt.Errorf("gcs: sign %s %s: %w", method, key, err)
	}
	return u, nil
}

// Close releases the storage client, if any.
func (s *Signer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
