package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/loan-portal/internal/models"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// StorageManager provides access to the portal's local stores.
type StorageManager interface {
	UploadStore() UploadStore
	ConfirmationStore() ConfirmationStore
	KeyValueStorage() KeyValueStorage
	Close() error
}

// UploadStore records statements the portal has uploaded.
type UploadStore interface {
	SaveUpload(ctx context.Context, rec *models.UploadRecord) error
	GetUpload(ctx context.Context, statementID string) (*models.UploadRecord, error)
	ListUploads(ctx context.Context, limit int) ([]*models.UploadRecord, error)
}

// ConfirmationStore records decisions users agreed with.
type ConfirmationStore interface {
	SaveConfirmation(ctx context.Context, rec *models.ConfirmationRecord) error
	GetConfirmation(ctx context.Context, ref string) (*models.ConfirmationRecord, error)
}

// KeyValueStorage provides basic key-value operations. The portal keeps the
// latest statement_analysis_ref per statement here.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}
