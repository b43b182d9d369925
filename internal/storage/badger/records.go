package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// UploadStorage implements interfaces.UploadStore.
type UploadStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewUploadStorage creates an upload store backed by db.
func NewUploadStorage(db *BadgerDB, logger *common.Logger) *UploadStorage {
	return &UploadStorage{db: db, logger: logger}
}

// SaveUpload stores rec keyed by statement ID.
func (s *UploadStorage) SaveUpload(_ context.Context, rec *models.UploadRecord) error {
	if rec == nil || rec.StatementID == "" {
		return fmt.Errorf("upload record requires a statement id")
	}
	if err := s.db.Store().Upsert(rec.StatementID, rec); err != nil {
		return fmt.Errorf("failed to save upload %s: %w", rec.StatementID, err)
	}
	return nil
}

// GetUpload fetches one upload record.
func (s *UploadStorage) GetUpload(_ context.Context, statementID string) (*models.UploadRecord, error) {
	var rec models.UploadRecord
	if err := s.db.Store().Get(statementID, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("upload %s: %w", statementID, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get upload %s: %w", statementID, err)
	}
	return &rec, nil
}

// ListUploads returns the most recent uploads first. limit <= 0 returns all.
func (s *UploadStorage) ListUploads(_ context.Context, limit int) ([]*models.UploadRecord, error) {
	var found []models.UploadRecord
	if err := s.db.Store().Find(&found, nil); err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	recs := make([]*models.UploadRecord, len(found))
	for i := range found {
		recs[i] = &found[i]
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UploadedAt.After(recs[j].UploadedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ConfirmationStorage implements interfaces.ConfirmationStore.
type ConfirmationStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewConfirmationStorage creates a confirmation store backed by db.
func NewConfirmationStorage(db *BadgerDB, logger *common.Logger) *ConfirmationStorage {
	return &ConfirmationStorage{db: db, logger: logger}
}

// SaveConfirmation stores rec keyed by its ref.
func (s *ConfirmationStorage) SaveConfirmation(_ context.Context, rec *models.ConfirmationRecord) error {
	if rec == nil || rec.Ref == "" {
		return fmt.Errorf("confirmation record requires a ref")
	}
	if err := s.db.Store().Upsert(rec.Ref, rec); err != nil {
		return fmt.Errorf("failed to save confirmation %s: %w", rec.Ref, err)
	}
	return nil
}

// GetConfirmation fetches one confirmation record.
func (s *ConfirmationStorage) GetConfirmation(_ context.Context, ref string) (*models.ConfirmationRecord, error) {
	var rec models.ConfirmationRecord
	if err := s.db.Store().Get(ref, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("confirmation %s: %w", ref, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get confirmation %s: %w", ref, err)
	}
	return &rec, nil
}
