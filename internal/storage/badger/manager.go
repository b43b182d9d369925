package badger

import (
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
)

// Manager implements interfaces.StorageManager on a single Badger database.
type Manager struct {
	db            *BadgerDB
	uploads       *UploadStorage
	confirmations *ConfirmationStorage
	kv            *KVStorage
	logger        *common.Logger
}

// NewManager opens the database and builds every store on it.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:            db,
		uploads:       NewUploadStorage(db, logger),
		confirmations: NewConfirmationStorage(db, logger),
		kv:            NewKVStorage(db, logger),
		logger:        logger,
	}
	logger.Debug().Msg("Badger storage manager initialized")
	return m, nil
}

var _ interfaces.StorageManager = (*Manager)(nil)

// UploadStore returns the upload record store.
func (m *Manager) UploadStore() interfaces.UploadStore {
	return m.uploads
}

// ConfirmationStore returns the confirmation record store.
func (m *Manager) ConfirmationStore() interfaces.ConfirmationStore {
	return m.confirmations
}

// KeyValueStorage returns the key-value store.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
