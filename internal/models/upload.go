package models

import "time"

// UploadResult describes a statement stored in the bucket. StatementID is
// the unique file name used in /results/{statement_id}.
type UploadResult struct {
	StorageKey  string    `json:"storage_key"`
	StatementID string    `json:"statement_id"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Pages       int       `json:"pages"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// UploadRecord is the persisted form of an UploadResult.
type UploadRecord struct {
	StatementID string `badgerhold:"key"`
	StorageKey  string
	FileName    string
	MimeType    string
	SizeBytes   int64
	Pages       int
	UploadedAt  time.Time
}

// NewUploadRecord converts an UploadResult for storage.
func NewUploadRecord(r *UploadResult) *UploadRecord {
	return &UploadRecord{
		StatementID: r.StatementID,
		StorageKey:  r.StorageKey,
		FileName:    r.FileName,
		MimeType:    r.MimeType,
		SizeBytes:   r.SizeBytes,
		Pages:       r.Pages,
		UploadedAt:  r.UploadedAt,
	}
}

// ConfirmationRecord notes that a user agreed with a decision.
type ConfirmationRecord struct {
	Ref         string `badgerhold:"key"`
	StatementID string
	ConfirmedAt time.Time
}
