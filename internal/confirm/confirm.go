// Package confirm sends a user's agreement with a decision to the backend,
// which keeps the analysis as a labeled training example.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/loan-portal/internal/client"
	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/failure"
	"github.com/bobmcallan/loan-portal/internal/interfaces"
	"github.com/bobmcallan/loan-portal/internal/models"
)

const (
	msgMissingRef = "Statement reference is missing."
	msgFailed     = "Failed to save your confirmation. Please try again."
)

// Backend is the part of the backend client the submitter uses.
type Backend interface {
	SaveTrainingDatapoint(ctx context.Context, ref string) (*client.Response, error)
}

// Submitter issues exactly one backend request per call. It does not
// deduplicate; see Guarded.
type Submitter struct {
	backend Backend
	store   interfaces.ConfirmationStore
	logger  *common.Logger
	now     func() time.Time
}

// NewSubmitter creates a Submitter. store may be nil.
func NewSubmitter(backend Backend, store interfaces.ConfirmationStore, logger *common.Logger) *Submitter {
	return &Submitter{backend: backend, store: store, logger: logger, now: time.Now}
}

// Confirm submits ref. An empty ref fails validation without a request.
func (s *Submitter) Confirm(ctx context.Context, ref string) error {
	return s.ConfirmStatement(ctx, "", ref)
}

// ConfirmStatement is Confirm with the statement ID recorded alongside.
func (s *Submitter) ConfirmStatement(ctx context.Context, statementID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return failure.Validation(msgMissingRef)
	}

	resp, err := s.backend.SaveTrainingDatapoint(ctx, ref)
	if err != nil {
		return failure.Confirmation(0, msgFailed, err)
	}
	if !resp.OK() {
		return failure.Confirmation(resp.StatusCode, msgFailed,
			fmt.Errorf("backend: %s", strings.TrimSpace(string(resp.Body))))
	}

	if s.store != nil {
		rec := &models.ConfirmationRecord{Ref: ref, StatementID: statementID, ConfirmedAt: s.now().UTC()}
		if err := s.store.SaveConfirmation(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("ref", ref).Msg("Failed to record confirmation")
		}
	}

	s.logger.Info().Str("ref", ref).Str("statement_id", statementID).Msg("Decision confirmed")
	return nil
}

// Guarded collapses concurrent confirmations of the same ref into one
// submission, the way a disabled button would in a browser.
type Guarded struct {
	sub   *Submitter
	group singleflight.Group
}

// NewGuarded wraps sub.
func NewGuarded(sub *Submitter) *Guarded {
	return &Guarded{sub: sub}
}

// Confirm submits ref unless an identical submission is in flight, in which
// case it waits for and shares that result.
func (g *Guarded) Confirm(ctx context.Context, statementID, ref string) (shared bool, err error) {
	key := strings.TrimSpace(ref)
	if key == "" {
		return false, failure.Validation(msgMissingRef)
	}
	_, err, shared = g.group.Do(key, func() (interface{}, error) {
		return nil, g.sub.ConfirmStatement(ctx, statementID, key)
	})
	return shared, err
}
