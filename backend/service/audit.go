package service

import (
	"context"
	"errors"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
)

// AuditService exposes the ledger to auditors and admins
type AuditService struct {
	store  *Store
	ledger *Ledger
}

func NewAuditService(store *Store, ledger *Ledger) *AuditService {
	return &AuditService{store: store, ledger: ledger}
}

// List returns ledger entries newest first
func (s *AuditService) List(ctx context.Context, actor model.Actor, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	if err := authorize(ctx, actor, ActAuditList); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, s.store.Queries(), filter)
}

// Verify checks the whole chain on behalf of actor
func (s *AuditService) Verify(ctx context.Context, actor model.Actor) (int, error) {
	if err := authorize(ctx, actor, ActAuditVerify); err != nil {
		return 0, err
	}
	return s.VerifyChain(ctx)
}

// VerifyChain checks the whole chain. A broken chain is reported, never repaired.
func (s *AuditService) VerifyChain(ctx context.Context) (int, error) {
	n, err := s.ledger.VerifyChain(ctx, s.store.Queries())
	var violation *IntegrityViolationError
	if errors.As(err, &violation) {
		logger.Error(ctx, "audit chain integrity violation",
			"entry_id", violation.EntryID,
			"reason", violation.Reason,
			"unverifiable", violation.Unverifiable,
		)
	}
	return n, err
}
