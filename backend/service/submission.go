package service

import (
	"context"
	"strconv"
	"time"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/commitment"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
)

// SubmissionService places and reads bids. Anonymous bids store only the
// commitment digest and a nonce hint, never the bidder or the full nonce.
type SubmissionService struct {
	store            *Store
	ledger           *Ledger
	requirePublished bool
	now              func() time.Time
}

func NewSubmissionService(store *Store, ledger *Ledger, cfg *config.LifecycleConfig) *SubmissionService {
	svc := &SubmissionService{store: store, ledger: ledger, now: time.Now}
	if cfg != nil {
		svc.requirePublished = cfg.SubmissionsRequirePublished
	}
	return svc
}

// Create places a bid on a tender
func (s *SubmissionService) Create(ctx context.Context, actor model.Actor, in model.NewSubmission) (*model.Submission, error) {
	if err := authorize(ctx, actor, ActSubmissionCreate); err != nil {
		return nil, err
	}

	var sub *model.Submission
	err := s.store.InTx(ctx, func(q *Queries) error {
		tender, err := q.GetTender(ctx, in.TenderID)
		if err != nil {
			return err
		}
		if tender.Status != model.TenderPublished {
			if s.requirePublished {
				return invalidTransition("tender %d is %s, not accepting submissions", tender.ID, tender.Status)
			}
			logger.Warn(ctx, "submission on tender that is not published", "tender_id", tender.ID, "status", tender.Status)
		}

		sub, err = s.build(actor, in)
		if err != nil {
			return err
		}
		if err := q.InsertSubmission(ctx, sub); err != nil {
			return err
		}

		rec := AuditRecord{
			Action:       model.ActionSubmissionCreate,
			ResourceType: model.ResourceSubmission,
			ResourceID:   strconv.FormatInt(sub.ID, 10),
			Payload:      map[string]any{"tender_id": tender.ID, "is_anonymous": sub.IsAnonymous},
		}
		if !sub.IsAnonymous {
			rec.ActorID = &actor.ID
		}
		_, err = s.ledger.Append(ctx, q, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "submission created", "submission_id", sub.ID, "tender_id", sub.TenderID, "anonymous", sub.IsAnonymous)
	return sub, nil
}

func (s *SubmissionService) build(actor model.Actor, in model.NewSubmission) (*model.Submission, error) {
	sub := &model.Submission{
		TenderID:    in.TenderID,
		IsAnonymous: in.IsAnonymous,
		Amount:      in.Amount,
		Notes:       in.Notes,
		CreatedAt:   s.now().UTC(),
	}
	if !in.IsAnonymous {
		bidder := actor.ID
		sub.BidderID = &bidder
		if in.Payload != nil && *in.Payload != "" {
			sub.SealedPayload = in.Payload
		}
		return sub, nil
	}

	if in.Payload == nil || in.Nonce == nil || *in.Payload == "" || *in.Nonce == "" {
		return nil, invalidInput("anonymous submissions require payload and nonce")
	}
	digest, err := commitment.Commit([]byte(*in.Payload), []byte(*in.Nonce))
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	hint := commitment.NonceHint(*in.Nonce)
	payload := *in.Payload
	sub.Commitment = &digest
	sub.NonceHint = &hint
	sub.SealedPayload = &payload
	return sub, nil
}

// ListForTender returns every submission of a tender to its owner or an admin
func (s *SubmissionService) ListForTender(ctx context.Context, actor model.Actor, tenderID int64) ([]*model.Submission, error) {
	q := s.store.Queries()
	tender, err := q.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, actor, ActSubmissionList, tender.OwnerID); err != nil {
		return nil, err
	}
	return q.ListSubmissionsByTender(ctx, tenderID)
}

// ListMine returns the caller's attributable submissions. Anonymous bids
// carry no bidder and therefore never appear here.
func (s *SubmissionService) ListMine(ctx context.Context, actor model.Actor) ([]*model.Submission, error) {
	return s.store.Queries().ListSubmissionsByBidder(ctx, actor.ID)
}

// Get returns a submission to the tender owner, its bidder or an admin
func (s *SubmissionService) Get(ctx context.Context, actor model.Actor, id int64) (*model.Submission, error) {
	q := s.store.Queries()
	sub, err := q.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	owners := []int64{}
	if tender, err := q.GetTender(ctx, sub.TenderID); err == nil {
		owners = append(owners, tender.OwnerID)
	}
	if sub.BidderID != nil {
		owners = append(owners, *sub.BidderID)
	}
	if err := authorize(ctx, actor, ActSubmissionRead, owners...); err != nil {
		return nil, err
	}
	return sub, nil
}

// VerifyCommitment checks a revealed payload and nonce against the stored
// commitment of an anonymous submission and records the outcome.
func (s *SubmissionService) VerifyCommitment(ctx context.Context, actor model.Actor, id int64, payload, nonce string) (bool, error) {
	if payload == "" || nonce == "" {
		return false, invalidInput("payload and nonce are required")
	}

	var match bool
	err := s.store.InTx(ctx, func(q *Queries) error {
		sub, err := q.GetSubmission(ctx, id)
		if err != nil {
			return err
		}
		tender, err := q.GetTender(ctx, sub.TenderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, actor, ActSubmissionVerify, tender.OwnerID); err != nil {
			return err
		}
		if !sub.IsAnonymous || sub.Commitment == nil {
			return invalidInput("submission %d has no commitment", sub.ID)
		}

		match = commitment.Verify([]byte(payload), []byte(nonce), *sub.Commitment)
		_, err = s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &actor.ID,
			Action:       model.ActionSubmissionVerify,
			ResourceType: model.ResourceSubmission,
			ResourceID:   strconv.FormatInt(sub.ID, 10),
			Payload:      map[string]any{"tender_id": tender.ID, "match": match},
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return match, nil
}
