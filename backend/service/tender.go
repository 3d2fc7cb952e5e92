package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
)

// NewTender is the input for creating a tender
type NewTender struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	EstimatedBudget *int64 `json:"estimated_budget"`
}

// TenderService drives the tender lifecycle. Every state change is
// authorized first and recorded in the ledger within the same transaction.
type TenderService struct {
	store  *Store
	ledger *Ledger
	now    func() time.Time
}

func NewTenderService(store *Store, ledger *Ledger) *TenderService {
	return &TenderService{store: store, ledger: ledger, now: time.Now}
}

// Create opens a new draft tender owned by actor
func (s *TenderService) Create(ctx context.Context, actor model.Actor, in NewTender) (*model.Tender, error) {
	if err := authorize(ctx, actor, ActTenderCreate); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Description) == "" {
		return nil, invalidInput("title and description are required")
	}

	var tender *model.Tender
	err := s.store.InTx(ctx, func(q *Queries) error {
		tender = &model.Tender{
			OwnerID:         actor.ID,
			Title:           in.Title,
			Description:     in.Description,
			EstimatedBudget: in.EstimatedBudget,
			Status:          model.TenderDraft,
			CreatedAt:       s.now().UTC(),
		}
		if err := q.InsertTender(ctx, tender); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &actor.ID,
			Action:       model.ActionTenderCreate,
			ResourceType: model.ResourceTender,
			ResourceID:   strconv.FormatInt(tender.ID, 10),
			Payload:      map[string]any{"title": tender.Title},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "tender created", "tender_id", tender.ID)
	return tender, nil
}

// Get returns a tender by id
func (s *TenderService) Get(ctx context.Context, id int64) (*model.Tender, error) {
	return s.store.Queries().GetTender(ctx, id)
}

// List returns all tenders newest first, optionally only those in status
func (s *TenderService) List(ctx context.Context, status model.TenderStatus) ([]*model.Tender, error) {
	if status != "" && !status.Valid() {
		return nil, invalidInput("unknown status %q", status)
	}
	return s.store.Queries().ListTenders(ctx, status)
}

// Update edits title, description or budget of a draft or published tender.
// A ledger entry is written only when a field actually changes.
func (s *TenderService) Update(ctx context.Context, actor model.Actor, id int64, changes model.TenderChanges) (*model.Tender, error) {
	if changes.Title != nil {
		title := strings.TrimSpace(*changes.Title)
		if title == "" {
			return nil, invalidInput("title cannot be empty")
		}
		changes.Title = &title
	}
	if changes.Description != nil && strings.TrimSpace(*changes.Description) == "" {
		return nil, invalidInput("description cannot be empty")
	}

	return s.transition(ctx, actor, id, OpUpdate, func(q *Queries, t *model.Tender) (map[string]any, error) {
		changed := map[string]any{}
		if changes.Title != nil && *changes.Title != t.Title {
			t.Title = *changes.Title
			changed["title"] = t.Title
		}
		if changes.Description != nil && *changes.Description != t.Description {
			t.Description = *changes.Description
			changed["description"] = t.Description
		}
		if changes.EstimatedBudget != nil && (t.EstimatedBudget == nil || *t.EstimatedBudget != *changes.EstimatedBudget) {
			budget := *changes.EstimatedBudget
			t.EstimatedBudget = &budget
			changed["estimated_budget"] = budget
		}
		if len(changed) == 0 {
			return nil, nil
		}
		return changed, nil
	})
}

// Publish opens a draft tender for submissions
func (s *TenderService) Publish(ctx context.Context, actor model.Actor, id int64, closeAt *time.Time) (*model.Tender, error) {
	return s.transition(ctx, actor, id, OpPublish, func(q *Queries, t *model.Tender) (map[string]any, error) {
		now := s.now().UTC()
		t.PublishAt = &now
		if closeAt != nil {
			c := closeAt.UTC()
			t.CloseAt = &c
		}
		payload := map[string]any{"close_at": nil}
		if t.CloseAt != nil {
			payload["close_at"] = t.CloseAt.Format(time.RFC3339Nano)
		}
		return payload, nil
	})
}

// Close stops accepting submissions on a published tender
func (s *TenderService) Close(ctx context.Context, actor model.Actor, id int64) (*model.Tender, error) {
	return s.transition(ctx, actor, id, OpClose, func(q *Queries, t *model.Tender) (map[string]any, error) {
		if t.CloseAt == nil {
			now := s.now().UTC()
			t.CloseAt = &now
		}
		return map[string]any{}, nil
	})
}

// Award picks the winning submission of a published or closed tender
func (s *TenderService) Award(ctx context.Context, actor model.Actor, id, submissionID int64) (*model.Tender, error) {
	return s.transition(ctx, actor, id, OpAward, func(q *Queries, t *model.Tender) (map[string]any, error) {
		sub, err := q.GetSubmission(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		if sub.TenderID != t.ID {
			return nil, notFound("submission %d for tender %d", submissionID, t.ID)
		}
		t.AwardedTo = &sub.ID
		return map[string]any{"submission_id": sub.ID}, nil
	})
}

// Cancel abandons a tender that has not been awarded
func (s *TenderService) Cancel(ctx context.Context, actor model.Actor, id int64) (*model.Tender, error) {
	return s.transition(ctx, actor, id, OpCancel, func(q *Queries, t *model.Tender) (map[string]any, error) {
		return map[string]any{"from_status": string(t.Status)}, nil
	})
}

// Delete removes a non-terminal tender together with its submissions
func (s *TenderService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	_, err := s.transition(ctx, actor, id, OpDelete, func(q *Queries, t *model.Tender) (map[string]any, error) {
		n, err := q.CountSubmissionsByTender(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if err := q.DeleteTender(ctx, t.ID); err != nil {
			return nil, err
		}
		return map[string]any{"submissions_removed": n}, nil
	})
	return err
}

// transition loads the tender, authorizes actor against its owner, checks the
// state machine, lets apply mutate it (t.Status still holds the old state)
// and then persists the tender and the
// ledger entry in one transaction. apply returning a nil payload means
// nothing changed: the tender is not written and no entry is recorded.
func (s *TenderService) transition(
	ctx context.Context,
	actor model.Actor,
	id int64,
	op Operation,
	apply func(q *Queries, t *model.Tender) (map[string]any, error),
) (*model.Tender, error) {
	var tender *model.Tender
	err := s.store.InTx(ctx, func(q *Queries) error {
		t, err := q.GetTender(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, actor, operationActions[op], t.OwnerID); err != nil {
			return err
		}
		to, err := nextStatus(t.Status, op)
		if err != nil {
			return err
		}
		payload, err := apply(q, t)
		if err != nil {
			return err
		}
		if payload == nil {
			tender = t
			return nil
		}
		if op != OpDelete {
			t.Status = to
			if err := q.UpdateTender(ctx, t); err != nil {
				return err
			}
		}
		if _, err := s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &actor.ID,
			Action:       tenderActions[op],
			ResourceType: model.ResourceTender,
			ResourceID:   strconv.FormatInt(t.ID, 10),
			Payload:      payload,
		}); err != nil {
			return err
		}
		tender = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "tender transition", "tender_id", id, "operation", op, "status", tender.Status)
	return tender, nil
}

var tenderActions = map[Operation]string{
	OpUpdate:  model.ActionTenderUpdate,
	OpPublish: model.ActionTenderPublish,
	OpClose:   model.ActionTenderClose,
	OpAward:   model.ActionTenderAward,
	OpCancel:  model.ActionTenderCancel,
	OpDelete:  model.ActionTenderDelete,
}
