package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/commitment"
)

var (
	testAdmin   = model.Actor{ID: 100, Role: model.RoleAdmin}
	testIssuer  = model.Actor{ID: 1, Role: model.RoleIssuer}
	testIssuer2 = model.Actor{ID: 2, Role: model.RoleIssuer}
	testBidder  = model.Actor{ID: 3, Role: model.RoleBidder}
	testBidder2 = model.Actor{ID: 4, Role: model.RoleBidder}
	testAuditor = model.Actor{ID: 5, Role: model.RoleAuditor}
)

type testServices struct {
	store       *Store
	ledger      *Ledger
	tenders     *TenderService
	submissions *SubmissionService
	users       *UserService
	audit       *AuditService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newTestStore(t)
	ledger := NewLedger()
	return &testServices{
		store:       store,
		ledger:      ledger,
		tenders:     NewTenderService(store, ledger),
		submissions: NewSubmissionService(store, ledger, &config.LifecycleConfig{}),
		users:       NewUserService(store, ledger, &config.AuthConfig{BcryptCost: 4}),
		audit:       NewAuditService(store, ledger),
	}
}

func (s *testServices) createTender(t *testing.T, owner model.Actor) *model.Tender {
	t.Helper()
	tender, err := s.tenders.Create(context.Background(), owner, NewTender{
		Title:       "Bridge maintenance",
		Description: "Annual inspection and repairs",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tender
}

func (s *testServices) auditActions(t *testing.T) []string {
	t.Helper()
	entries, err := s.ledger.List(context.Background(), s.store.Queries(), model.AuditFilter{Limit: maxAuditLimit})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	actions := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		actions = append(actions, entries[i].Action)
	}
	return actions
}

func TestTenderEndToEnd(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	register := func(email string, role model.Role) model.Actor {
		u, err := svc.users.Register(ctx, Registration{Email: email, FullName: email, Password: "secret-pass", Role: role})
		if err != nil {
			t.Fatalf("Register %s: %v", email, err)
		}
		return u.Actor()
	}
	issuerA := register("a@example.com", model.RoleIssuer)
	bidderB := register("b@example.com", model.RoleBidder)
	bidderC := register("c@example.com", model.RoleBidder)

	tender, err := svc.tenders.Create(ctx, issuerA, NewTender{Title: "School roof", Description: "Replace the roof"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tender.Status != model.TenderDraft {
		t.Fatalf("Expected draft, got %s", tender.Status)
	}

	tender, err = svc.tenders.Publish(ctx, issuerA, tender.ID, nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if tender.Status != model.TenderPublished || tender.PublishAt == nil {
		t.Fatalf("Expected published with publish_at, got %s %v", tender.Status, tender.PublishAt)
	}

	s1, err := svc.submissions.Create(ctx, bidderB, model.NewSubmission{TenderID: tender.ID, Amount: int64Val(95000)})
	if err != nil {
		t.Fatalf("submit S1: %v", err)
	}
	if s1.BidderID == nil || *s1.BidderID != bidderB.ID {
		t.Errorf("Expected S1 bidder %d, got %v", bidderB.ID, s1.BidderID)
	}

	s2, err := svc.submissions.Create(ctx, bidderC, model.NewSubmission{
		TenderID:    tender.ID,
		IsAnonymous: true,
		Payload:     strVal("100000"),
		Nonce:       strVal("abc123xy"),
	})
	if err != nil {
		t.Fatalf("submit S2: %v", err)
	}
	want, _ := commitment.Commit([]byte("100000"), []byte("abc123xy"))
	if s2.BidderID != nil {
		t.Errorf("Expected anonymous S2 without bidder, got %d", *s2.BidderID)
	}
	if s2.Commitment == nil || *s2.Commitment != want {
		t.Errorf("Expected commitment %s, got %v", want, s2.Commitment)
	}

	if tender, err = svc.tenders.Close(ctx, issuerA, tender.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tender.Status != model.TenderClosed {
		t.Fatalf("Expected closed, got %s", tender.Status)
	}

	if tender, err = svc.tenders.Award(ctx, issuerA, tender.ID, s1.ID); err != nil {
		t.Fatalf("Award: %v", err)
	}
	if tender.Status != model.TenderAwarded || tender.AwardedTo == nil || *tender.AwardedTo != s1.ID {
		t.Fatalf("Expected awarded to %d, got %s %v", s1.ID, tender.Status, tender.AwardedTo)
	}

	if _, err := svc.audit.VerifyChain(ctx); err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}

	var got []string
	for _, a := range svc.auditActions(t) {
		if a != model.ActionUserRegister {
			got = append(got, a)
		}
	}
	expected := []string{
		model.ActionTenderCreate,
		model.ActionTenderPublish,
		model.ActionSubmissionCreate,
		model.ActionSubmissionCreate,
		model.ActionTenderClose,
		model.ActionTenderAward,
	}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("entry %d: expected %s, got %s", i, expected[i], got[i])
		}
	}

	// the anonymous bid must not be attributable through the ledger
	entries, err := svc.ledger.List(ctx, svc.store.Queries(), model.AuditFilter{ActorID: &bidderC.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Action == model.ActionSubmissionCreate {
			t.Errorf("anonymous submission attributed to bidder %d in entry %d", bidderC.ID, e.ID)
		}
	}
}

func TestTenderTamperedLedger(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tender := svc.createTender(t, testIssuer)
	if _, err := svc.tenders.Publish(ctx, testIssuer, tender.ID, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := svc.tenders.Close(ctx, testIssuer, tender.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := svc.store.db.ExecContext(ctx,
		`UPDATE audit_logs SET payload = '{"close_at":"2030-01-01T00:00:00Z"}' WHERE id = 2`); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	_, err := svc.audit.Verify(ctx, testAuditor)
	var violation *IntegrityViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("Expected integrity violation, got %v", err)
	}
	if violation.EntryID != 2 || violation.Unverifiable != 1 {
		t.Errorf("Expected break at 2 with 1 unverifiable, got %+v", violation)
	}
}

func TestTenderCreate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   model.Actor
		in      NewTender
		wantErr error
	}{
		{"issuer", testIssuer, NewTender{Title: "Roads", Description: "Resurface"}, nil},
		{"admin", testAdmin, NewTender{Title: "Roads", Description: "Resurface", EstimatedBudget: int64Val(5000)}, nil},
		{"bidder", testBidder, NewTender{Title: "Roads", Description: "Resurface"}, ErrForbidden},
		{"auditor", testAuditor, NewTender{Title: "Roads", Description: "Resurface"}, ErrForbidden},
		{"missing title", testIssuer, NewTender{Title: "  ", Description: "Resurface"}, ErrInvalidInput},
		{"missing description", testIssuer, NewTender{Title: "Roads"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(svc.auditActions(t))
			tender, err := svc.tenders.Create(ctx, tt.actor, tt.in)
			after := len(svc.auditActions(t))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				if after != before {
					t.Errorf("Expected no ledger entry on failure, got %d new", after-before)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if tender.Status != model.TenderDraft || tender.OwnerID != tt.actor.ID {
				t.Errorf("Expected draft owned by %d, got %s owned by %d", tt.actor.ID, tender.Status, tender.OwnerID)
			}
			if after != before+1 {
				t.Errorf("Expected exactly one ledger entry, got %d", after-before)
			}
		})
	}
}

func TestTenderTransitionsGuarded(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	tender := svc.createTender(t, testIssuer)

	if _, err := svc.tenders.Publish(ctx, testIssuer2, tender.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign issuer publish: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.tenders.Publish(ctx, testBidder, tender.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("bidder publish: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.tenders.Close(ctx, testIssuer, tender.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("close draft: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.tenders.Publish(ctx, testIssuer, 999, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing tender: expected ErrNotFound, got %v", err)
	}

	got, err := svc.tenders.Get(ctx, tender.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.TenderDraft {
		t.Errorf("Expected draft after rejected operations, got %s", got.Status)
	}
	if n := len(svc.auditActions(t)); n != 1 {
		t.Errorf("Expected only the create entry, got %d entries", n)
	}

	// admins may drive any tender
	closeAt := time.Now().Add(48 * time.Hour)
	published, err := svc.tenders.Publish(ctx, testAdmin, tender.ID, &closeAt)
	if err != nil {
		t.Fatalf("admin publish: %v", err)
	}
	if published.CloseAt == nil || !published.CloseAt.Equal(closeAt) {
		t.Errorf("Expected close_at %v, got %v", closeAt, published.CloseAt)
	}
}

func TestTenderTerminalStatesReject(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tender := svc.createTender(t, testIssuer)
	if _, err := svc.tenders.Cancel(ctx, testIssuer, tender.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	ops := map[string]func() error{
		"publish": func() error { _, err := svc.tenders.Publish(ctx, testIssuer, tender.ID, nil); return err },
		"close":   func() error { _, err := svc.tenders.Close(ctx, testIssuer, tender.ID); return err },
		"award":   func() error { _, err := svc.tenders.Award(ctx, testIssuer, tender.ID, 1); return err },
		"cancel":  func() error { _, err := svc.tenders.Cancel(ctx, testIssuer, tender.ID); return err },
		"delete":  func() error { return svc.tenders.Delete(ctx, testIssuer, tender.ID) },
		"update": func() error {
			_, err := svc.tenders.Update(ctx, testIssuer, tender.ID, model.TenderChanges{Title: strVal("x")})
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTenderUpdate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	tender := svc.createTender(t, testIssuer)

	updated, err := svc.tenders.Update(ctx, testIssuer, tender.ID, model.TenderChanges{
		Title:           strVal("Bridge repainting"),
		EstimatedBudget: int64Val(12000),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Bridge repainting" || updated.EstimatedBudget == nil || *updated.EstimatedBudget != 12000 {
		t.Errorf("Unexpected tender after update: %+v", updated)
	}

	// padding is trimmed, so this is no change and no entry
	same, err := svc.tenders.Update(ctx, testIssuer, tender.ID, model.TenderChanges{Title: strVal("  Bridge repainting\t")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if same.Title != "Bridge repainting" {
		t.Errorf("Expected trimmed title, got %q", same.Title)
	}
	actions := svc.auditActions(t)
	if len(actions) != 2 || actions[1] != model.ActionTenderUpdate {
		t.Errorf("Expected [create update], got %v", actions)
	}

	renamed, err := svc.tenders.Update(ctx, testIssuer, tender.ID, model.TenderChanges{Title: strVal(" Bridge painting ")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	stored, err := svc.tenders.Get(ctx, tender.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if renamed.Title != "Bridge painting" || stored.Title != "Bridge painting" {
		t.Errorf("Expected stored title to be trimmed, got %q / %q", renamed.Title, stored.Title)
	}

	if _, err := svc.tenders.Update(ctx, testIssuer, tender.ID, model.TenderChanges{Description: strVal(" ")}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.tenders.Update(ctx, testIssuer2, tender.ID, model.TenderChanges{Title: strVal("mine")}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestTenderAwardRequiresOwnSubmission(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	first := svc.createTender(t, testIssuer)
	second := svc.createTender(t, testIssuer)
	for _, id := range []int64{first.ID, second.ID} {
		if _, err := svc.tenders.Publish(ctx, testIssuer, id, nil); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	foreign, err := svc.submissions.Create(ctx, testBidder, model.NewSubmission{TenderID: second.ID, Amount: int64Val(10)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.tenders.Award(ctx, testIssuer, first.ID, foreign.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for submission of another tender, got %v", err)
	}
	if _, err := svc.tenders.Award(ctx, testIssuer, first.ID, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing submission, got %v", err)
	}

	// a published tender may be awarded directly
	awarded, err := svc.tenders.Award(ctx, testIssuer, second.ID, foreign.ID)
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if awarded.Status != model.TenderAwarded {
		t.Errorf("Expected awarded, got %s", awarded.Status)
	}
}

func TestTenderDelete(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tender := svc.createTender(t, testIssuer)
	if _, err := svc.tenders.Publish(ctx, testIssuer, tender.ID, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	sub, err := svc.submissions.Create(ctx, testBidder, model.NewSubmission{TenderID: tender.ID, Amount: int64Val(10)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.tenders.Delete(ctx, testIssuer2, tender.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
	if err := svc.tenders.Delete(ctx, testIssuer, tender.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.tenders.Get(ctx, tender.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected tender gone, got %v", err)
	}
	if _, err := svc.store.Queries().GetSubmission(ctx, sub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected submission cascaded, got %v", err)
	}

	entries, err := svc.ledger.List(ctx, svc.store.Queries(), model.AuditFilter{Action: model.ActionTenderDelete})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected one delete entry, got %d", len(entries))
	}
	if entries[0].Payload["submissions_removed"] != json.Number("1") {
		t.Errorf("Expected submissions_removed 1, got %v", entries[0].Payload["submissions_removed"])
	}
	if _, err := svc.audit.VerifyChain(ctx); err != nil {
		t.Errorf("VerifyChain after delete: %v", err)
	}
}

func TestTenderList(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	first := svc.createTender(t, testIssuer)
	second := svc.createTender(t, testIssuer2)
	if _, err := svc.tenders.Publish(ctx, testIssuer2, second.ID, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	all, err := svc.tenders.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("Expected newest first, got %v", all)
	}

	published, err := svc.tenders.List(ctx, model.TenderPublished)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(published) != 1 || published[0].ID != second.ID {
		t.Errorf("Expected only the published tender, got %v", published)
	}

	if _, err := svc.tenders.List(ctx, "archived"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
