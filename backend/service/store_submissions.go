package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnTengye/bettertender/backend/model"
)

const submissionColumns = "id, tender_id, bidder_id, is_anonymous, anonymous_commitment, anonymous_nonce_hint, sealed_payload, amount, notes, created_at"

// InsertSubmission stores s and sets its ID
func (q *Queries) InsertSubmission(ctx context.Context, s *model.Submission) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO submissions (tender_id, bidder_id, is_anonymous, anonymous_commitment, anonymous_nonce_hint, sealed_payload, amount, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TenderID, nullInt64(s.BidderID), s.IsAnonymous, nullString(s.Commitment), nullString(s.NonceHint),
		nullString(s.SealedPayload), nullInt64(s.Amount), nullString(s.Notes), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("submission id: %w", err)
	}
	s.ID = id
	return nil
}

// GetSubmission loads a submission by id
func (q *Queries) GetSubmission(ctx context.Context, id int64) (*model.Submission, error) {
	return scanSubmission(q.db.QueryRowContext(ctx, "SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id))
}

// ListSubmissionsByTender returns the submissions of a tender, newest first
func (q *Queries) ListSubmissionsByTender(ctx context.Context, tenderID int64) ([]*model.Submission, error) {
	return q.listSubmissions(ctx, "WHERE tender_id = ?", tenderID)
}

// ListSubmissionsByBidder returns the attributable submissions of a bidder, newest first
func (q *Queries) ListSubmissionsByBidder(ctx context.Context, bidderID int64) ([]*model.Submission, error) {
	return q.listSubmissions(ctx, "WHERE bidder_id = ?", bidderID)
}

// CountSubmissionsByTender returns how many submissions reference the tender
func (q *Queries) CountSubmissionsByTender(ctx context.Context, tenderID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions WHERE tender_id = ?", tenderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (q *Queries) listSubmissions(ctx context.Context, where string, arg any) ([]*model.Submission, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+submissionColumns+" FROM submissions "+where+" ORDER BY id DESC", arg)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func scanSubmission(row scanner) (*model.Submission, error) {
	var (
		s          model.Submission
		bidder     sql.NullInt64
		commitment sql.NullString
		hint       sql.NullString
		payload    sql.NullString
		amount     sql.NullInt64
		notes      sql.NullString
		createdAt  string
	)
	if err := row.Scan(&s.ID, &s.TenderID, &bidder, &s.IsAnonymous, &commitment, &hint,
		&payload, &amount, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	s.BidderID = int64Ptr(bidder)
	s.Commitment = stringPtr(commitment)
	s.NonceHint = stringPtr(hint)
	s.SealedPayload = stringPtr(payload)
	s.Amount = int64Ptr(amount)
	s.Notes = stringPtr(notes)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = t
	return &s, nil
}
