package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnTengye/bettertender/backend/model"
)

const tenderColumns = "id, owner_id, title, description, estimated_budget, status, publish_at, close_at, awarded_submission_id, created_at"

// InsertTender stores t and sets its ID
func (q *Queries) InsertTender(ctx context.Context, t *model.Tender) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO tenders (owner_id, title, description, estimated_budget, status, publish_at, close_at, awarded_submission_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.Title, t.Description, nullInt64(t.EstimatedBudget), string(t.Status),
		nullTime(t.PublishAt), nullTime(t.CloseAt), nullInt64(t.AwardedTo), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert tender: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("tender id: %w", err)
	}
	t.ID = id
	return nil
}

// UpdateTender writes every mutable column of t
func (q *Queries) UpdateTender(ctx context.Context, t *model.Tender) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE tenders SET title = ?, description = ?, estimated_budget = ?, status = ?,
publish_at = ?, close_at = ?, awarded_submission_id = ? WHERE id = ?`,
		t.Title, t.Description, nullInt64(t.EstimatedBudget), string(t.Status),
		nullTime(t.PublishAt), nullTime(t.CloseAt), nullInt64(t.AwardedTo), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update tender: %w", err)
	}
	return expectOneRow(res, "tender")
}

// DeleteTender removes the tender; its submissions go with it
func (q *Queries) DeleteTender(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM tenders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tender: %w", err)
	}
	return expectOneRow(res, "tender")
}

// GetTender loads a tender by id
func (q *Queries) GetTender(ctx context.Context, id int64) (*model.Tender, error) {
	return scanTender(q.db.QueryRowContext(ctx, "SELECT "+tenderColumns+" FROM tenders WHERE id = ?", id))
}

// ListTenders returns tenders newest first, optionally filtered by status
func (q *Queries) ListTenders(ctx context.Context, status model.TenderStatus) ([]*model.Tender, error) {
	query := "SELECT " + tenderColumns + " FROM tenders"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenders: %w", err)
	}
	defer rows.Close()

	var tenders []*model.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenders: %w", err)
	}
	return tenders, nil
}

func scanTender(row scanner) (*model.Tender, error) {
	var (
		t         model.Tender
		budget    sql.NullInt64
		status    string
		publishAt sql.NullString
		closeAt   sql.NullString
		awarded   sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &budget, &status,
		&publishAt, &closeAt, &awarded, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tender: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan tender: %w", err)
	}
	t.EstimatedBudget = int64Ptr(budget)
	t.Status = model.TenderStatus(status)
	t.AwardedTo = int64Ptr(awarded)

	var err error
	if t.PublishAt, err = timePtr(publishAt); err != nil {
		return nil, err
	}
	if t.CloseAt, err = timePtr(closeAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
