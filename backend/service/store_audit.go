package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AnTengye/bettertender/backend/model"
)

const auditColumns = "id, actor_id, action, resource_type, resource_id, payload, created_at, prev_signature, signature"

// errChainConflict means another writer already appended a successor to the
// same predecessor; the transaction is retried.
var errChainConflict = errors.New("audit chain predecessor already taken")

// auditRow is an audit_logs row exactly as stored
type auditRow struct {
	ID            int64
	ActorID       sql.NullInt64
	Action        string
	ResourceType  string
	ResourceID    sql.NullString
	Payload       string
	CreatedAt     string
	PrevSignature string
	Signature     string
}

// LastAuditSignature returns the signature of the newest entry, or "" when the ledger is empty
func (q *Queries) LastAuditSignature(ctx context.Context) (string, error) {
	var sig string
	err := q.db.QueryRowContext(ctx, "SELECT signature FROM audit_logs ORDER BY id DESC LIMIT 1").Scan(&sig)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last audit signature: %w", err)
	}
	return sig, nil
}

func (q *Queries) insertAuditRow(ctx context.Context, row *auditRow) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, action, resource_type, resource_id, payload, created_at, prev_signature, signature)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ActorID, row.Action, row.ResourceType, row.ResourceID, row.Payload,
		row.CreatedAt, row.PrevSignature, row.Signature,
	)
	if err != nil {
		if isConstraintError(err) && strings.Contains(err.Error(), "prev_signature") {
			return fmt.Errorf("insert audit entry: %w", errChainConflict)
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("audit entry id: %w", err)
	}
	row.ID = id
	return nil
}

// auditRowsAfter returns up to limit rows with id > afterID in ascending order
func (q *Queries) auditRowsAfter(ctx context.Context, afterID int64, limit int) ([]auditRow, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit_logs WHERE id > ? ORDER BY id ASC LIMIT ?", afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	defer rows.Close()
	return collectAuditRows(rows)
}

// CountAuditEntriesAfter returns the number of entries with id > afterID
func (q *Queries) CountAuditEntriesAfter(ctx context.Context, afterID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE id > ?", afterID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// ListAuditEntries returns entries newest first, narrowed by filter
func (q *Queries) ListAuditEntries(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}

	query := "SELECT " + auditColumns + " FROM audit_logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	raw, err := collectAuditRows(rows)
	if err != nil {
		return nil, err
	}
	entries := make([]*model.AuditEntry, 0, len(raw))
	for i := range raw {
		e, err := raw[i].toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func collectAuditRows(rows *sql.Rows) ([]auditRow, error) {
	var out []auditRow
	for rows.Next() {
		var r auditRow
		if err := rows.Scan(&r.ID, &r.ActorID, &r.Action, &r.ResourceType, &r.ResourceID,
			&r.Payload, &r.CreatedAt, &r.PrevSignature, &r.Signature); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

func (r *auditRow) toEntry() (*model.AuditEntry, error) {
	payload, err := decodePayload(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("audit entry %d: %w", r.ID, err)
	}
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("audit entry %d: %w", r.ID, err)
	}
	return &model.AuditEntry{
		ID:            r.ID,
		ActorID:       int64Ptr(r.ActorID),
		Action:        r.Action,
		ResourceType:  r.ResourceType,
		ResourceID:    stringPtr(r.ResourceID),
		Payload:       payload,
		CreatedAt:     createdAt,
		PrevSignature: r.PrevSignature,
		Signature:     r.Signature,
	}, nil
}

func decodePayload(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	payload := map[string]any{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
