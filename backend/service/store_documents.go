package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnTengye/bettertender/backend/model"
)

const documentColumns = "id, owner_id, tender_id, original_filename, object_key, mime_type, checksum, size, visibility, created_at"

// InsertDocument stores d and sets its ID
func (q *Queries) InsertDocument(ctx context.Context, d *model.Document) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO documents (owner_id, tender_id, original_filename, object_key, mime_type, checksum, size, visibility, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.OwnerID, nullInt64(d.TenderID), d.OriginalFilename, d.ObjectKey, d.MimeType,
		d.Checksum, d.Size, d.Visibility, formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document id: %w", err)
	}
	d.ID = id
	return nil
}

// GetDocument loads a document by id
func (q *Queries) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	return scanDocument(q.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
}

// ListDocumentsByOwner returns documents uploaded by the owner, newest first
func (q *Queries) ListDocumentsByOwner(ctx context.Context, ownerID int64) ([]*model.Document, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE owner_id = ? ORDER BY id DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes the document row
func (q *Queries) DeleteDocument(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectOneRow(res, "document")
}

func scanDocument(row scanner) (*model.Document, error) {
	var (
		d         model.Document
		tenderID  sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &tenderID, &d.OriginalFilename, &d.ObjectKey,
		&d.MimeType, &d.Checksum, &d.Size, &d.Visibility, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.TenderID = int64Ptr(tenderID)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = t
	return &d, nil
}
