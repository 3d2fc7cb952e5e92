package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/bettertender/backend/model"
)

// GenesisSignature stands in for the predecessor of the first ledger entry
const GenesisSignature = "GENESIS"

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
	verifyPageSize    = 200
)

// AuditRecord describes one action to append to the ledger
type AuditRecord struct {
	ActorID      *int64
	Action       string
	ResourceType string
	ResourceID   string
	Payload      map[string]any
}

// Ledger is the append-only, hash-chained audit trail.
// signature[i] = sha256(signature[i-1] | actor | action | resource type | resource id | created at | payload),
// with GenesisSignature as the predecessor of the first entry.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a ledger stamping entries with the wall clock
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Append adds an entry. q must belong to the transaction that performs the
// business mutation being recorded, so both commit or roll back together;
// the IMMEDIATE transaction guarantees no other writer reads the same tip.
func (l *Ledger) Append(ctx context.Context, q *Queries, rec AuditRecord) (*model.AuditEntry, error) {
	if rec.Action == "" || rec.ResourceType == "" {
		return nil, invalidInput("audit action and resource type are required")
	}
	payload := rec.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}

	prev, err := q.LastAuditSignature(ctx)
	if err != nil {
		return nil, err
	}
	if prev == "" {
		prev = GenesisSignature
	}

	row := auditRow{
		Action:        rec.Action,
		ResourceType:  rec.ResourceType,
		Payload:       string(payloadJSON),
		CreatedAt:     formatTime(l.now()),
		PrevSignature: prev,
	}
	if rec.ActorID != nil {
		row.ActorID = sql.NullInt64{Int64: *rec.ActorID, Valid: true}
	}
	if rec.ResourceID != "" {
		row.ResourceID = sql.NullString{String: rec.ResourceID, Valid: true}
	}
	row.Signature = signRow(prev, &row, payloadJSON)

	if err := q.insertAuditRow(ctx, &row); err != nil {
		return nil, err
	}
	slog.Debug("audit entry appended", "id", row.ID, "action", row.Action, "resource_type", row.ResourceType)

	entry, err := row.toEntry()
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// VerifyChain walks the ledger from genesis recomputing every signature.
// It returns the number of verified entries, or an *IntegrityViolationError
// for the first entry whose stored signature does not match.
func (l *Ledger) VerifyChain(ctx context.Context, q *Queries) (int, error) {
	expectedPrev := GenesisSignature
	var (
		lastID   int64
		verified int
	)
	for {
		if err := ctx.Err(); err != nil {
			return verified, err
		}
		rows, err := q.auditRowsAfter(ctx, lastID, verifyPageSize)
		if err != nil {
			return verified, err
		}
		if len(rows) == 0 {
			return verified, nil
		}
		for i := range rows {
			row := &rows[i]
			if reason := checkRow(expectedPrev, row); reason != "" {
				rest, err := q.CountAuditEntriesAfter(ctx, row.ID)
				if err != nil {
					return verified, err
				}
				return verified, &IntegrityViolationError{EntryID: row.ID, Reason: reason, Unverifiable: rest}
			}
			expectedPrev = row.Signature
			lastID = row.ID
			verified++
		}
	}
}

// List returns entries newest first. Limit defaults to 100 and is capped at 500.
func (l *Ledger) List(ctx context.Context, q *Queries, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	if filter.Limit > maxAuditLimit {
		filter.Limit = maxAuditLimit
	}
	return q.ListAuditEntries(ctx, filter)
}

// checkRow returns a non-empty reason when row does not extend expectedPrev
func checkRow(expectedPrev string, row *auditRow) string {
	if _, err := decodePayload(row.Payload); err != nil {
		return "payload is not valid JSON"
	}
	if _, err := parseTime(row.CreatedAt); err != nil {
		return "timestamp is malformed"
	}
	// the stored bytes are what Append signed; re-encoding is not byte-stable
	if signRow(expectedPrev, row, []byte(row.Payload)) != row.Signature {
		return "signature mismatch"
	}
	return ""
}

func signRow(prev string, row *auditRow, payloadJSON []byte) string {
	actor := "0"
	if row.ActorID.Valid {
		actor = strconv.FormatInt(row.ActorID.Int64, 10)
	}
	base := strings.Join([]string{
		prev,
		actor,
		row.Action,
		row.ResourceType,
		row.ResourceID.String,
		row.CreatedAt,
		string(payloadJSON),
	}, "|")
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
