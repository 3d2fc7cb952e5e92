package model

import (
	"time"
)

// Resource types recorded in the audit ledger
const (
	ResourceUser       = "user"
	ResourceTender     = "tender"
	ResourceSubmission = "submission"
	ResourceDocument   = "document"
)

// Audit actions
const (
	ActionUserRegister     = "user_register"
	ActionUserLogin        = "user_login"
	ActionTenderCreate     = "tender_create"
	ActionTenderUpdate     = "tender_update"
	ActionTenderPublish    = "tender_publish"
	ActionTenderClose      = "tender_close"
	ActionTenderAward      = "tender_award"
	ActionTenderCancel     = "tender_cancel"
	ActionTenderDelete     = "tender_delete"
	ActionSubmissionCreate = "submission_create"
	ActionSubmissionVerify = "submission_commitment_verify"
	ActionDocumentUpload   = "document_upload"
	ActionDocumentDelete   = "document_delete"
)

// AuditEntry is one link of the hash-chained audit ledger
type AuditEntry struct {
	ID            int64          `json:"id"`
	ActorID       *int64         `json:"actor_id"`
	Action        string         `json:"action"`
	ResourceType  string         `json:"resource_type"`
	ResourceID    *string        `json:"resource_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
	PrevSignature string         `json:"-"`
	Signature     string         `json:"immutable_signature"`
}

// AuditFilter narrows a ledger listing
type AuditFilter struct {
	Action       string
	ResourceType string
	ActorID      *int64
	Limit        int
}
