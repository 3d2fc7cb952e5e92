package model

import (
	"time"
)

// TenderStatus is the lifecycle state of a tender
type TenderStatus string

// TenderStatus constants
const (
	TenderDraft     TenderStatus = "draft"
	TenderPublished TenderStatus = "published"
	TenderClosed    TenderStatus = "closed"
	TenderAwarded   TenderStatus = "awarded"
	TenderCancelled TenderStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s TenderStatus) Valid() bool {
	switch s {
	case TenderDraft, TenderPublished, TenderClosed, TenderAwarded, TenderCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible from s
func (s TenderStatus) Terminal() bool {
	return s == TenderAwarded || s == TenderCancelled
}

// Tender represents a procurement call published by an issuer
type Tender struct {
	ID              int64        `json:"id"`
	OwnerID         int64        `json:"owner_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	EstimatedBudget *int64       `json:"estimated_budget"`
	Status          TenderStatus `json:"status"`
	PublishAt       *time.Time   `json:"publish_at"`
	CloseAt         *time.Time   `json:"close_at"`
	AwardedTo       *int64       `json:"awarded_submission_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TenderChanges holds the editable fields of a tender; nil means unchanged
type TenderChanges struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	EstimatedBudget *int64  `json:"estimated_budget"`
}
