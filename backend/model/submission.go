package model

import (
	"time"
)

// Submission is a bid placed against a tender.
// For anonymous bids BidderID is nil and Commitment holds sha256(nonce || payload).
type Submission struct {
	ID            int64     `json:"id"`
	TenderID      int64     `json:"tender_id"`
	BidderID      *int64    `json:"bidder_id"`
	IsAnonymous   bool      `json:"is_anonymous"`
	Commitment    *string   `json:"anonymous_commitment"`
	NonceHint     *string   `json:"-"`
	SealedPayload *string   `json:"-"`
	Amount        *int64    `json:"amount"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSubmission is the input for creating a submission
type NewSubmission struct {
	TenderID    int64   `json:"-"`
	Amount      *int64  `json:"amount"`
	Notes       *string `json:"notes"`
	IsAnonymous bool    `json:"is_anonymous"`
	Payload     *string `json:"payload"`
	Nonce       *string `json:"nonce"`
}
