package model

import (
	"time"
)

// Document visibility levels
const (
	VisibilityPublic     = "public"
	VisibilityInternal   = "internal"
	VisibilityRestricted = "restricted"
)

// ValidVisibility reports whether v is a known visibility level
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityInternal || v == VisibilityRestricted
}

// Document is a file attached to a tender or owned by a user
type Document struct {
	ID               int64     `json:"id"`
	OwnerID          int64     `json:"owner_id"`
	TenderID         *int64    `json:"tender_id"`
	OriginalFilename string    `json:"original_filename"`
	ObjectKey        string    `json:"-"`
	MimeType         string    `json:"mime_type,omitempty"`
	Checksum         string    `json:"checksum"`
	Size             int64     `json:"size"`
	Visibility       string    `json:"visibility"`
	CreatedAt        time.Time `json:"created_at"`
}
