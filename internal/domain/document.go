package domain

import "time"

type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCompleted DocumentStatus = "completed"
	DocumentStatusExpired   DocumentStatus = "expired"
)

type SignatureType string

const (
	SignatureTypeStandard   SignatureType = "standard"
	SignatureTypeAggregated SignatureType = "aggregated"
)

// Document is a piece of content awaiting N co-signatures. ContentHash is
// fixed at creation; every signature must be over content with exactly
// this digest.
type Document struct {
	ID                 string
	ContentHash        string
	Title              string
	Description        string
	CreatedBy          string
	RequiredSignatures int
	CurrentSignatures  int
	Status             DocumentStatus
	ExpiresAt          *time.Time
	CreatedAt          time.Time
	CompletedAt        *time.Time
}

// Expired reports whether the document deadline has passed at the given
// instant. Documents without a deadline never expire.
func (d Document) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// ChainLink is one signer's ordered contribution to a document.
// Standard links occupy orders 1..CurrentSignatures; an aggregated link,
// if present, sits at the next order without consuming a signer slot.
type ChainLink struct {
	ID                  string
	DocumentID          string
	SignatureID         string
	SignerUserID        string
	SignatureOrder      int
	PreviousSignatureID string
	SignatureType       SignatureType
	Timestamp           time.Time
	Notes               string
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
	RequestStatusExpired  RequestStatus = "expired"
)

// SignatureRequest is an invitation for a specific user to co-sign a
// document. When a document carries requests, only invited signers whose
// request is pending or accepted may sign.
type SignatureRequest struct {
	ID            string
	DocumentID    string
	RequestedBy   string
	RequestedFrom string
	Status        RequestStatus
	Message       string
	RequestedAt   time.Time
	RespondedAt   *time.Time
	ExpiresAt     *time.Time
}
