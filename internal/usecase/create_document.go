package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/originmark/originmarkd/internal/domain"
)

type CreateDocumentRequest struct {
	Content            []byte
	Title              string
	Description        string
	CreatedBy          string
	RequiredSignatures int
	ExpiresIn          time.Duration
	Signers            []string
	Message            string
}

type CreateDocumentResult struct {
	DocumentID               string
	ContentHash              string
	RequiredSignatures       int
	ExpiresAt                *time.Time
	SignatureRequestsCreated int
}

// CreateDocument opens a multi-signature document: it fixes the content
// digest, records the signer quorum and invites the designated signers.
type CreateDocument struct {
	Chain  ChainStore
	Crypto CryptoService
	Now    Clock
}

func (uc *CreateDocument) Execute(ctx context.Context, req CreateDocumentRequest) (*CreateDocumentResult, error) {
	if req.RequiredSignatures < 1 {
		return nil, fmt.Errorf("%w: required_signatures must be at least 1", domain.ErrInvalidRequest)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidRequest)
	}
	if req.CreatedBy == "" {
		return nil, fmt.Errorf("%w: creator is required", domain.ErrInvalidRequest)
	}

	now := uc.now()
	var expiresAt *time.Time
	if req.ExpiresIn > 0 {
		t := now.Add(req.ExpiresIn)
		expiresAt = &t
	}

	doc := domain.Document{
		ID:                 uuid.NewString(),
		ContentHash:        uc.Crypto.HashContent(req.Content),
		Title:              req.Title,
		Description:        req.Description,
		CreatedBy:          req.CreatedBy,
		RequiredSignatures: req.RequiredSignatures,
		CurrentSignatures:  0,
		Status:             domain.DocumentStatusPending,
		ExpiresAt:          expiresAt,
		CreatedAt:          now,
	}

	requests := make([]domain.SignatureRequest, 0, len(req.Signers))
	for _, signer := range req.Signers {
		requests = append(requests, domain.SignatureRequest{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			RequestedBy:   req.CreatedBy,
			RequestedFrom: signer,
			Status:        domain.RequestStatusPending,
			Message:       req.Message,
			RequestedAt:   now,
			ExpiresAt:     expiresAt,
		})
	}

	if err := uc.Chain.CreateDocument(ctx, doc, requests); err != nil {
		return nil, err
	}

	return &CreateDocumentResult{
		DocumentID:               doc.ID,
		ContentHash:              doc.ContentHash,
		RequiredSignatures:       doc.RequiredSignatures,
		ExpiresAt:                expiresAt,
		SignatureRequestsCreated: len(requests),
	}, nil
}

func (uc *CreateDocument) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}
