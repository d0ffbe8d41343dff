package usecase

import (
	"context"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type RequestView struct {
	RequestID     string
	DocumentID    string
	DocumentTitle string
	RequestedBy   string
	Message       string
	RequestedAt   time.Time
	ExpiresAt     *time.Time
}

// ListSignatureRequests returns the caller's actionable invitations.
// Invitations past their deadline are omitted; their stored status is
// updated lazily when the signer next touches them.
type ListSignatureRequests struct {
	Chain ChainStore
	Users UserDirectory
	Now   Clock
}

func (uc *ListSignatureRequests) Execute(ctx context.Context, userID string) ([]RequestView, error) {
	requests, err := uc.Chain.ListRequestsForUser(ctx, userID, domain.RequestStatusPending)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	views := make([]RequestView, 0, len(requests))
	for _, req := range requests {
		if req.ExpiresAt != nil && req.ExpiresAt.Before(now) {
			continue
		}
		view := RequestView{
			RequestID:   req.ID,
			DocumentID:  req.DocumentID,
			RequestedBy: req.RequestedBy,
			Message:     req.Message,
			RequestedAt: req.RequestedAt,
			ExpiresAt:   req.ExpiresAt,
		}
		if doc, err := uc.Chain.GetDocument(ctx, req.DocumentID); err == nil {
			view.DocumentTitle = doc.Title
		}
		if uc.Users != nil {
			if name, err := uc.Users.UsernameByID(ctx, req.RequestedBy); err == nil {
				view.RequestedBy = name
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (uc *ListSignatureRequests) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}

// DeclineSignatureRequest marks a pending invitation as declined.
type DeclineSignatureRequest struct {
	Chain ChainStore
	Now   Clock
}

func (uc *DeclineSignatureRequest) Execute(ctx context.Context, requestID, userID string) error {
	req, err := uc.Chain.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.RequestedFrom != userID {
		return domain.ErrUnauthorized
	}
	if req.Status != domain.RequestStatusPending {
		return domain.ErrInvalidRequest
	}
	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	req.Status = domain.RequestStatusDeclined
	req.RespondedAt = &now
	return uc.Chain.UpdateRequest(ctx, *req)
}
