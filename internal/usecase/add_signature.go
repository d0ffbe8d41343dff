package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/originmark/originmarkd/internal/domain"
)

type AddSignatureRequest struct {
	DocumentID   string
	SignerUserID string
	APIKeyID     string
	Content      []byte
	PrivateKey   string
	Notes        string
	FileName     string
}

type AddSignatureResult struct {
	SignatureID         string
	SignatureOrder      int
	DocumentStatus      domain.DocumentStatus
	SignaturesRemaining int
}

// AddSignature appends one signer's contribution to a document chain.
// The whole read-validate-append sequence runs inside the store's
// per-document critical section, so concurrent signers are strictly
// ordered and each re-validates against committed state.
type AddSignature struct {
	Chain    ChainStore
	Crypto   CryptoService
	Keys     domain.KeyManager
	Notifier domain.Notifier
	Now      Clock
}

func (uc *AddSignature) Execute(ctx context.Context, req AddSignatureRequest) (*AddSignatureResult, error) {
	var (
		result     *AddSignatureResult
		expiredNow bool
	)

	err := uc.Chain.Transact(ctx, req.DocumentID, func(tx ChainTx) error {
		doc := tx.Document()
		now := uc.now()

		switch doc.Status {
		case domain.DocumentStatusPending:
		case domain.DocumentStatusExpired:
			return domain.ErrDocumentExpired
		default:
			return domain.ErrDocumentNotPending
		}

		if doc.Expired(now) {
			// The flip to expired must commit even though the signing
			// attempt fails, so the callback returns nil and the error
			// is reported after the transaction.
			doc.Status = domain.DocumentStatusExpired
			if err := tx.UpdateDocument(doc); err != nil {
				return err
			}
			expiredNow = true
			return nil
		}

		computed := uc.Crypto.HashContent(req.Content)
		if computed != doc.ContentHash {
			return &domain.HashMismatchError{Computed: computed, Expected: doc.ContentHash}
		}

		if _, err := tx.FindStandardLink(req.SignerUserID); err == nil {
			return domain.ErrAlreadySigned
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		invitation, err := uc.eligibleRequest(tx, req.SignerUserID, now)
		if err != nil {
			return err
		}

		key, err := uc.Keys.Resolve(ctx, req.SignerUserID, req.PrivateKey)
		if err != nil {
			return err
		}

		signature, err := uc.Crypto.Sign(doc.ContentHash, key)
		if err != nil {
			return err
		}

		rec := domain.SignatureRecord{
			ID:          uuid.NewString(),
			UserID:      req.SignerUserID,
			APIKeyID:    req.APIKeyID,
			ContentHash: doc.ContentHash,
			Signature:   signature,
			PublicKey:   encodePublic(key),
			ContentType: "document",
			FileName:    req.FileName,
			FileSize:    int64(len(req.Content)),
			Timestamp:   now,
			Metadata: map[string]any{
				"multi_signature_document_id": doc.ID,
				"signature_order":             doc.CurrentSignatures + 1,
			},
		}
		if err := tx.CreateSignature(rec); err != nil {
			return err
		}

		previousID := ""
		if doc.CurrentSignatures > 0 {
			prev, err := tx.LinkByOrder(doc.CurrentSignatures)
			if err != nil {
				return err
			}
			previousID = prev.SignatureID
		}

		link := domain.ChainLink{
			ID:                  uuid.NewString(),
			DocumentID:          doc.ID,
			SignatureID:         rec.ID,
			SignerUserID:        req.SignerUserID,
			SignatureOrder:      doc.CurrentSignatures + 1,
			PreviousSignatureID: previousID,
			SignatureType:       domain.SignatureTypeStandard,
			Timestamp:           now,
			Notes:               req.Notes,
		}
		if err := tx.CreateLink(link); err != nil {
			return err
		}

		doc.CurrentSignatures++
		if doc.CurrentSignatures == doc.RequiredSignatures {
			doc.Status = domain.DocumentStatusCompleted
			doc.CompletedAt = &now
		}
		if err := tx.UpdateDocument(doc); err != nil {
			return err
		}

		if invitation != nil && invitation.Status == domain.RequestStatusPending {
			invitation.Status = domain.RequestStatusAccepted
			invitation.RespondedAt = &now
			if err := tx.UpdateRequest(*invitation); err != nil {
				return err
			}
		}

		remaining := doc.RequiredSignatures - doc.CurrentSignatures
		if remaining < 0 {
			remaining = 0
		}
		result = &AddSignatureResult{
			SignatureID:         rec.ID,
			SignatureOrder:      link.SignatureOrder,
			DocumentStatus:      doc.Status,
			SignaturesRemaining: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expiredNow {
		return nil, domain.ErrDocumentExpired
	}
	if uc.Notifier != nil && result.DocumentStatus == domain.DocumentStatusCompleted {
		uc.Notifier.Notify(ctx, "document.completed", map[string]any{
			"document_id":     req.DocumentID,
			"signature_count": result.SignatureOrder,
		})
	}
	return result, nil
}

// eligibleRequest enforces invitation gating: documents created with a
// signer list only accept invited signers whose request is still
// actionable. Documents with no requests are open to any signer.
func (uc *AddSignature) eligibleRequest(tx ChainTx, signerUserID string, now time.Time) (*domain.SignatureRequest, error) {
	requests, err := tx.Requests()
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, nil
	}
	for i := range requests {
		req := requests[i]
		if req.RequestedFrom != signerUserID {
			continue
		}
		switch req.Status {
		case domain.RequestStatusPending, domain.RequestStatusAccepted:
			if req.ExpiresAt != nil && req.ExpiresAt.Before(now) {
				return nil, domain.ErrSignerNotInvited
			}
			return &req, nil
		default:
			return nil, domain.ErrSignerNotInvited
		}
	}
	return nil, domain.ErrSignerNotInvited
}

func (uc *AddSignature) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}
