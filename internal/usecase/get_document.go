package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type ChainEntry struct {
	SignatureID    string
	Signer         string
	SignerUserID   string
	SignatureOrder int
	SignatureType  domain.SignatureType
	Timestamp      time.Time
	Signature      string
	PublicKey      string
	Notes          string
}

type DocumentView struct {
	Document domain.Document
	Chain    []ChainEntry
}

// GetDocument returns a document with its chain resolved to signer
// identities and signature material, ordered by signature order. A
// pending document past its deadline is flipped to expired before being
// returned.
type GetDocument struct {
	Chain      ChainStore
	Signatures SignatureStore
	Users      UserDirectory
	Now        Clock
}

func (uc *GetDocument) Execute(ctx context.Context, documentID string) (*DocumentView, error) {
	doc, err := uc.Chain.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if doc.Status == domain.DocumentStatusPending && doc.Expired(uc.now()) {
		err := uc.Chain.Transact(ctx, documentID, func(tx ChainTx) error {
			locked := tx.Document()
			if locked.Status == domain.DocumentStatusPending && locked.Expired(uc.now()) {
				locked.Status = domain.DocumentStatusExpired
				return tx.UpdateDocument(locked)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		doc, err = uc.Chain.GetDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
	}

	links, err := uc.Chain.ListLinks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chain := make([]ChainEntry, 0, len(links))
	for _, link := range links {
		entry := ChainEntry{
			SignatureID:    link.SignatureID,
			SignerUserID:   link.SignerUserID,
			SignatureOrder: link.SignatureOrder,
			SignatureType:  link.SignatureType,
			Timestamp:      link.Timestamp,
			Notes:          link.Notes,
		}
		if rec, err := uc.Signatures.Get(ctx, link.SignatureID); err == nil {
			entry.Signature = rec.Signature
			entry.PublicKey = rec.PublicKey
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if uc.Users != nil {
			if name, err := uc.Users.UsernameByID(ctx, link.SignerUserID); err == nil {
				entry.Signer = name
			}
		}
		if entry.Signer == "" {
			entry.Signer = link.SignerUserID
		}
		chain = append(chain, entry)
	}

	return &DocumentView{Document: *doc, Chain: chain}, nil
}

func (uc *GetDocument) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}
