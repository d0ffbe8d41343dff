package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/originmark/originmarkd/internal/domain"
)

type AggregateResult struct {
	AggregatedSignatureID string
	SignatureCount        int
	Signatures            []string
	PublicKeys            []string
}

// AggregateSignatures collapses a completed document's chain into a
// single artifact: the ordered signatures and public keys, serialized as
// JSON arrays inside one signature record and appended to the chain as
// an aggregated link. The aggregated link does not consume a signer
// slot. Aggregation is idempotent: a repeat call returns the existing
// artifact.
type AggregateSignatures struct {
	Chain ChainStore
	Now   Clock
}

func (uc *AggregateSignatures) Execute(ctx context.Context, documentID string) (*AggregateResult, error) {
	var result *AggregateResult

	err := uc.Chain.Transact(ctx, documentID, func(tx ChainTx) error {
		doc := tx.Document()
		if doc.Status != domain.DocumentStatusCompleted {
			return domain.ErrDocumentNotCompleted
		}

		if existing, err := tx.AggregatedLink(); err == nil {
			rec, err := tx.SignatureByID(existing.SignatureID)
			if err != nil {
				return err
			}
			res, err := aggregateResultFromRecord(existing.SignatureID, rec)
			if err != nil {
				return err
			}
			result = res
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		links, err := tx.StandardLinks()
		if err != nil {
			return err
		}

		signatures := make([]string, 0, len(links))
		publicKeys := make([]string, 0, len(links))
		maxOrder := 0
		for _, link := range links {
			rec, err := tx.SignatureByID(link.SignatureID)
			if err != nil {
				return err
			}
			signatures = append(signatures, rec.Signature)
			publicKeys = append(publicKeys, rec.PublicKey)
			if link.SignatureOrder > maxOrder {
				maxOrder = link.SignatureOrder
			}
		}

		sigJSON, err := json.Marshal(signatures)
		if err != nil {
			return err
		}
		keyJSON, err := json.Marshal(publicKeys)
		if err != nil {
			return err
		}

		now := uc.now()
		rec := domain.SignatureRecord{
			ID:          uuid.NewString(),
			UserID:      doc.CreatedBy,
			ContentHash: doc.ContentHash,
			Signature:   string(sigJSON),
			PublicKey:   string(keyJSON),
			ContentType: "aggregated",
			Timestamp:   now,
			Metadata: map[string]any{
				"multi_signature_document_id": doc.ID,
				"signature_count":             len(signatures),
				"is_aggregated":               true,
			},
		}
		if err := tx.CreateSignature(rec); err != nil {
			return err
		}

		link := domain.ChainLink{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			SignatureID:    rec.ID,
			SignerUserID:   doc.CreatedBy,
			SignatureOrder: maxOrder + 1,
			SignatureType:  domain.SignatureTypeAggregated,
			Timestamp:      now,
		}
		if err := tx.CreateLink(link); err != nil {
			return err
		}

		result = &AggregateResult{
			AggregatedSignatureID: rec.ID,
			SignatureCount:        len(signatures),
			Signatures:            signatures,
			PublicKeys:            publicKeys,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func aggregateResultFromRecord(id string, rec *domain.SignatureRecord) (*AggregateResult, error) {
	var signatures, publicKeys []string
	if err := json.Unmarshal([]byte(rec.Signature), &signatures); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rec.PublicKey), &publicKeys); err != nil {
		return nil, err
	}
	return &AggregateResult{
		AggregatedSignatureID: id,
		SignatureCount:        len(signatures),
		Signatures:            signatures,
		PublicKeys:            publicKeys,
	}, nil
}

func (uc *AggregateSignatures) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}
