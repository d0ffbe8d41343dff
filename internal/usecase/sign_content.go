package usecase

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/originmark/originmarkd/internal/domain"
)

type SignContentRequest struct {
	Content     []byte
	Author      string
	ModelUsed   string
	ContentType string
	FileName    string
	PrivateKey  string
	UserID      string
	APIKeyID    string
}

type SignContentResult struct {
	Record domain.SignatureRecord
	// GeneratedPrivateKey is set only when no key could be resolved and
	// an ephemeral pair was created; the caller must retain it to sign
	// again with the same identity.
	GeneratedPrivateKey string
}

// SignContent signs a single piece of content and persists the record.
// Key preference: explicit key, then the caller's primary stored key,
// then a freshly generated pair.
type SignContent struct {
	Signatures SignatureStore
	Crypto     CryptoService
	Keys       domain.KeyManager
	Notifier   domain.Notifier
	Now        Clock
}

func (uc *SignContent) Execute(ctx context.Context, req SignContentRequest) (*SignContentResult, error) {
	if len(req.Content) == 0 {
		return nil, fmtInvalid("content is required")
	}

	var (
		key       ed25519.PrivateKey
		generated string
	)
	key, err := uc.Keys.Resolve(ctx, req.UserID, req.PrivateKey)
	if errors.Is(err, domain.ErrNoSigningKey) {
		if _, key, err = ed25519.GenerateKey(nil); err != nil {
			return nil, err
		}
		generated = base64.StdEncoding.EncodeToString(key)
	} else if err != nil {
		return nil, err
	}

	digest := uc.Crypto.HashContent(req.Content)
	signature, err := uc.Crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	contentType := req.ContentType
	if contentType == "" {
		contentType = "text"
	}
	rec := domain.SignatureRecord{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		APIKeyID:    req.APIKeyID,
		ContentHash: digest,
		Signature:   signature,
		PublicKey:   encodePublic(key),
		Author:      req.Author,
		ContentType: contentType,
		ModelUsed:   req.ModelUsed,
		FileName:    req.FileName,
		FileSize:    int64(len(req.Content)),
		Timestamp:   now,
		Metadata: map[string]any{
			"author":       req.Author,
			"content_type": contentType,
			"model_used":   req.ModelUsed,
			"file_name":    req.FileName,
			"file_size":    len(req.Content),
			"timestamp":    now.Format(time.RFC3339),
		},
	}
	if err := uc.Signatures.Create(ctx, rec); err != nil {
		return nil, err
	}

	if uc.Notifier != nil {
		uc.Notifier.Notify(ctx, "signature.created", map[string]any{
			"id":           rec.ID,
			"content_hash": rec.ContentHash,
			"author":       rec.Author,
			"file_name":    rec.FileName,
			"model_used":   rec.ModelUsed,
			"content_type": rec.ContentType,
		})
	}

	return &SignContentResult{Record: rec, GeneratedPrivateKey: generated}, nil
}

func (uc *SignContent) now() time.Time {
	if uc.Now != nil {
		return uc.Now().UTC()
	}
	return time.Now().UTC()
}
