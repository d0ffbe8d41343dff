package usecase

import (
	"context"
	"fmt"

	"github.com/originmark/originmarkd/internal/domain"
)

type VerifyContentRequest struct {
	Content     []byte
	Signature   string
	PublicKey   string
	SignatureID string
}

type VerifyContentResult struct {
	Valid        bool
	Message      string
	ContentHash  string
	ComputedHash string
	StoredHash   string
	Metadata     map[string]any
	Policy       *domain.PolicyEvaluation
}

// VerifyContent checks a signature over content, either against supplied
// signature material or a stored record. A stored-hash mismatch reports
// both digests; an invalid signature is a negative result, not an error.
type VerifyContent struct {
	Signatures SignatureStore
	Crypto     CryptoService
	Policy     PolicyEngine
}

func (uc *VerifyContent) Execute(ctx context.Context, req VerifyContentRequest) (*VerifyContentResult, error) {
	if len(req.Content) == 0 {
		return nil, fmtInvalid("content is required")
	}

	signature := req.Signature
	publicKey := req.PublicKey
	var (
		rec        *domain.SignatureRecord
		storedHash string
	)
	if req.SignatureID != "" {
		found, err := uc.Signatures.Get(ctx, req.SignatureID)
		if err != nil {
			return nil, err
		}
		rec = found
		signature = rec.Signature
		publicKey = rec.PublicKey
		storedHash = rec.ContentHash
	}
	if signature == "" || publicKey == "" {
		return nil, fmtInvalid("signature and public key are required")
	}

	digest := uc.Crypto.HashContent(req.Content)

	if storedHash != "" && storedHash != digest {
		return &VerifyContentResult{
			Valid:        false,
			Message:      "content hash mismatch",
			ComputedHash: digest,
			StoredHash:   storedHash,
		}, nil
	}

	valid, err := uc.Crypto.Verify(digest, signature, publicKey)
	if err != nil {
		return nil, err
	}

	result := &VerifyContentResult{
		Valid:       valid,
		ContentHash: digest,
	}
	if valid {
		result.Message = "signature verified successfully"
		if rec != nil {
			result.Metadata = rec.Metadata
		}
	} else {
		result.Message = "invalid signature"
	}

	if uc.Policy != nil {
		matched := storedHash == "" || storedHash == digest
		input := domain.PolicyInput{
			ContentHash: digest,
			PublicKey:   publicKey,
			Verification: domain.PolicyVerification{
				SignatureValid: valid,
				HashMatched:    &matched,
				KnownSignature: rec != nil,
			},
		}
		if rec != nil {
			input.SignerUserID = rec.UserID
		}
		eval, err := uc.Policy.Evaluate(ctx, input)
		if err != nil {
			return nil, err
		}
		result.Policy = &eval
	}

	return result, nil
}

func fmtInvalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, msg)
}
