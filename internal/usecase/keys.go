package usecase

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/originmark/originmarkd/internal/domain"
)

// KeyPairStore persists stored signing pairs.
type KeyPairStore interface {
	Create(ctx context.Context, pair domain.UserKeyPair) error
	ByID(ctx context.Context, id string) (*domain.UserKeyPair, error)
	ListByUser(ctx context.Context, userID string) ([]domain.UserKeyPair, error)
	Rotate(ctx context.Context, oldID string, replacement domain.UserKeyPair) error
}

// KeySealer encrypts private keys for storage.
type KeySealer interface {
	SealPrivateKey(encodedKey string) (string, error)
}

// GenerateKeyPair creates and stores a fresh ed25519 pair. The private
// key is sealed before it is written; the plaintext is returned once.
type GenerateKeyPair struct {
	Pairs  KeyPairStore
	Sealer KeySealer
	Now    Clock
}

type GenerateKeyPairRequest struct {
	UserID    string
	KeyName   string
	IsPrimary bool
}

type GenerateKeyPairResult struct {
	Pair       domain.UserKeyPair
	PrivateKey string
}

func (uc *GenerateKeyPair) Execute(ctx context.Context, req GenerateKeyPairRequest) (*GenerateKeyPairResult, error) {
	if req.KeyName == "" {
		return nil, fmtInvalid("key_name is required")
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	encodedPriv := base64.StdEncoding.EncodeToString(priv)
	sealed, err := uc.Sealer.SealPrivateKey(encodedPriv)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	pair := domain.UserKeyPair{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		KeyName:          req.KeyName,
		PublicKey:        base64.StdEncoding.EncodeToString(pub),
		PrivateKeySealed: sealed,
		KeyType:          "ed25519",
		CreatedAt:        now,
		IsActive:         true,
		IsPrimary:        req.IsPrimary,
	}
	if err := uc.Pairs.Create(ctx, pair); err != nil {
		return nil, err
	}
	return &GenerateKeyPairResult{Pair: pair, PrivateKey: encodedPriv}, nil
}

// RotateKeyPair retires a pair and installs a fresh one in its place,
// preserving the primary flag.
type RotateKeyPair struct {
	Pairs  KeyPairStore
	Sealer KeySealer
	Now    Clock
}

type RotateKeyPairResult struct {
	OldPairID  string
	Pair       domain.UserKeyPair
	PrivateKey string
}

func (uc *RotateKeyPair) Execute(ctx context.Context, userID, pairID string) (*RotateKeyPairResult, error) {
	old, err := uc.Pairs.ByID(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if old.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	if !old.IsActive {
		return nil, fmtInvalid("key pair is not active")
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	encodedPriv := base64.StdEncoding.EncodeToString(priv)
	sealed, err := uc.Sealer.SealPrivateKey(encodedPriv)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	replacement := domain.UserKeyPair{
		ID:               uuid.NewString(),
		UserID:           userID,
		KeyName:          old.KeyName + "_rotated",
		PublicKey:        base64.StdEncoding.EncodeToString(pub),
		PrivateKeySealed: sealed,
		KeyType:          "ed25519",
		CreatedAt:        now,
		IsActive:         true,
		IsPrimary:        old.IsPrimary,
	}
	if err := uc.Pairs.Rotate(ctx, old.ID, replacement); err != nil {
		return nil, err
	}
	return &RotateKeyPairResult{
		OldPairID:  old.ID,
		Pair:       replacement,
		PrivateKey: encodedPriv,
	}, nil
}
