package soft

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/infra/crypto"
)

// PairStore is the slice of key-pair persistence the manager needs.
type PairStore interface {
	PrimaryForUser(ctx context.Context, userID string) (*domain.UserKeyPair, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

// Manager resolves signing keys from software-held material. An
// explicit key wins; otherwise the caller's primary stored pair is
// unsealed with the server key-encryption key. Pairs registered
// public-key-only cannot sign.
type Manager struct {
	pairs PairStore
	kek   [32]byte
}

func NewManager(pairs PairStore, kek []byte) (*Manager, error) {
	if len(kek) != 32 {
		return nil, fmt.Errorf("key encryption key must be 32 bytes, got %d", len(kek))
	}
	m := &Manager{pairs: pairs}
	copy(m.kek[:], kek)
	return m, nil
}

func (m *Manager) Resolve(ctx context.Context, userID, explicitKey string) (ed25519.PrivateKey, error) {
	if explicitKey != "" {
		return crypto.ParsePrivateKey(explicitKey)
	}
	if userID == "" {
		return nil, domain.ErrNoSigningKey
	}
	pair, err := m.pairs.PrimaryForUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoSigningKey
	}
	if err != nil {
		return nil, err
	}
	if pair.PrivateKeySealed == "" {
		return nil, domain.ErrNoSigningKey
	}
	raw, err := m.open(pair.PrivateKeySealed)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ParsePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	if err := m.pairs.MarkUsed(ctx, pair.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return key, nil
}

// SealPrivateKey encrypts a base64 private key for storage.
func (m *Manager) SealPrivateKey(encodedKey string) (string, error) {
	if _, err := crypto.ParsePrivateKey(encodedKey); err != nil {
		return "", err
	}
	return m.seal(encodedKey)
}

var _ domain.KeyManager = (*Manager)(nil)
