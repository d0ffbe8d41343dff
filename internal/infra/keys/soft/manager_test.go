package soft

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type fakePairStore struct {
	pairs map[string]*domain.UserKeyPair
	used  []string
}

func (s *fakePairStore) PrimaryForUser(_ context.Context, userID string) (*domain.UserKeyPair, error) {
	pair, ok := s.pairs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pair, nil
}

func (s *fakePairStore) MarkUsed(_ context.Context, id string, _ time.Time) error {
	s.used = append(s.used, id)
	return nil
}

func testKEK() []byte {
	kek := make([]byte, 32)
	for i := range kek {
		kek[i] = byte(i)
	}
	return kek
}

func TestResolveExplicitKey(t *testing.T) {
	m, err := NewManager(&fakePairStore{pairs: map[string]*domain.UserKeyPair{}}, testKEK())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, priv, _ := ed25519.GenerateKey(nil)
	encoded := base64.StdEncoding.EncodeToString(priv.Seed())
	key, err := m.Resolve(context.Background(), "user", encoded)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(key, priv) {
		t.Fatal("explicit key must decode to the same private key")
	}
}

func TestResolveStoredSealedKey(t *testing.T) {
	store := &fakePairStore{pairs: map[string]*domain.UserKeyPair{}}
	m, err := NewManager(store, testKEK())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, priv, _ := ed25519.GenerateKey(nil)
	encoded := base64.StdEncoding.EncodeToString(priv)
	sealed, err := m.SealPrivateKey(encoded)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == encoded {
		t.Fatal("sealed key must not equal the plaintext")
	}
	store.pairs["alice"] = &domain.UserKeyPair{
		ID:               "pair-1",
		UserID:           "alice",
		PrivateKeySealed: sealed,
		IsPrimary:        true,
		IsActive:         true,
	}

	key, err := m.Resolve(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(key, priv) {
		t.Fatal("unsealed key mismatch")
	}
	if len(store.used) != 1 || store.used[0] != "pair-1" {
		t.Fatalf("expected pair-1 marked used, got %v", store.used)
	}
}

func TestResolveWithoutAnyKey(t *testing.T) {
	m, _ := NewManager(&fakePairStore{pairs: map[string]*domain.UserKeyPair{}}, testKEK())
	_, err := m.Resolve(context.Background(), "nobody", "")
	if !errors.Is(err, domain.ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestResolvePublicOnlyPair(t *testing.T) {
	store := &fakePairStore{pairs: map[string]*domain.UserKeyPair{
		"bob": {ID: "pair-2", UserID: "bob", PublicKey: "cHVi", IsPrimary: true, IsActive: true},
	}}
	m, _ := NewManager(store, testKEK())
	_, err := m.Resolve(context.Background(), "bob", "")
	if !errors.Is(err, domain.ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey for public-only pair, got %v", err)
	}
}

func TestOpenRejectsWrongKEK(t *testing.T) {
	m1, _ := NewManager(&fakePairStore{}, testKEK())
	other := testKEK()
	other[0] ^= 0xff
	m2, _ := NewManager(&fakePairStore{}, other)

	_, priv, _ := ed25519.GenerateKey(nil)
	sealed, err := m1.SealPrivateKey(base64.StdEncoding.EncodeToString(priv))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := m2.open(sealed); !errors.Is(err, domain.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey under wrong KEK, got %v", err)
	}
}

func TestNewManagerRejectsShortKEK(t *testing.T) {
	if _, err := NewManager(&fakePairStore{}, []byte("short")); err == nil {
		t.Fatal("expected error for short KEK")
	}
}
