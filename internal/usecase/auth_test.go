package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]domain.User)}
}

func (s *memUserStore) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) ByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (s *memUserStore) ByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memUserStore) ByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memKeyStore struct {
	mu   sync.Mutex
	keys map[string]domain.APIKey
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: make(map[string]domain.APIKey)}
}

func (s *memKeyStore) Create(_ context.Context, k domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.ID] = k
	return nil
}

func (s *memKeyStore) ByHash(_ context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.KeyHash == keyHash && k.IsActive {
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memKeyStore) ListByUser(_ context.Context, userID string) ([]domain.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.APIKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memKeyStore) Touch(_ context.Context, keyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID]
	if !ok {
		return domain.ErrNotFound
	}
	k.UsageCount++
	k.LastUsed = &at
	s.keys[keyID] = k
	return nil
}

func (s *memKeyStore) Deactivate(_ context.Context, keyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[keyID]
	if !ok || k.UserID != userID {
		return domain.ErrNotFound
	}
	k.IsActive = false
	s.keys[keyID] = k
	return nil
}

func TestRegisterLoginAndAuthenticate(t *testing.T) {
	users := newMemUserStore()
	keys := newMemKeyStore()
	ctx := context.Background()

	register := &usecase.RegisterUser{Users: users}
	user, err := register.Execute(ctx, usecase.RegisterUserRequest{
		Email:    "alice@example.test",
		Username: "alice",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "correct-horse-battery" {
		t.Fatal("password must be hashed")
	}

	// Duplicate email rejected.
	if _, err := register.Execute(ctx, usecase.RegisterUserRequest{
		Email:    "alice@example.test",
		Username: "alice2",
		Password: "correct-horse-battery",
	}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("duplicate register: %v", err)
	}

	login := &usecase.Login{Users: users, Keys: keys}
	result, err := login.Execute(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.HasAPIKey {
		t.Fatal("fresh account should not report an API key")
	}
	// Email works as the identifier too.
	if _, err := login.Execute(ctx, "alice@example.test", "correct-horse-battery"); err != nil {
		t.Fatalf("login by email: %v", err)
	}
	if _, err := login.Execute(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong password: %v", err)
	}

	create := &usecase.CreateAPIKey{Keys: keys}
	minted, err := create.Execute(ctx, usecase.CreateAPIKeyRequest{UserID: user.ID, Name: "ci"})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if !strings.HasPrefix(minted.Plaintext, "om_") {
		t.Fatalf("key %q missing om_ prefix", minted.Plaintext)
	}
	if minted.Key.KeyHash == minted.Plaintext {
		t.Fatal("plaintext must not be stored")
	}

	auth := &usecase.AuthenticateAPIKey{Keys: keys}
	resolved, err := auth.Execute(ctx, minted.Plaintext)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if resolved.UserID != user.ID {
		t.Fatalf("resolved user = %s", resolved.UserID)
	}

	// Usage is counted.
	listed, _ := keys.ListByUser(ctx, user.ID)
	if listed[0].UsageCount != 1 {
		t.Fatalf("usage count = %d", listed[0].UsageCount)
	}

	if _, err := auth.Execute(ctx, "not-a-key"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("malformed key: %v", err)
	}
	if _, err := auth.Execute(ctx, "om_unknown"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown key: %v", err)
	}

	// Revoked keys stop authenticating.
	if err := keys.Deactivate(ctx, minted.Key.ID, user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := auth.Execute(ctx, minted.Plaintext); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("revoked key: %v", err)
	}
}
