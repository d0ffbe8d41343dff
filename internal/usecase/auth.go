package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/originmark/originmarkd/internal/domain"
)

const apiKeyPrefix = "om_"

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u domain.User) error
	ByID(ctx context.Context, id string) (*domain.User, error)
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByUsername(ctx context.Context, username string) (*domain.User, error)
}

// APIKeyStore persists API keys. Only the sha256 of a key is stored.
type APIKeyStore interface {
	Create(ctx context.Context, k domain.APIKey) error
	ByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error)
	Touch(ctx context.Context, keyID string, at time.Time) error
	Deactivate(ctx context.Context, keyID, userID string) error
}

type RegisterUser struct {
	Users UserStore
	Now   Clock
}

type RegisterUserRequest struct {
	Email    string
	Username string
	Password string
}

func (uc *RegisterUser) Execute(ctx context.Context, req RegisterUserRequest) (*domain.User, error) {
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, fmtInvalid("email, username and password are required")
	}
	if _, err := uc.Users.ByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: user already exists", domain.ErrInvalidRequest)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := uc.Users.ByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: user already exists", domain.ErrInvalidRequest)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		IsActive:     true,
	}
	if err := uc.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates by username or email. The result reports whether
// the account already holds an active API key.
type Login struct {
	Users UserStore
	Keys  APIKeyStore
}

type LoginResult struct {
	User      domain.User
	HasAPIKey bool
}

func (uc *Login) Execute(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := uc.Users.ByUsername(ctx, identifier)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = uc.Users.ByEmail(ctx, identifier)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	keys, err := uc.Keys.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	hasKey := false
	for _, key := range keys {
		if key.IsActive {
			hasKey = true
			break
		}
	}
	return &LoginResult{User: *user, HasAPIKey: hasKey}, nil
}

// CreateAPIKey mints a key and stores only its hash. The plaintext is
// returned exactly once.
type CreateAPIKey struct {
	Keys APIKeyStore
	Now  Clock
}

type CreateAPIKeyRequest struct {
	UserID      string
	Name        string
	Description string
	RateLimit   int
}

type CreateAPIKeyResult struct {
	Key       domain.APIKey
	Plaintext string
}

func (uc *CreateAPIKey) Execute(ctx context.Context, req CreateAPIKeyRequest) (*CreateAPIKeyResult, error) {
	plaintext, err := newAPIKey()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	key := domain.APIKey{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		KeyHash:     HashAPIKey(plaintext),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		IsActive:    true,
		RateLimit:   req.RateLimit,
	}
	if err := uc.Keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &CreateAPIKeyResult{Key: key, Plaintext: plaintext}, nil
}

// AuthenticateAPIKey resolves a bearer key to its record and counts the
// use. Unknown, inactive or malformed keys are ErrUnauthorized.
type AuthenticateAPIKey struct {
	Keys APIKeyStore
	Now  Clock
}

func (uc *AuthenticateAPIKey) Execute(ctx context.Context, plaintext string) (*domain.APIKey, error) {
	if !strings.HasPrefix(plaintext, apiKeyPrefix) {
		return nil, domain.ErrUnauthorized
	}
	key, err := uc.Keys.ByHash(ctx, HashAPIKey(plaintext))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now().UTC()
	}
	if err := uc.Keys.Touch(ctx, key.ID, now); err != nil {
		return nil, err
	}
	return key, nil
}

func newAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashAPIKey returns the stored form of an API key.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
