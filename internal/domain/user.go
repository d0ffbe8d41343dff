package domain

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	IsActive     bool
}

type APIKey struct {
	ID          string
	UserID      string
	KeyHash     string
	Name        string
	Description string
	CreatedAt   time.Time
	LastUsed    *time.Time
	IsActive    bool
	UsageCount  int64
	RateLimit   int
}

// UserKeyPair is a stored ed25519 pair. The private key is sealed with
// the server key-encryption key; PrivateKeySealed is empty for pairs
// registered public-key-only.
type UserKeyPair struct {
	ID               string
	UserID           string
	KeyName          string
	PublicKey        string
	PrivateKeySealed string
	KeyType          string
	CreatedAt        time.Time
	LastUsed         *time.Time
	IsActive         bool
	IsPrimary        bool
}
