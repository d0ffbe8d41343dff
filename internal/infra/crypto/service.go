package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/originmark/originmarkd/internal/domain"
)

// Service implements the signature primitive: sha256 content digests and
// ed25519 signatures over the hex digest string. Raw content is never
// signed directly.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// HashContent returns the lowercase hex sha256 digest of the content.
func (s *Service) HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Sign produces a base64 signature over the digest under the private key.
func (s *Service) Sign(digest string, key ed25519.PrivateKey) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: private key length %d", domain.ErrInvalidKey, len(key))
	}
	sig := ed25519.Sign(key, []byte(digest))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether the base64 signature is valid for the digest
// under the base64 public key. A mismatched signature returns false with
// a nil error; only structurally malformed input produces an error.
func (s *Service) Verify(digest, signature, publicKey string) (bool, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature length %d", domain.ErrInvalidKey, len(sigBytes))
	}
	return ed25519.Verify(pub, []byte(digest), sigBytes), nil
}

// GenerateKeyPair returns a fresh ed25519 pair.
func (s *Service) GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// ParsePrivateKey decodes a base64 ed25519 private key. Both 32-byte
// seeds and 64-byte expanded keys are accepted.
func ParsePrivateKey(value string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("%w: private key length %d", domain.ErrInvalidKey, len(raw))
	}
}

// ParsePublicKey decodes a base64 ed25519 public key.
func ParsePublicKey(value string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", domain.ErrInvalidKey, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePublicKey returns the base64 form of a public key.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}
