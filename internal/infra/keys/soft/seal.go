package soft

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/originmark/originmarkd/internal/domain"
)

// seal encrypts the plaintext under the KEK. The 24-byte nonce is
// prepended to the box; output is base64.
func (m *Manager) seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &m.kek)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (m *Manager) open(sealed string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: sealed key encoding: %v", domain.ErrInvalidKey, err)
	}
	if len(box) < 24 {
		return "", fmt.Errorf("%w: sealed key too short", domain.ErrInvalidKey)
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plaintext, ok := secretbox.Open(nil, box[24:], &nonce, &m.kek)
	if !ok {
		return "", fmt.Errorf("%w: sealed key did not open", domain.ErrInvalidKey)
	}
	return string(plaintext), nil
}
