package domain

import (
	"context"
	"crypto/ed25519"
)

// KeyManager resolves the ed25519 key a signer will use. Resolution
// prefers an explicit key supplied with the request and falls back to
// the signer's active primary stored pair. ErrNoSigningKey is returned
// when neither is available.
type KeyManager interface {
	Resolve(ctx context.Context, userID string, explicitKey string) (ed25519.PrivateKey, error)
}

// Notifier delivers side-channel events. Implementations must never
// fail the caller: delivery errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any)
}
