package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("not found")
	ErrInvalidKey           = errors.New("invalid key material")
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrDocumentNotPending   = errors.New("document is not pending signatures")
	ErrDocumentExpired      = errors.New("document has expired")
	ErrHashMismatch         = errors.New("content hash mismatch")
	ErrAlreadySigned        = errors.New("signer has already signed this document")
	ErrSignerNotInvited     = errors.New("signer was not invited to this document")
	ErrNoSigningKey         = errors.New("no signing key available")
	ErrDocumentNotCompleted = errors.New("document is not completed")
)

// HashMismatchError reports a content digest that does not match the
// document's recorded hash. Both digests are surfaced to the caller.
type HashMismatchError struct {
	Computed string
	Expected string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("content hash mismatch: computed %s, expected %s", e.Computed, e.Expected)
}

func (e *HashMismatchError) Unwrap() error {
	return ErrHashMismatch
}
