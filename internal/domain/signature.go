package domain

import "time"

// SignatureRecord holds one produced signature: the digest it covers,
// the signature bytes and the public key, both base64. Records are
// immutable once written. Aggregated records store JSON arrays of
// signatures and public keys in the same fields, preserving chain order.
type SignatureRecord struct {
	ID          string
	UserID      string
	APIKeyID    string
	ContentHash string
	Signature   string
	PublicKey   string
	Author      string
	ContentType string
	ModelUsed   string
	FileName    string
	FileSize    int64
	Timestamp   time.Time
	Metadata    map[string]any
}
