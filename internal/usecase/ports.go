package usecase

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type Clock func() time.Time

// CryptoService is the signature primitive used by the use cases.
type CryptoService interface {
	HashContent(content []byte) string
	Sign(digest string, key ed25519.PrivateKey) (string, error)
	Verify(digest, signature, publicKey string) (bool, error)
}

// ChainTx exposes the operations available while a document's critical
// section is held. Implementations guarantee that no other chain
// mutation for the same document runs concurrently with the callback.
type ChainTx interface {
	Document() domain.Document
	UpdateDocument(doc domain.Document) error
	// FindStandardLink returns the signer's standard chain link, or
	// domain.ErrNotFound when the signer has not signed.
	FindStandardLink(signerUserID string) (*domain.ChainLink, error)
	// LinkByOrder returns the chain link at the given 1-based order, or
	// domain.ErrNotFound.
	LinkByOrder(order int) (*domain.ChainLink, error)
	// AggregatedLink returns the document's aggregated link, if any.
	AggregatedLink() (*domain.ChainLink, error)
	// StandardLinks returns the standard links ordered by signature order.
	StandardLinks() ([]domain.ChainLink, error)
	SignatureByID(id string) (*domain.SignatureRecord, error)
	CreateSignature(rec domain.SignatureRecord) error
	CreateLink(link domain.ChainLink) error
	Requests() ([]domain.SignatureRequest, error)
	UpdateRequest(req domain.SignatureRequest) error
}

// ChainStore persists multi-signature documents and their chains.
// Transact runs fn under a per-document critical section; fn's error
// aborts the transaction. Concurrent Transact calls for distinct
// documents proceed independently.
type ChainStore interface {
	CreateDocument(ctx context.Context, doc domain.Document, requests []domain.SignatureRequest) error
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	ListLinks(ctx context.Context, documentID string) ([]domain.ChainLink, error)
	Transact(ctx context.Context, documentID string, fn func(tx ChainTx) error) error
	ListRequestsForUser(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.SignatureRequest, error)
	GetRequest(ctx context.Context, requestID string) (*domain.SignatureRequest, error)
	UpdateRequest(ctx context.Context, req domain.SignatureRequest) error
}

// SignatureStore persists standalone signature records.
type SignatureStore interface {
	Create(ctx context.Context, rec domain.SignatureRecord) error
	Get(ctx context.Context, id string) (*domain.SignatureRecord, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SignatureRecord, error)
}

// UserDirectory resolves display identities for chain views.
type UserDirectory interface {
	UsernameByID(ctx context.Context, userID string) (string, error)
}

// PolicyEngine evaluates an optional verification policy.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

func encodePublic(key ed25519.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(key.Public().(ed25519.PublicKey))
}
