package usecase_test

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/infra/chainmem"
	"github.com/originmark/originmarkd/internal/infra/crypto"
	"github.com/originmark/originmarkd/internal/usecase"
)

type staticKeyManager struct {
	keys map[string]ed25519.PrivateKey
}

func (m *staticKeyManager) Resolve(_ context.Context, userID, explicitKey string) (ed25519.PrivateKey, error) {
	if explicitKey != "" {
		return crypto.ParsePrivateKey(explicitKey)
	}
	if key, ok := m.keys[userID]; ok {
		return key, nil
	}
	return nil, domain.ErrNoSigningKey
}

type engineFixture struct {
	store  *chainmem.Store
	crypto *crypto.Service
	keys   *staticKeyManager
	now    time.Time

	create    *usecase.CreateDocument
	add       *usecase.AddSignature
	get       *usecase.GetDocument
	aggregate *usecase.AggregateSignatures
	requests  *usecase.ListSignatureRequests
	decline   *usecase.DeclineSignatureRequest
}

func newEngineFixture(t *testing.T, signers ...string) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store:  chainmem.New(),
		crypto: crypto.NewService(),
		keys:   &staticKeyManager{keys: make(map[string]ed25519.PrivateKey)},
		now:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, signer := range signers {
		_, key, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		f.keys.keys[signer] = key
	}
	clock := func() time.Time { return f.now }
	f.create = &usecase.CreateDocument{Chain: f.store, Crypto: f.crypto, Now: clock}
	f.add = &usecase.AddSignature{Chain: f.store, Crypto: f.crypto, Keys: f.keys, Now: clock}
	f.get = &usecase.GetDocument{Chain: f.store, Signatures: f.store, Now: clock}
	f.aggregate = &usecase.AggregateSignatures{Chain: f.store, Now: clock}
	f.requests = &usecase.ListSignatureRequests{Chain: f.store, Now: clock}
	f.decline = &usecase.DeclineSignatureRequest{Chain: f.store, Now: clock}
	return f
}

func (f *engineFixture) createDocument(t *testing.T, content []byte, required int, signers []string) string {
	t.Helper()
	res, err := f.create.Execute(context.Background(), usecase.CreateDocumentRequest{
		Content:            content,
		Title:              "agreement",
		CreatedBy:          "creator",
		RequiredSignatures: required,
		ExpiresIn:          168 * time.Hour,
		Signers:            signers,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if res.SignatureRequestsCreated != len(signers) {
		t.Fatalf("expected %d requests, got %d", len(signers), res.SignatureRequestsCreated)
	}
	return res.DocumentID
}

func (f *engineFixture) sign(docID, signer string, content []byte) (*usecase.AddSignatureResult, error) {
	return f.add.Execute(context.Background(), usecase.AddSignatureRequest{
		DocumentID:   docID,
		SignerUserID: signer,
		Content:      content,
	})
}

func TestCreateDocumentRejectsZeroRequiredSignatures(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.create.Execute(context.Background(), usecase.CreateDocumentRequest{
		Content:            []byte("contract"),
		CreatedBy:          "creator",
		RequiredSignatures: 0,
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestTwoSignerScenario(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	content := []byte("the agreement text")
	docID := f.createDocument(t, content, 2, []string{"alice", "bob"})

	res, err := f.sign(docID, "alice", content)
	if err != nil {
		t.Fatalf("alice sign: %v", err)
	}
	if res.SignatureOrder != 1 {
		t.Fatalf("alice order = %d, want 1", res.SignatureOrder)
	}
	if res.DocumentStatus != domain.DocumentStatusPending {
		t.Fatalf("status after alice = %s, want pending", res.DocumentStatus)
	}
	if res.SignaturesRemaining != 1 {
		t.Fatalf("remaining after alice = %d, want 1", res.SignaturesRemaining)
	}

	res, err = f.sign(docID, "bob", content)
	if err != nil {
		t.Fatalf("bob sign: %v", err)
	}
	if res.SignatureOrder != 2 {
		t.Fatalf("bob order = %d, want 2", res.SignatureOrder)
	}
	if res.DocumentStatus != domain.DocumentStatusCompleted {
		t.Fatalf("status after bob = %s, want completed", res.DocumentStatus)
	}
	if res.SignaturesRemaining != 0 {
		t.Fatalf("remaining after bob = %d, want 0", res.SignaturesRemaining)
	}

	view, err := f.get.Execute(context.Background(), docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if view.Document.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if len(view.Chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(view.Chain))
	}
	if view.Chain[0].SignerUserID != "alice" || view.Chain[1].SignerUserID != "bob" {
		t.Fatalf("chain order wrong: %s, %s", view.Chain[0].SignerUserID, view.Chain[1].SignerUserID)
	}

	agg, err := f.aggregate.Execute(context.Background(), docID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.SignatureCount != 2 {
		t.Fatalf("aggregate count = %d, want 2", agg.SignatureCount)
	}
	if agg.Signatures[0] != view.Chain[0].Signature || agg.Signatures[1] != view.Chain[1].Signature {
		t.Fatal("aggregate signatures must preserve chain order")
	}
	// Every aggregated entry must replay independently.
	digest := f.crypto.HashContent(content)
	for i := range agg.Signatures {
		ok, err := f.crypto.Verify(digest, agg.Signatures[i], agg.PublicKeys[i])
		if err != nil || !ok {
			t.Fatalf("replaying aggregated signature %d: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestDuplicateSignerConflict(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	content := []byte("doc")
	docID := f.createDocument(t, content, 2, []string{"alice", "bob"})

	if _, err := f.sign(docID, "alice", content); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	_, err := f.sign(docID, "alice", content)
	if !errors.Is(err, domain.ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned, got %v", err)
	}

	doc, err := f.store.GetDocument(context.Background(), docID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.CurrentSignatures != 1 {
		t.Fatalf("current_signatures = %d, want 1", doc.CurrentSignatures)
	}
}

func TestHashMismatchRejectsAndLeavesStateUntouched(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("original")
	docID := f.createDocument(t, content, 1, []string{"alice"})

	_, err := f.sign(docID, "alice", []byte("tampered"))
	if !errors.Is(err, domain.ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
	var mismatch *domain.HashMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected HashMismatchError, got %T", err)
	}
	if mismatch.Computed == "" || mismatch.Expected == "" || mismatch.Computed == mismatch.Expected {
		t.Fatalf("mismatch detail incomplete: %+v", mismatch)
	}

	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.CurrentSignatures != 0 {
		t.Fatalf("hash mismatch must not mutate state, current=%d", doc.CurrentSignatures)
	}
	links, _ := f.store.ListLinks(context.Background(), docID)
	if len(links) != 0 {
		t.Fatalf("hash mismatch must not create links, got %d", len(links))
	}
}

func TestSignMissingDocument(t *testing.T) {
	f := newEngineFixture(t, "alice")
	_, err := f.sign("no-such-document", "alice", []byte("x"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredDocumentFlipsAndRejects(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, []string{"alice"})

	f.now = f.now.Add(200 * time.Hour)
	_, err := f.sign(docID, "alice", content)
	if !errors.Is(err, domain.ErrDocumentExpired) {
		t.Fatalf("expected ErrDocumentExpired, got %v", err)
	}

	// The flip must have been persisted even though the call failed.
	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.Status != domain.DocumentStatusExpired {
		t.Fatalf("status = %s, want expired", doc.Status)
	}

	// Terminal: a later attempt still reports expired.
	_, err = f.sign(docID, "alice", content)
	if !errors.Is(err, domain.ErrDocumentExpired) {
		t.Fatalf("expected ErrDocumentExpired on terminal state, got %v", err)
	}
}

func TestSignWithoutResolvableKey(t *testing.T) {
	f := newEngineFixture(t) // no keys registered
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, nil)

	_, err := f.sign(docID, "carol", content)
	if !errors.Is(err, domain.ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.CurrentSignatures != 0 {
		t.Fatal("failed key resolution must not mutate state")
	}
}

func TestUninvitedSignerRejected(t *testing.T) {
	f := newEngineFixture(t, "alice", "mallory")
	content := []byte("doc")
	docID := f.createDocument(t, content, 2, []string{"alice"})

	_, err := f.sign(docID, "mallory", content)
	if !errors.Is(err, domain.ErrSignerNotInvited) {
		t.Fatalf("expected ErrSignerNotInvited, got %v", err)
	}
}

func TestOpenSigningWhenNoSignerList(t *testing.T) {
	f := newEngineFixture(t, "walkin")
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, nil)

	res, err := f.sign(docID, "walkin", content)
	if err != nil {
		t.Fatalf("open signing failed: %v", err)
	}
	if res.DocumentStatus != domain.DocumentStatusCompleted {
		t.Fatalf("status = %s, want completed", res.DocumentStatus)
	}
}

func TestDeclinedInvitationBlocksSigning(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, []string{"alice"})

	views, err := f.requests.Execute(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(views))
	}
	if err := f.decline.Execute(context.Background(), views[0].RequestID, "alice"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	_, err = f.sign(docID, "alice", content)
	if !errors.Is(err, domain.ErrSignerNotInvited) {
		t.Fatalf("expected ErrSignerNotInvited after decline, got %v", err)
	}

	views, _ = f.requests.Execute(context.Background(), "alice")
	if len(views) != 0 {
		t.Fatalf("declined request still listed: %d", len(views))
	}
}

func TestSigningMarksInvitationAccepted(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("doc")
	docID := f.createDocument(t, content, 2, []string{"alice", "bob"})

	if _, err := f.sign(docID, "alice", content); err != nil {
		t.Fatalf("sign: %v", err)
	}
	views, _ := f.requests.Execute(context.Background(), "alice")
	if len(views) != 0 {
		t.Fatal("accepted request must leave the pending list")
	}
}

func TestChainBackReferences(t *testing.T) {
	f := newEngineFixture(t, "s1", "s2", "s3")
	content := []byte("doc")
	docID := f.createDocument(t, content, 3, []string{"s1", "s2", "s3"})

	for _, signer := range []string{"s1", "s2", "s3"} {
		if _, err := f.sign(docID, signer, content); err != nil {
			t.Fatalf("%s sign: %v", signer, err)
		}
	}

	links, err := f.store.ListLinks(context.Background(), docID)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("link count = %d, want 3", len(links))
	}
	for i, link := range links {
		if link.SignatureOrder != i+1 {
			t.Fatalf("order at index %d = %d", i, link.SignatureOrder)
		}
		if i == 0 {
			if link.PreviousSignatureID != "" {
				t.Fatal("first link must have no back-reference")
			}
			continue
		}
		if link.PreviousSignatureID != links[i-1].SignatureID {
			t.Fatalf("link %d back-reference mismatch", i+1)
		}
	}
}

func TestAggregateRequiresCompletedDocument(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("doc")
	docID := f.createDocument(t, content, 2, []string{"alice", "bob"})

	if _, err := f.sign(docID, "alice", content); err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err := f.aggregate.Execute(context.Background(), docID)
	if !errors.Is(err, domain.ErrDocumentNotCompleted) {
		t.Fatalf("expected ErrDocumentNotCompleted, got %v", err)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	f := newEngineFixture(t, "alice")
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, []string{"alice"})
	if _, err := f.sign(docID, "alice", content); err != nil {
		t.Fatalf("sign: %v", err)
	}

	first, err := f.aggregate.Execute(context.Background(), docID)
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	second, err := f.aggregate.Execute(context.Background(), docID)
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}
	if first.AggregatedSignatureID != second.AggregatedSignatureID {
		t.Fatal("repeat aggregation must return the existing artifact")
	}

	links, _ := f.store.ListLinks(context.Background(), docID)
	aggregated := 0
	for _, link := range links {
		if link.SignatureType == domain.SignatureTypeAggregated {
			aggregated++
		}
	}
	if aggregated != 1 {
		t.Fatalf("aggregated link count = %d, want 1", aggregated)
	}

	// The aggregated link sits past the standard orders and does not
	// consume a signer slot.
	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.CurrentSignatures != 1 {
		t.Fatalf("current_signatures = %d after aggregate, want 1", doc.CurrentSignatures)
	}
	if links[len(links)-1].SignatureOrder != 2 {
		t.Fatalf("aggregated order = %d, want 2", links[len(links)-1].SignatureOrder)
	}
}

func TestConcurrentSignersFormValidPermutation(t *testing.T) {
	const n = 8
	signers := make([]string, n)
	for i := range signers {
		signers[i] = string(rune('a'+i)) + "-signer"
	}
	f := newEngineFixture(t, signers...)
	content := []byte("concurrent")
	docID := f.createDocument(t, content, n, signers)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, signer := range signers {
		wg.Add(1)
		go func(i int, signer string) {
			defer wg.Done()
			_, errs[i] = f.sign(docID, signer, content)
		}(i, signer)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("signer %d failed: %v", i, err)
		}
	}

	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.CurrentSignatures != n {
		t.Fatalf("current_signatures = %d, want %d", doc.CurrentSignatures, n)
	}
	if doc.Status != domain.DocumentStatusCompleted {
		t.Fatalf("status = %s, want completed", doc.Status)
	}

	links, _ := f.store.ListLinks(context.Background(), docID)
	seen := make(map[int]bool, n)
	for _, link := range links {
		if link.SignatureType != domain.SignatureTypeStandard {
			continue
		}
		if link.SignatureOrder < 1 || link.SignatureOrder > n {
			t.Fatalf("order %d out of range", link.SignatureOrder)
		}
		if seen[link.SignatureOrder] {
			t.Fatalf("duplicate order %d", link.SignatureOrder)
		}
		seen[link.SignatureOrder] = true
	}
	if len(seen) != n {
		t.Fatalf("orders form %d/%d of a permutation", len(seen), n)
	}
}

func TestGetDocumentFlipsExpiredLazily(t *testing.T) {
	f := newEngineFixture(t, "alice")
	docID := f.createDocument(t, []byte("doc"), 1, []string{"alice"})

	f.now = f.now.Add(200 * time.Hour)
	view, err := f.get.Execute(context.Background(), docID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Document.Status != domain.DocumentStatusExpired {
		t.Fatalf("status = %s, want expired", view.Document.Status)
	}
	doc, _ := f.store.GetDocument(context.Background(), docID)
	if doc.Status != domain.DocumentStatusExpired {
		t.Fatal("expiry flip must persist")
	}
}

func TestExplicitKeyOverridesStoredKey(t *testing.T) {
	f := newEngineFixture(t)
	content := []byte("doc")
	docID := f.createDocument(t, content, 1, nil)

	_, priv, _ := ed25519.GenerateKey(nil)
	seed := priv.Seed()
	res, err := f.add.Execute(context.Background(), usecase.AddSignatureRequest{
		DocumentID:   docID,
		SignerUserID: "carol",
		Content:      content,
		PrivateKey:   base64.StdEncoding.EncodeToString(seed),
	})
	if err != nil {
		t.Fatalf("sign with explicit key: %v", err)
	}

	rec, err := f.store.Get(context.Background(), res.SignatureID)
	if err != nil {
		t.Fatalf("load signature: %v", err)
	}
	ok, err := f.crypto.Verify(f.crypto.HashContent(content), rec.Signature, rec.PublicKey)
	if err != nil || !ok {
		t.Fatalf("signature must verify under the explicit key: ok=%v err=%v", ok, err)
	}
}
