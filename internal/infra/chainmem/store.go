package chainmem

import (
	"context"
	"sort"
	"sync"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

// Store is an in-memory ChainStore and SignatureStore. Each document
// owns a mutex held for the whole Transact callback, giving the same
// per-document serialization contract as the row-locked SQL store.
// Mutations are staged and committed only when the callback succeeds.
type Store struct {
	mu         sync.RWMutex
	docs       map[string]*docState
	requests   map[string]domain.SignatureRequest
	signatures map[string]domain.SignatureRecord
}

type docState struct {
	mu    sync.Mutex
	doc   domain.Document
	links []domain.ChainLink
}

func New() *Store {
	return &Store{
		docs:       make(map[string]*docState),
		requests:   make(map[string]domain.SignatureRequest),
		signatures: make(map[string]domain.SignatureRecord),
	}
}

func (s *Store) CreateDocument(_ context.Context, doc domain.Document, requests []domain.SignatureRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = &docState{doc: doc}
	for _, req := range requests {
		s.requests[req.ID] = req
	}
	return nil
}

func (s *Store) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := state.doc
	return &doc, nil
}

func (s *Store) ListLinks(_ context.Context, documentID string) ([]domain.ChainLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	links := append([]domain.ChainLink(nil), state.links...)
	sort.Slice(links, func(i, j int) bool { return links[i].SignatureOrder < links[j].SignatureOrder })
	return links, nil
}

func (s *Store) Transact(_ context.Context, documentID string, fn func(tx usecase.ChainTx) error) error {
	s.mu.RLock()
	state, ok := s.docs[documentID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	tx := &memTx{store: s, state: state, doc: state.doc}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.docDirty {
		state.doc = tx.doc
	}
	state.links = append(state.links, tx.newLinks...)
	for _, rec := range tx.newSignatures {
		s.signatures[rec.ID] = rec
	}
	for _, req := range tx.updatedRequests {
		s.requests[req.ID] = req
	}
	return nil
}

func (s *Store) ListRequestsForUser(_ context.Context, userID string, status domain.RequestStatus) ([]domain.SignatureRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SignatureRequest
	for _, req := range s.requests {
		if req.RequestedFrom == userID && req.Status == status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (*domain.SignatureRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (s *Store) UpdateRequest(_ context.Context, req domain.SignatureRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return domain.ErrNotFound
	}
	s.requests[req.ID] = req
	return nil
}

// SignatureStore

func (s *Store) Create(_ context.Context, rec domain.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signatures[rec.ID] = rec
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.signatures[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]domain.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SignatureRecord
	for _, rec := range s.signatures {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type memTx struct {
	store *Store
	state *docState

	doc             domain.Document
	docDirty        bool
	newLinks        []domain.ChainLink
	newSignatures   []domain.SignatureRecord
	updatedRequests []domain.SignatureRequest
}

func (t *memTx) Document() domain.Document {
	return t.doc
}

func (t *memTx) UpdateDocument(doc domain.Document) error {
	t.doc = doc
	t.docDirty = true
	return nil
}

func (t *memTx) allLinks() []domain.ChainLink {
	links := append([]domain.ChainLink(nil), t.state.links...)
	links = append(links, t.newLinks...)
	return links
}

func (t *memTx) FindStandardLink(signerUserID string) (*domain.ChainLink, error) {
	for _, link := range t.allLinks() {
		if link.SignerUserID == signerUserID && link.SignatureType == domain.SignatureTypeStandard {
			found := link
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) LinkByOrder(order int) (*domain.ChainLink, error) {
	for _, link := range t.allLinks() {
		if link.SignatureOrder == order {
			found := link
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) AggregatedLink() (*domain.ChainLink, error) {
	for _, link := range t.allLinks() {
		if link.SignatureType == domain.SignatureTypeAggregated {
			found := link
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) StandardLinks() ([]domain.ChainLink, error) {
	var out []domain.ChainLink
	for _, link := range t.allLinks() {
		if link.SignatureType == domain.SignatureTypeStandard {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignatureOrder < out[j].SignatureOrder })
	return out, nil
}

func (t *memTx) SignatureByID(id string) (*domain.SignatureRecord, error) {
	for _, rec := range t.newSignatures {
		if rec.ID == id {
			found := rec
			return &found, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rec, ok := t.store.signatures[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (t *memTx) CreateSignature(rec domain.SignatureRecord) error {
	t.newSignatures = append(t.newSignatures, rec)
	return nil
}

func (t *memTx) CreateLink(link domain.ChainLink) error {
	t.newLinks = append(t.newLinks, link)
	return nil
}

func (t *memTx) Requests() ([]domain.SignatureRequest, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []domain.SignatureRequest
	for _, req := range t.store.requests {
		if req.DocumentID == t.doc.ID {
			out = append(out, req)
		}
	}
	for _, staged := range t.updatedRequests {
		for i := range out {
			if out[i].ID == staged.ID {
				out[i] = staged
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (t *memTx) UpdateRequest(req domain.SignatureRequest) error {
	t.updatedRequests = append(t.updatedRequests, req)
	return nil
}

var (
	_ usecase.ChainStore     = (*Store)(nil)
	_ usecase.SignatureStore = (*Store)(nil)
)
