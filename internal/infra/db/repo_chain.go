package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

// ChainRepository stores multi-signature documents, their chains and
// signature requests. Transact takes a FOR UPDATE lock on the document
// row, which serializes concurrent signers of the same document while
// leaving other documents untouched.
type ChainRepository struct {
	db *gorm.DB
}

func NewChainRepository(gdb *gorm.DB) *ChainRepository {
	return &ChainRepository{db: gdb}
}

func (r *ChainRepository) CreateDocument(ctx context.Context, doc domain.Document, requests []domain.SignatureRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := documentToModel(doc)
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		for _, req := range requests {
			rm := requestToModel(req)
			if err := tx.Create(&rm).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChainRepository) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	var m DocumentModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc := documentToDomain(m)
	return &doc, nil
}

func (r *ChainRepository) ListLinks(ctx context.Context, documentID string) ([]domain.ChainLink, error) {
	var models []ChainLinkModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("signature_order asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	links := make([]domain.ChainLink, 0, len(models))
	for _, m := range models {
		links = append(links, linkToDomain(m))
	}
	return links, nil
}

func (r *ChainRepository) Transact(ctx context.Context, documentID string, fn func(tx usecase.ChainTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		var m DocumentModel
		err := gtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, "id = ?", documentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fn(&chainTx{db: gtx, doc: documentToDomain(m)})
	})
}

func (r *ChainRepository) ListRequestsForUser(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.SignatureRequest, error) {
	var models []SignatureRequestModel
	err := r.db.WithContext(ctx).
		Where("requested_from = ? AND status = ?", userID, string(status)).
		Order("requested_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	requests := make([]domain.SignatureRequest, 0, len(models))
	for _, m := range models {
		requests = append(requests, requestToDomain(m))
	}
	return requests, nil
}

func (r *ChainRepository) GetRequest(ctx context.Context, requestID string) (*domain.SignatureRequest, error) {
	var m SignatureRequestModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	req := requestToDomain(m)
	return &req, nil
}

func (r *ChainRepository) UpdateRequest(ctx context.Context, req domain.SignatureRequest) error {
	res := r.db.WithContext(ctx).
		Model(&SignatureRequestModel{}).
		Where("id = ?", req.ID).
		Updates(requestToModel(req))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// chainTx operates within the transaction that holds the document row
// lock. The document snapshot was read under the lock, so it reflects
// all previously committed chain mutations.
type chainTx struct {
	db  *gorm.DB
	doc domain.Document
}

func (t *chainTx) Document() domain.Document {
	return t.doc
}

func (t *chainTx) UpdateDocument(doc domain.Document) error {
	err := t.db.Model(&DocumentModel{}).
		Where("id = ?", doc.ID).
		Select("current_signatures", "status", "expires_at", "completed_at").
		Updates(documentToModel(doc)).Error
	if err != nil {
		return err
	}
	t.doc = doc
	return nil
}

func (t *chainTx) FindStandardLink(signerUserID string) (*domain.ChainLink, error) {
	var m ChainLinkModel
	err := t.db.
		Where("document_id = ? AND signer_user_id = ? AND signature_type = ?",
			t.doc.ID, signerUserID, string(domain.SignatureTypeStandard)).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	link := linkToDomain(m)
	return &link, nil
}

func (t *chainTx) LinkByOrder(order int) (*domain.ChainLink, error) {
	var m ChainLinkModel
	err := t.db.
		Where("document_id = ? AND signature_order = ?", t.doc.ID, order).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	link := linkToDomain(m)
	return &link, nil
}

func (t *chainTx) AggregatedLink() (*domain.ChainLink, error) {
	var m ChainLinkModel
	err := t.db.
		Where("document_id = ? AND signature_type = ?", t.doc.ID, string(domain.SignatureTypeAggregated)).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	link := linkToDomain(m)
	return &link, nil
}

func (t *chainTx) StandardLinks() ([]domain.ChainLink, error) {
	var models []ChainLinkModel
	err := t.db.
		Where("document_id = ? AND signature_type = ?", t.doc.ID, string(domain.SignatureTypeStandard)).
		Order("signature_order asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	links := make([]domain.ChainLink, 0, len(models))
	for _, m := range models {
		links = append(links, linkToDomain(m))
	}
	return links, nil
}

func (t *chainTx) SignatureByID(id string) (*domain.SignatureRecord, error) {
	var m SignatureModel
	err := t.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := signatureToDomain(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *chainTx) CreateSignature(rec domain.SignatureRecord) error {
	m, err := signatureToModel(rec)
	if err != nil {
		return err
	}
	return t.db.Create(&m).Error
}

func (t *chainTx) CreateLink(link domain.ChainLink) error {
	m := linkToModel(link)
	return t.db.Create(&m).Error
}

func (t *chainTx) Requests() ([]domain.SignatureRequest, error) {
	var models []SignatureRequestModel
	err := t.db.
		Where("document_id = ?", t.doc.ID).
		Order("requested_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	requests := make([]domain.SignatureRequest, 0, len(models))
	for _, m := range models {
		requests = append(requests, requestToDomain(m))
	}
	return requests, nil
}

func (t *chainTx) UpdateRequest(req domain.SignatureRequest) error {
	res := t.db.Model(&SignatureRequestModel{}).
		Where("id = ?", req.ID).
		Updates(requestToModel(req))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var (
	_ usecase.ChainStore = (*ChainRepository)(nil)
	_ usecase.ChainTx    = (*chainTx)(nil)
)
