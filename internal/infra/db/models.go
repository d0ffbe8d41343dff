package db

import (
	"encoding/json"
	"time"

	"github.com/originmark/originmarkd/internal/domain"
)

type UserModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	IsActive     bool      `gorm:"not null;default:true"`
}

func (UserModel) TableName() string { return "users" }

type APIKeyModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"type:uuid;index;not null"`
	KeyHash     string `gorm:"uniqueIndex;not null"`
	Name        string
	Description string
	CreatedAt   time.Time `gorm:"not null"`
	LastUsed    *time.Time
	IsActive    bool  `gorm:"not null;default:true"`
	UsageCount  int64 `gorm:"not null;default:0"`
	RateLimit   int   `gorm:"not null;default:0"`
}

func (APIKeyModel) TableName() string { return "api_keys" }

type SignatureModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"type:uuid;index"`
	APIKeyID    string `gorm:"type:uuid"`
	ContentHash string `gorm:"index;not null"`
	Signature   string `gorm:"not null"`
	PublicKey   string `gorm:"not null"`
	Author      string
	ContentType string
	ModelUsed   string
	FileName    string
	FileSize    int64
	Timestamp   time.Time `gorm:"index;not null"`
	Metadata    string    `gorm:"type:jsonb"`
}

func (SignatureModel) TableName() string { return "signatures" }

type DocumentModel struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	ContentHash        string `gorm:"index;not null"`
	Title              string
	Description        string
	CreatedBy          string `gorm:"type:uuid;index;not null"`
	RequiredSignatures int    `gorm:"not null"`
	CurrentSignatures  int    `gorm:"not null;default:0"`
	Status             string `gorm:"index;not null"`
	ExpiresAt          *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	CompletedAt        *time.Time
}

func (DocumentModel) TableName() string { return "multi_signature_documents" }

type ChainLinkModel struct {
	ID                  string `gorm:"type:uuid;primaryKey"`
	DocumentID          string `gorm:"type:uuid;index;not null"`
	SignatureID         string `gorm:"type:uuid;not null"`
	SignerUserID        string `gorm:"type:uuid;index;not null"`
	SignatureOrder      int    `gorm:"not null"`
	PreviousSignatureID string `gorm:"type:uuid"`
	SignatureType       string `gorm:"not null;default:standard"`
	Timestamp           time.Time
	Notes               string
}

func (ChainLinkModel) TableName() string { return "signature_chains" }

type SignatureRequestModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	DocumentID    string `gorm:"type:uuid;index;not null"`
	RequestedBy   string `gorm:"type:uuid;not null"`
	RequestedFrom string `gorm:"type:uuid;index;not null"`
	Status        string `gorm:"index;not null"`
	Message       string
	RequestedAt   time.Time `gorm:"not null"`
	RespondedAt   *time.Time
	ExpiresAt     *time.Time
}

func (SignatureRequestModel) TableName() string { return "signature_requests" }

type UserKeyPairModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	UserID           string `gorm:"type:uuid;index;not null"`
	KeyName          string `gorm:"not null"`
	PublicKey        string `gorm:"not null"`
	PrivateKeySealed string
	KeyType          string    `gorm:"not null;default:ed25519"`
	CreatedAt        time.Time `gorm:"not null"`
	LastUsed         *time.Time
	IsActive         bool `gorm:"not null;default:true"`
	IsPrimary        bool `gorm:"not null;default:false"`
}

func (UserKeyPairModel) TableName() string { return "user_key_pairs" }

type UsageMetricModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	APIKeyID     string `gorm:"type:uuid;index"`
	UserID       string `gorm:"type:uuid;index"`
	Endpoint     string `gorm:"not null"`
	Method       string
	StatusCode   int
	ResponseTime float64
	Timestamp    time.Time `gorm:"index;not null"`
}

func (UsageMetricModel) TableName() string { return "usage_metrics" }

func signatureToModel(rec domain.SignatureRecord) (SignatureModel, error) {
	meta := "{}"
	if rec.Metadata != nil {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return SignatureModel{}, err
		}
		meta = string(raw)
	}
	return SignatureModel{
		ID:          rec.ID,
		UserID:      rec.UserID,
		APIKeyID:    rec.APIKeyID,
		ContentHash: rec.ContentHash,
		Signature:   rec.Signature,
		PublicKey:   rec.PublicKey,
		Author:      rec.Author,
		ContentType: rec.ContentType,
		ModelUsed:   rec.ModelUsed,
		FileName:    rec.FileName,
		FileSize:    rec.FileSize,
		Timestamp:   rec.Timestamp,
		Metadata:    meta,
	}, nil
}

func signatureToDomain(m SignatureModel) (domain.SignatureRecord, error) {
	rec := domain.SignatureRecord{
		ID:          m.ID,
		UserID:      m.UserID,
		APIKeyID:    m.APIKeyID,
		ContentHash: m.ContentHash,
		Signature:   m.Signature,
		PublicKey:   m.PublicKey,
		Author:      m.Author,
		ContentType: m.ContentType,
		ModelUsed:   m.ModelUsed,
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		Timestamp:   m.Timestamp,
	}
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &rec.Metadata); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func documentToModel(doc domain.Document) DocumentModel {
	return DocumentModel{
		ID:                 doc.ID,
		ContentHash:        doc.ContentHash,
		Title:              doc.Title,
		Description:        doc.Description,
		CreatedBy:          doc.CreatedBy,
		RequiredSignatures: doc.RequiredSignatures,
		CurrentSignatures:  doc.CurrentSignatures,
		Status:             string(doc.Status),
		ExpiresAt:          doc.ExpiresAt,
		CreatedAt:          doc.CreatedAt,
		CompletedAt:        doc.CompletedAt,
	}
}

func documentToDomain(m DocumentModel) domain.Document {
	return domain.Document{
		ID:                 m.ID,
		ContentHash:        m.ContentHash,
		Title:              m.Title,
		Description:        m.Description,
		CreatedBy:          m.CreatedBy,
		RequiredSignatures: m.RequiredSignatures,
		CurrentSignatures:  m.CurrentSignatures,
		Status:             domain.DocumentStatus(m.Status),
		ExpiresAt:          m.ExpiresAt,
		CreatedAt:          m.CreatedAt,
		CompletedAt:        m.CompletedAt,
	}
}

func linkToModel(link domain.ChainLink) ChainLinkModel {
	return ChainLinkModel{
		ID:                  link.ID,
		DocumentID:          link.DocumentID,
		SignatureID:         link.SignatureID,
		SignerUserID:        link.SignerUserID,
		SignatureOrder:      link.SignatureOrder,
		PreviousSignatureID: link.PreviousSignatureID,
		SignatureType:       string(link.SignatureType),
		Timestamp:           link.Timestamp,
		Notes:               link.Notes,
	}
}

func linkToDomain(m ChainLinkModel) domain.ChainLink {
	return domain.ChainLink{
		ID:                  m.ID,
		DocumentID:          m.DocumentID,
		SignatureID:         m.SignatureID,
		SignerUserID:        m.SignerUserID,
		SignatureOrder:      m.SignatureOrder,
		PreviousSignatureID: m.PreviousSignatureID,
		SignatureType:       domain.SignatureType(m.SignatureType),
		Timestamp:           m.Timestamp,
		Notes:               m.Notes,
	}
}

func requestToModel(req domain.SignatureRequest) SignatureRequestModel {
	return SignatureRequestModel{
		ID:            req.ID,
		DocumentID:    req.DocumentID,
		RequestedBy:   req.RequestedBy,
		RequestedFrom: req.RequestedFrom,
		Status:        string(req.Status),
		Message:       req.Message,
		RequestedAt:   req.RequestedAt,
		RespondedAt:   req.RespondedAt,
		ExpiresAt:     req.ExpiresAt,
	}
}

func requestToDomain(m SignatureRequestModel) domain.SignatureRequest {
	return domain.SignatureRequest{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		RequestedBy:   m.RequestedBy,
		RequestedFrom: m.RequestedFrom,
		Status:        domain.RequestStatus(m.Status),
		Message:       m.Message,
		RequestedAt:   m.RequestedAt,
		RespondedAt:   m.RespondedAt,
		ExpiresAt:     m.ExpiresAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		IsActive:     u.IsActive,
	}
}

func userToDomain(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		IsActive:     m.IsActive,
	}
}

func apiKeyToModel(k domain.APIKey) APIKeyModel {
	return APIKeyModel{
		ID:          k.ID,
		UserID:      k.UserID,
		KeyHash:     k.KeyHash,
		Name:        k.Name,
		Description: k.Description,
		CreatedAt:   k.CreatedAt,
		LastUsed:    k.LastUsed,
		IsActive:    k.IsActive,
		UsageCount:  k.UsageCount,
		RateLimit:   k.RateLimit,
	}
}

func apiKeyToDomain(m APIKeyModel) domain.APIKey {
	return domain.APIKey{
		ID:          m.ID,
		UserID:      m.UserID,
		KeyHash:     m.KeyHash,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		LastUsed:    m.LastUsed,
		IsActive:    m.IsActive,
		UsageCount:  m.UsageCount,
		RateLimit:   m.RateLimit,
	}
}

func keyPairToModel(p domain.UserKeyPair) UserKeyPairModel {
	return UserKeyPairModel{
		ID:               p.ID,
		UserID:           p.UserID,
		KeyName:          p.KeyName,
		PublicKey:        p.PublicKey,
		PrivateKeySealed: p.PrivateKeySealed,
		KeyType:          p.KeyType,
		CreatedAt:        p.CreatedAt,
		LastUsed:         p.LastUsed,
		IsActive:         p.IsActive,
		IsPrimary:        p.IsPrimary,
	}
}

func keyPairToDomain(m UserKeyPairModel) domain.UserKeyPair {
	return domain.UserKeyPair{
		ID:               m.ID,
		UserID:           m.UserID,
		KeyName:          m.KeyName,
		PublicKey:        m.PublicKey,
		PrivateKeySealed: m.PrivateKeySealed,
		KeyType:          m.KeyType,
		CreatedAt:        m.CreatedAt,
		LastUsed:         m.LastUsed,
		IsActive:         m.IsActive,
		IsPrimary:        m.IsPrimary,
	}
}
