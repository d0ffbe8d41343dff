package http

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/usecase"
)

type createDocumentRequest struct {
	Content            string   `json:"content"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	RequiredSignatures int      `json:"required_signatures"`
	ExpiresInHours     int      `json:"expires_in_hours"`
	Signers            []string `json:"signers"`
	Message            string   `json:"message"`
}

func (r createDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Title, validation.Length(0, 256)),
		validation.Field(&r.RequiredSignatures, validation.Required, validation.Min(1)),
		validation.Field(&r.ExpiresInHours, validation.Min(0)),
	)
}

func (s *Server) handleCreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.CreateDocument.Execute(c.Request.Context(), usecase.CreateDocumentRequest{
		Content:            []byte(req.Content),
		Title:              req.Title,
		Description:        req.Description,
		CreatedBy:          userIDFrom(c),
		RequiredSignatures: req.RequiredSignatures,
		ExpiresIn:          time.Duration(req.ExpiresInHours) * time.Hour,
		Signers:            req.Signers,
		Message:            req.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"document_id":                result.DocumentID,
		"content_hash":               result.ContentHash,
		"required_signatures":        result.RequiredSignatures,
		"signature_requests_created": result.SignatureRequestsCreated,
		"status":                     "pending",
	}
	if result.ExpiresAt != nil {
		resp["expires_at"] = result.ExpiresAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusCreated, resp)
}

type addSignatureRequest struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	PrivateKey string `json:"private_key"`
	Notes      string `json:"notes"`
	FileName   string `json:"file_name"`
}

func (r addSignatureRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

func (s *Server) handleAddSignature(c *gin.Context) {
	var req addSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	key := apiKeyFrom(c)
	result, err := s.deps.AddSignature.Execute(c.Request.Context(), usecase.AddSignatureRequest{
		DocumentID:   req.DocumentID,
		SignerUserID: key.UserID,
		APIKeyID:     key.ID,
		Content:      []byte(req.Content),
		PrivateKey:   req.PrivateKey,
		Notes:        req.Notes,
		FileName:     req.FileName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signature_id":         result.SignatureID,
		"signature_order":      result.SignatureOrder,
		"document_status":      result.DocumentStatus,
		"signatures_remaining": result.SignaturesRemaining,
	})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	view, err := s.deps.GetDocument.Execute(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	doc := view.Document
	chain := make([]gin.H, 0, len(view.Chain))
	for _, entry := range view.Chain {
		item := gin.H{
			"signature_id":    entry.SignatureID,
			"signer":          entry.Signer,
			"signer_user_id":  entry.SignerUserID,
			"signature_order": entry.SignatureOrder,
			"signature_type":  entry.SignatureType,
			"timestamp":       entry.Timestamp.Format(time.RFC3339),
			"signature":       entry.Signature,
			"public_key":      entry.PublicKey,
		}
		if entry.Notes != "" {
			item["notes"] = entry.Notes
		}
		chain = append(chain, item)
	}
	resp := gin.H{
		"document_id":         doc.ID,
		"title":               doc.Title,
		"description":         doc.Description,
		"content_hash":        doc.ContentHash,
		"created_by":          doc.CreatedBy,
		"required_signatures": doc.RequiredSignatures,
		"current_signatures":  doc.CurrentSignatures,
		"status":              doc.Status,
		"created_at":          doc.CreatedAt.Format(time.RFC3339),
		"signature_chain":     chain,
	}
	if doc.ExpiresAt != nil {
		resp["expires_at"] = doc.ExpiresAt.Format(time.RFC3339)
	}
	if doc.CompletedAt != nil {
		resp["completed_at"] = doc.CompletedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

type aggregateRequest struct {
	DocumentID string `json:"document_id"`
}

func (r aggregateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
	)
}

func (s *Server) handleAggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.Aggregate.Execute(c.Request.Context(), req.DocumentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"aggregated_signature_id": result.AggregatedSignatureID,
		"signature_count":         result.SignatureCount,
		"signatures":              result.Signatures,
		"public_keys":             result.PublicKeys,
	})
}

func (s *Server) handleListRequests(c *gin.Context) {
	views, err := s.deps.ListRequests.Execute(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, view := range views {
		entry := gin.H{
			"request_id":     view.RequestID,
			"document_id":    view.DocumentID,
			"document_title": view.DocumentTitle,
			"requested_by":   view.RequestedBy,
			"message":        view.Message,
			"requested_at":   view.RequestedAt.Format(time.RFC3339),
		}
		if view.ExpiresAt != nil {
			entry["expires_at"] = view.ExpiresAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"requests": out, "count": len(out)})
}

func (s *Server) handleDeclineRequest(c *gin.Context) {
	err := s.deps.DeclineRequest.Execute(c.Request.Context(), c.Param("request_id"), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signature request declined"})
}
