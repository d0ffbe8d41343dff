package http

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/usecase"
)

type signRequest struct {
	Content     string `json:"content"`
	Author      string `json:"author"`
	ModelUsed   string `json:"model_used"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	PrivateKey  string `json:"private_key"`
}

func (r signRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Author, validation.Length(0, 256)),
	)
}

func (s *Server) handleSign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	key := apiKeyFrom(c)
	result, err := s.deps.SignContent.Execute(c.Request.Context(), usecase.SignContentRequest{
		Content:     []byte(req.Content),
		Author:      req.Author,
		ModelUsed:   req.ModelUsed,
		ContentType: req.ContentType,
		FileName:    req.FileName,
		PrivateKey:  req.PrivateKey,
		UserID:      key.UserID,
		APIKeyID:    key.ID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"id":           result.Record.ID,
		"content_hash": result.Record.ContentHash,
		"signature":    result.Record.Signature,
		"public_key":   result.Record.PublicKey,
		"timestamp":    result.Record.Timestamp.Format(time.RFC3339),
		"metadata":     result.Record.Metadata,
	}
	if result.GeneratedPrivateKey != "" {
		// Shown once; the server keeps no copy.
		resp["private_key"] = result.GeneratedPrivateKey
	}
	c.JSON(http.StatusOK, resp)
}

type verifyRequest struct {
	Content     string `json:"content"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`
	SignatureID string `json:"signature_id"`
}

func (r verifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.VerifyContent.Execute(c.Request.Context(), usecase.VerifyContentRequest{
		Content:     []byte(req.Content),
		Signature:   req.Signature,
		PublicKey:   req.PublicKey,
		SignatureID: req.SignatureID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"valid":   result.Valid,
		"message": result.Message,
	}
	if result.ContentHash != "" {
		resp["content_hash"] = result.ContentHash
	}
	if result.ComputedHash != "" {
		resp["computed_hash"] = result.ComputedHash
		resp["stored_hash"] = result.StoredHash
	}
	if result.Metadata != nil {
		resp["metadata"] = result.Metadata
	}
	if result.Policy != nil {
		resp["policy"] = result.Policy
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSignature(c *gin.Context) {
	rec, err := s.deps.Signatures.Get(c.Request.Context(), c.Param("signature_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           rec.ID,
		"user_id":      rec.UserID,
		"content_hash": rec.ContentHash,
		"signature":    rec.Signature,
		"public_key":   rec.PublicKey,
		"author":       rec.Author,
		"content_type": rec.ContentType,
		"model_used":   rec.ModelUsed,
		"file_name":    rec.FileName,
		"file_size":    rec.FileSize,
		"timestamp":    rec.Timestamp.Format(time.RFC3339),
		"metadata":     rec.Metadata,
	})
}

func (s *Server) handleExportC2PA(c *gin.Context) {
	rec, err := s.deps.Signatures.Get(c.Request.Context(), c.Param("signature_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Exporter.Export(*rec))
}

func (s *Server) handleListUserSignatures(c *gin.Context) {
	records, err := s.deps.Signatures.ListByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		out = append(out, gin.H{
			"id":           rec.ID,
			"content_hash": rec.ContentHash,
			"author":       rec.Author,
			"content_type": rec.ContentType,
			"timestamp":    rec.Timestamp.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"signatures": out, "count": len(out)})
}

func (s *Server) handleReputation(c *gin.Context) {
	score, err := s.deps.Reputation.Calculate(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}
