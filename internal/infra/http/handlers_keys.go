package http

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/usecase"
)

type generateKeyPairRequest struct {
	KeyName   string `json:"key_name"`
	IsPrimary bool   `json:"is_primary"`
}

func (r generateKeyPairRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.KeyName, validation.Required, validation.Length(1, 128)),
	)
}

func (s *Server) handleGenerateKeyPair(c *gin.Context) {
	var req generateKeyPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.GenerateKeyPair.Execute(c.Request.Context(), usecase.GenerateKeyPairRequest{
		UserID:    userIDFrom(c),
		KeyName:   req.KeyName,
		IsPrimary: req.IsPrimary,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"key_pair_id": result.Pair.ID,
		"key_name":    result.Pair.KeyName,
		"public_key":  result.Pair.PublicKey,
		// Shown once; only the sealed form is stored.
		"private_key": result.PrivateKey,
		"is_primary":  result.Pair.IsPrimary,
	})
}

func (s *Server) handleListKeyPairs(c *gin.Context) {
	pairs, err := s.deps.KeyPairs.ListByUser(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(pairs))
	for _, pair := range pairs {
		entry := gin.H{
			"key_pair_id": pair.ID,
			"key_name":    pair.KeyName,
			"public_key":  pair.PublicKey,
			"key_type":    pair.KeyType,
			"created_at":  pair.CreatedAt.Format(time.RFC3339),
			"is_primary":  pair.IsPrimary,
		}
		if pair.LastUsed != nil {
			entry["last_used"] = pair.LastUsed.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"key_pairs": out})
}

type rotateKeyPairRequest struct {
	KeyPairID string `json:"key_pair_id"`
}

func (r rotateKeyPairRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.KeyPairID, validation.Required),
	)
}

func (s *Server) handleRotateKeyPair(c *gin.Context) {
	var req rotateKeyPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.RotateKeyPair.Execute(c.Request.Context(), userIDFrom(c), req.KeyPairID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"old_key_pair_id": result.OldPairID,
		"new_key_pair_id": result.Pair.ID,
		"new_public_key":  result.Pair.PublicKey,
		"new_private_key": result.PrivateKey,
	})
}
