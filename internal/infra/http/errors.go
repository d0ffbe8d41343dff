package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/domain"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// writeError maps domain errors to HTTP responses. Chain conflicts are
// all 400s with distinct codes so clients can tell them apart.
func writeError(c *gin.Context, err error) {
	var mismatch *domain.HashMismatchError
	if errors.As(err, &mismatch) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:    "HASH_MISMATCH",
			Message: "content hash does not match the document",
			Details: map[string]any{
				"computed_hash": mismatch.Computed,
				"expected_hash": mismatch.Expected,
			},
		}})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	case errors.Is(err, domain.ErrSignerNotInvited):
		writeErrorCode(c, http.StatusForbidden, "SIGNER_NOT_INVITED", "signer is not invited to this document")
	case errors.Is(err, domain.ErrAlreadySigned):
		writeErrorCode(c, http.StatusBadRequest, "ALREADY_SIGNED", "signer already signed this document")
	case errors.Is(err, domain.ErrDocumentExpired):
		writeErrorCode(c, http.StatusBadRequest, "DOCUMENT_EXPIRED", "document has expired")
	case errors.Is(err, domain.ErrDocumentNotPending):
		writeErrorCode(c, http.StatusBadRequest, "DOCUMENT_NOT_PENDING", "document is not accepting signatures")
	case errors.Is(err, domain.ErrDocumentNotCompleted):
		writeErrorCode(c, http.StatusBadRequest, "DOCUMENT_NOT_COMPLETED", "document has not collected all signatures")
	case errors.Is(err, domain.ErrHashMismatch):
		writeErrorCode(c, http.StatusBadRequest, "HASH_MISMATCH", "content hash does not match the document")
	case errors.Is(err, domain.ErrNoSigningKey):
		writeErrorCode(c, http.StatusBadRequest, "NO_SIGNING_KEY", "no signing key available for this user")
	case errors.Is(err, domain.ErrInvalidKey):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY", err.Error())
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeErrorCode(c, http.StatusBadRequest, "SIGNATURE_INVALID", "signature did not verify")
	case errors.Is(err, domain.ErrInvalidRequest):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
