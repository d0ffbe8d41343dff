package http

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/usecase"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	user, err := s.deps.Register.Execute(c.Request.Context(), usecase.RegisterUserRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "user registered successfully",
		"user_id": user.ID,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.deps.Login.Execute(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "login successful",
		"user_id":     result.User.ID,
		"username":    result.User.Username,
		"has_api_key": result.HasAPIKey,
	})
}

type createAPIKeyRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RateLimit   int    `json:"rate_limit"`
}

func (r createAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.RateLimit, validation.Min(0)),
	)
}

// handleCreateAPIKey mints a key against credentials so accounts can
// bootstrap their first key without already holding one.
func (s *Server) handleCreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	login, err := s.deps.Login.Execute(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := s.deps.CreateAPIKey.Execute(c.Request.Context(), usecase.CreateAPIKeyRequest{
		UserID:      login.User.ID,
		Name:        req.Name,
		Description: req.Description,
		RateLimit:   req.RateLimit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "API key created successfully",
		"api_key": result.Plaintext,
		"key_id":  result.Key.ID,
		"name":    result.Key.Name,
	})
}

func (s *Server) handleListAPIKeys(c *gin.Context) {
	keys, err := s.deps.APIKeys.ListByUser(c.Request.Context(), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		if !key.IsActive {
			continue
		}
		entry := gin.H{
			"id":          key.ID,
			"name":        key.Name,
			"description": key.Description,
			"created_at":  key.CreatedAt.Format(time.RFC3339),
			"usage_count": key.UsageCount,
			"rate_limit":  key.RateLimit,
		}
		if key.LastUsed != nil {
			entry["last_used"] = key.LastUsed.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"api_keys": out})
}

func (s *Server) handleRevokeAPIKey(c *gin.Context) {
	err := s.deps.APIKeys.Deactivate(c.Request.Context(), c.Param("key_id"), userIDFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key revoked successfully"})
}
