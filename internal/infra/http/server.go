package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/infra/c2pa"
	"github.com/originmark/originmarkd/internal/infra/reputation"
	"github.com/originmark/originmarkd/internal/usecase"
)

// MetricsRecorder receives one entry per authenticated request.
type MetricsRecorder interface {
	Record(endpoint, method string, statusCode int, responseTime float64, apiKeyID, userID string, at time.Time)
}

// Deps wires the server's use cases and adapters.
type Deps struct {
	Logger *slog.Logger

	Register     *usecase.RegisterUser
	Login        *usecase.Login
	CreateAPIKey *usecase.CreateAPIKey
	Authenticate *usecase.AuthenticateAPIKey
	APIKeys      usecase.APIKeyStore

	SignContent   *usecase.SignContent
	VerifyContent *usecase.VerifyContent
	Signatures    usecase.SignatureStore

	CreateDocument  *usecase.CreateDocument
	AddSignature    *usecase.AddSignature
	GetDocument     *usecase.GetDocument
	Aggregate       *usecase.AggregateSignatures
	ListRequests    *usecase.ListSignatureRequests
	DeclineRequest  *usecase.DeclineSignatureRequest

	GenerateKeyPair *usecase.GenerateKeyPair
	RotateKeyPair   *usecase.RotateKeyPair
	KeyPairs        usecase.KeyPairStore

	Reputation *reputation.Calculator
	Exporter   *c2pa.Exporter

	RateLimiter      domain.RateLimiter
	RateLimitDefault int
	RateLimitWindow  time.Duration

	Metrics MetricsRecorder
}

type Server struct {
	engine *gin.Engine
	log    *slog.Logger
	deps   Deps
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		log:    deps.Logger,
		deps:   deps,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)

	s.engine.POST("/auth/register", s.handleRegister)
	s.engine.POST("/auth/login", s.handleLogin)
	s.engine.POST("/auth/api-keys", s.handleCreateAPIKey)

	authed := s.engine.Group("/", s.apiKeyAuth(), s.rateLimit(), s.telemetry())

	authed.GET("/auth/api-keys", s.handleListAPIKeys)
	authed.DELETE("/auth/api-keys/:key_id", s.handleRevokeAPIKey)

	authed.POST("/sign", s.handleSign)
	authed.POST("/verify", s.handleVerify)
	authed.GET("/signatures/:signature_id", s.handleGetSignature)
	authed.GET("/signatures/:signature_id/c2pa", s.handleExportC2PA)
	authed.GET("/users/:user_id/signatures", s.handleListUserSignatures)

	authed.POST("/multi-signature/documents", s.handleCreateDocument)
	authed.POST("/multi-signature/sign", s.handleAddSignature)
	authed.GET("/multi-signature/documents/:document_id", s.handleGetDocument)
	authed.POST("/multi-signature/aggregate", s.handleAggregate)
	authed.GET("/multi-signature/requests", s.handleListRequests)
	authed.POST("/multi-signature/requests/:request_id/decline", s.handleDeclineRequest)

	authed.POST("/keys/generate", s.handleGenerateKeyPair)
	authed.GET("/keys", s.handleListKeyPairs)
	authed.POST("/keys/rotate", s.handleRotateKeyPair)

	authed.GET("/reputation/:user_id", s.handleReputation)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "originmark",
		"status":  "ok",
	})
}
