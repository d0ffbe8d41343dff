package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/originmark/originmarkd/internal/config"
	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/infra/c2pa"
	"github.com/originmark/originmarkd/internal/infra/crypto"
	"github.com/originmark/originmarkd/internal/infra/db"
	httpinfra "github.com/originmark/originmarkd/internal/infra/http"
	"github.com/originmark/originmarkd/internal/infra/keys/soft"
	"github.com/originmark/originmarkd/internal/infra/policyopa"
	"github.com/originmark/originmarkd/internal/infra/ratelimit"
	"github.com/originmark/originmarkd/internal/infra/reputation"
	"github.com/originmark/originmarkd/internal/infra/webhook"
	"github.com/originmark/originmarkd/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	users := db.NewUserRepository(gdb)
	apiKeys := db.NewAPIKeyRepository(gdb)
	signatures := db.NewSignatureRepository(gdb)
	chain := db.NewChainRepository(gdb)
	keyPairs := db.NewKeyPairRepository(gdb)
	metrics := db.NewMetricsRepository(gdb)

	kek, err := loadKEK(cfg.KeyEncryptionKey, logger)
	if err != nil {
		return err
	}
	keyManager, err := soft.NewManager(keyPairs, kek)
	if err != nil {
		return err
	}

	var limiter domain.RateLimiter
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{})
		logger.Info("rate limiting in memory")
	}

	var policy usecase.PolicyEngine
	if cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), cfg.PolicyBundlePath, cfg.PolicyBundleID)
		if err != nil {
			return err
		}
		logger.Info("verification policy loaded", "bundle", cfg.PolicyBundleID, "hash", engine.BundleHash())
		policy = engine
	}

	notifier := webhook.NewNotifier(webhookTargets(cfg), logger)
	cryptoSvc := crypto.NewService()

	server := httpinfra.NewServer(httpinfra.Deps{
		Logger: logger,

		Register:     &usecase.RegisterUser{Users: users},
		Login:        &usecase.Login{Users: users, Keys: apiKeys},
		CreateAPIKey: &usecase.CreateAPIKey{Keys: apiKeys},
		Authenticate: &usecase.AuthenticateAPIKey{Keys: apiKeys},
		APIKeys:      apiKeys,

		SignContent: &usecase.SignContent{
			Signatures: signatures,
			Crypto:     cryptoSvc,
			Keys:       keyManager,
			Notifier:   notifier,
		},
		VerifyContent: &usecase.VerifyContent{
			Signatures: signatures,
			Crypto:     cryptoSvc,
			Policy:     policy,
		},
		Signatures: signatures,

		CreateDocument: &usecase.CreateDocument{Chain: chain, Crypto: cryptoSvc},
		AddSignature:   &usecase.AddSignature{Chain: chain, Crypto: cryptoSvc, Keys: keyManager, Notifier: notifier},
		GetDocument:    &usecase.GetDocument{Chain: chain, Signatures: signatures, Users: users},
		Aggregate:      &usecase.AggregateSignatures{Chain: chain},
		ListRequests:   &usecase.ListSignatureRequests{Chain: chain, Users: users},
		DeclineRequest: &usecase.DeclineSignatureRequest{Chain: chain},

		GenerateKeyPair: &usecase.GenerateKeyPair{Pairs: keyPairs, Sealer: keyManager},
		RotateKeyPair:   &usecase.RotateKeyPair{Pairs: keyPairs, Sealer: keyManager},
		KeyPairs:        keyPairs,

		Reputation: reputation.NewCalculator(signatures),
		Exporter:   c2pa.NewExporter(cfg.VerifyBaseURL),

		RateLimiter:      limiter,
		RateLimitDefault: cfg.RateLimitDefault,
		RateLimitWindow:  cfg.RateLimitWindow,

		Metrics: &metricsRecorder{repo: metrics, logger: logger},
	})

	handler := server.Handler()
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// loadKEK decodes the configured key-encryption key, or generates an
// ephemeral one. Keys sealed under an ephemeral KEK do not survive a
// restart, so production deployments must set ORIGINMARK_KEK.
func loadKEK(encoded string, logger *slog.Logger) ([]byte, error) {
	if encoded != "" {
		kek, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, err
		}
		return kek, nil
	}
	logger.Warn("ORIGINMARK_KEK not set, generating ephemeral key encryption key")
	kek := make([]byte, 32)
	if _, err := rand.Read(kek); err != nil {
		return nil, err
	}
	return kek, nil
}

func webhookTargets(cfg config.Config) []webhook.Target {
	var targets []webhook.Target
	if cfg.WebhookSlackURL != "" {
		targets = append(targets, webhook.Target{URL: cfg.WebhookSlackURL, Kind: "slack"})
	}
	if cfg.WebhookDiscordURL != "" {
		targets = append(targets, webhook.Target{URL: cfg.WebhookDiscordURL, Kind: "discord"})
	}
	if cfg.WebhookGenericURL != "" {
		targets = append(targets, webhook.Target{URL: cfg.WebhookGenericURL, Secret: cfg.WebhookSecret})
	}
	return targets
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// metricsRecorder writes usage rows off the request path.
type metricsRecorder struct {
	repo   *db.MetricsRepository
	logger *slog.Logger
}

func (m *metricsRecorder) Record(endpoint, method string, statusCode int, responseTime float64, apiKeyID, userID string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.repo.Record(ctx, db.UsageMetric{
		APIKeyID:     apiKeyID,
		UserID:       userID,
		Endpoint:     endpoint,
		Method:       method,
		StatusCode:   statusCode,
		ResponseTime: responseTime,
		Timestamp:    at,
	})
	if err != nil {
		m.logger.Warn("usage metric not recorded", "error", err)
	}
}
