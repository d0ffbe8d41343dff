package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/originmark/originmarkd/internal/domain"
)

const (
	ctxAPIKey = "api_key"
	ctxUserID = "user_id"
)

func (s *Server) apiKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer API key")
			return
		}
		key, err := s.deps.Authenticate.Execute(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(ctxAPIKey, key)
		c.Set(ctxUserID, key.UserID)
		c.Next()
	}
}

func apiKeyFrom(c *gin.Context) *domain.APIKey {
	if v, ok := c.Get(ctxAPIKey); ok {
		if key, ok := v.(*domain.APIKey); ok {
			return key
		}
	}
	return nil
}

func userIDFrom(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// rateLimit enforces the per-key window. A key's own limit wins over
// the server default; zero disables limiting for that key.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.RateLimiter == nil {
			c.Next()
			return
		}
		key := apiKeyFrom(c)
		if key == nil {
			c.Next()
			return
		}
		limit := s.deps.RateLimitDefault
		if key.RateLimit > 0 {
			limit = key.RateLimit
		}
		decision, err := s.deps.RateLimiter.Allow(
			c.Request.Context(),
			fmt.Sprintf("apikey:%s", key.ID),
			limit,
			s.deps.RateLimitWindow,
		)
		if err != nil {
			s.log.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}

// timingWriter injects the processing time header just before the
// response is committed; setting it after the handler runs would be
// too late.
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timingWriter) stamp() {
	if !w.stamped {
		w.stamped = true
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.6f", time.Since(w.start).Seconds()))
	}
}

func (w *timingWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

// telemetry stamps the processing time header and records usage
// asynchronously so metrics never sit on the request path.
func (s *Server) telemetry() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}
		c.Next()
		elapsed := time.Since(start)

		if s.deps.Metrics == nil {
			return
		}
		var keyID, userID string
		if key := apiKeyFrom(c); key != nil {
			keyID = key.ID
			userID = key.UserID
		}
		endpoint := c.FullPath()
		method := c.Request.Method
		status := c.Writer.Status()
		go s.deps.Metrics.Record(endpoint, method, status, elapsed.Seconds(), keyID, userID, start.UTC())
	}
}
