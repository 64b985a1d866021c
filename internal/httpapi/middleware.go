package httpapi

import (
	"context"
	"strings"

	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/response"

	cjerrors "codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"

	traceIDContextKey = "trace_id"
)

// traceMiddleware ensures every request carries a trace id, used by both
// the response envelope and structured logging.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDContextKey, traceID)
		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(traceIDHeader, traceID)

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = context.WithValue(c.Request.Context(), contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// corsConfig mirrors the reference codebase's CORS middleware shape.
type corsConfig struct {
	AllowedOrigins []string
}

func (cfg corsConfig) isAllowed(origin string) bool {
	for _, item := range cfg.AllowedOrigins {
		item = strings.TrimSpace(item)
		if item == "*" || strings.EqualFold(item, origin) {
			return true
		}
	}
	return false
}

// corsMiddleware applies CORS headers and answers every OPTIONS request
// with a bare 204, per §6's catch-all.
func corsMiddleware(cfg corsConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && cfg.isAllowed(origin) {
			if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// identityVerifier is the subset of the Identity capability the auth
// middleware needs.
type identityVerifier interface {
	UsernameFromToken(token string) (string, error)
}

// authMiddleware extracts a bearer token, validates it via verifier, and
// stores the resolved username in the gin context under "username".
func authMiddleware(verifier identityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.AbortWithError(c, cjerrors.UnauthorizedError("missing bearer token"))
			return
		}

		username, err := verifier.UsernameFromToken(token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set("username", username)
		c.Next()
	}
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
