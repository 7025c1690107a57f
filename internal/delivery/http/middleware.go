package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-Id"

const requestIDKey = "request-id"

// CORSMiddleware handles CORS for the browser frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, "+HeaderRequestID)
			c.Writer.Header().Set("Access-Control-Expose-Headers", HeaderRequestID)
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list. An entry
// ending in "*" matches every origin with that prefix; "*" alone matches any
// non-empty origin.
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if strings.HasSuffix(allowed, "*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// RequestIDMiddleware reuses the caller's X-Request-Id or assigns a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = xid.New().String()
		}

		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID returns the id assigned by RequestIDMiddleware
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggerMiddleware logs one line per request; 4xx at warn, 5xx at error
func LoggerMiddleware(log *slog.Logger) gin.HandlerFunc {
	log = logging.OrDefault(log)

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String(logging.FieldRequestID, RequestID(c)),
			slog.String(logging.FieldMethod, c.Request.Method),
			slog.String(logging.FieldPath, path),
			slog.Int(logging.FieldStatus, status),
			slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		log.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}

// RecoveryMiddleware turns panics into a 500 JSON answer
func RecoveryMiddleware(log *slog.Logger) gin.HandlerFunc {
	log = logging.OrDefault(log)

	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic recovered",
			slog.String(logging.FieldRequestID, RequestID(c)),
			slog.String(logging.FieldPath, c.Request.URL.Path),
			slog.String("panic", fmt.Sprint(recovered)),
		)
		abortWithDetail(c, http.StatusInternalServerError, errorDetail{Error: "internal server error"})
	})
}
