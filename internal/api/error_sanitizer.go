package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/waitlist-api/internal/pkg/httputil"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// Internal errors (driver messages, hostnames, file paths) never reach API
// consumers. 5xx responses carry a generic description and the full error
// is logged server-side.

// respondSafeError logs the internal error and sends a 500 whose error field
// is the sanitized form of it.
func respondSafeError(w http.ResponseWriter, publicMsg string, internalErr error) {
	logger.Error(publicMsg, "status", http.StatusInternalServerError, "error", internalErr)
	httputil.ServerError(w, publicMsg, safeErrorMessage(internalErr))
}

// safeErrorMessage maps common internal error patterns to public-safe messages.
func safeErrorMessage(internalErr error) string {
	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "not configured"):
		return "Service temporarily unavailable"

	case errors.Is(internalErr, subscription.ErrUnavailable) ||
		strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "mongo") ||
		strings.Contains(errStr, "redis") ||
		strings.Contains(errStr, "database"):
		return "A database error occurred"

	case strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized"):
		return "Access denied"

	default:
		return "An internal error occurred"
	}
}
