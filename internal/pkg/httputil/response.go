package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/waitlist-api/internal/pkg/logger"
)

// MaxBodyBytes caps request bodies read through Decode.
const MaxBodyBytes = 100 << 10

// ErrEmptyBody is returned by Decode when the request carries no body at all.
var ErrEmptyBody = errors.New("empty request body")

// MessageResponse is the envelope every endpoint answers with. Error is only
// set on 5xx responses and holds a sanitized description.
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code. Content-Type is
// set automatically; encoding failures are logged since the header is
// already on the wire.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "status", status, "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Message writes {"message": msg} with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageResponse{Message: msg})
}

// BadRequest writes a 400 with a client-facing message.
func BadRequest(w http.ResponseWriter, msg string) {
	Message(w, http.StatusBadRequest, msg)
}

// ServerError writes a 500 carrying msg and an already-sanitized detail.
func ServerError(w http.ResponseWriter, msg, detail string) {
	JSON(w, http.StatusInternalServerError, MessageResponse{Message: msg, Error: detail})
}

// Decode reads one JSON value from the request body into dst, reading at
// most MaxBodyBytes. An absent body yields ErrEmptyBody so callers can treat
// it as "no fields supplied" rather than malformed input.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
