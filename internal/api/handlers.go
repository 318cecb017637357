package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ignite/waitlist-api/internal/domain"
	"github.com/ignite/waitlist-api/internal/pkg/httputil"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// Response messages. Existing clients match on these strings.
const (
	msgSubscribed        = "Email subscribed and confirmation sent successfully."
	msgEmailRequired     = "Email is required."
	msgAlreadySubscribed = "This email is already subscribed."
	msgInvalidBody       = "Invalid request body."
	msgSubscribeFailed   = "Error subscribing email."
	msgListFailed        = "Error retrieving emails."
	msgRunning           = "✅ Server is running smoothly"
)

// timestampLayout is RFC 3339 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Subscriptions is the workflow the handlers drive.
type Subscriptions interface {
	Subscribe(ctx context.Context, email string) (*subscription.Result, error)
	List(ctx context.Context) ([]domain.Subscriber, error)
}

// Handlers contains HTTP handlers for the waitlist endpoints.
type Handlers struct {
	svc Subscriptions
	now func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Subscriptions) *Handlers {
	return &Handlers{svc: svc, now: time.Now}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// ListResponse is the body of GET /emails.
type ListResponse struct {
	Count  int                 `json:"count"`
	Emails []domain.Subscriber `json:"emails"`
}

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SendMessage subscribes the posted address and queues its confirmation.
//
//	POST /sendMessage
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := httputil.Decode(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		logger.Debug("rejected subscribe body", "error", err)
		httputil.BadRequest(w, msgInvalidBody)
		return
	}

	_, err := h.svc.Subscribe(r.Context(), req.Email)
	switch {
	case err == nil:
		httputil.Message(w, http.StatusOK, msgSubscribed)
	case errors.Is(err, subscription.ErrValidation):
		httputil.BadRequest(w, msgEmailRequired)
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		httputil.BadRequest(w, msgAlreadySubscribed)
	default:
		respondSafeError(w, msgSubscribeFailed, err)
	}
}

// ListEmails returns every subscriber, newest first.
//
//	GET /emails
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		respondSafeError(w, msgListFailed, err)
		return
	}
	httputil.OK(w, ListResponse{Count: len(subs), Emails: subs})
}

// Status answers the root liveness check.
//
//	GET /
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, StatusResponse{
		Message:   msgRunning,
		Timestamp: h.now().UTC().Format(timestampLayout),
	})
}
