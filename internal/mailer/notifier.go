package mailer

import (
	"context"
	"fmt"

	"github.com/ignite/waitlist-api/internal/config"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// LogNotifier has no transport. It logs the message it would have sent and
// reports it as not delivered.
type LogNotifier struct {
	Reason string
}

func (n LogNotifier) Send(_ context.Context, to, subject, _ string) bool {
	logger.Warn("confirmation email skipped", "to", to, "subject", subject, "reason", n.Reason)
	return false
}

// New builds the notifier selected by cfg.Notifier.Provider. A transport
// that could never send (no relay host, no sender address) is replaced by a
// LogNotifier so the misconfiguration shows up at startup.
func New(ctx context.Context, cfg *config.Config) (subscription.Notifier, error) {
	switch cfg.Notifier.Provider {
	case "smtp":
		if cfg.SMTP.Host == "" {
			return fallback("SMTP host not configured"), nil
		}
		if cfg.Notifier.FromAddress == "" {
			return fallback("sender address not configured (MAIL_FROM_ADDRESS or SMTP_USERNAME)"), nil
		}
		return NewSMTPNotifier(cfg.SMTP, cfg.Notifier), nil
	case "ses":
		if cfg.Notifier.FromAddress == "" {
			return fallback("sender address not configured (MAIL_FROM_ADDRESS)"), nil
		}
		return NewSESNotifier(ctx, cfg.SES, cfg.Notifier)
	case "log":
		return LogNotifier{Reason: "notifier provider is log"}, nil
	default:
		return nil, fmt.Errorf("unknown notifier provider %q", cfg.Notifier.Provider)
	}
}

func fallback(reason string) LogNotifier {
	logger.Warn("confirmation emails disabled", "reason", reason)
	return LogNotifier{Reason: reason}
}
