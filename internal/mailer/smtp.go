// Package mailer implements subscription.Notifier over SMTP and AWS SES.
package mailer

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/ignite/waitlist-api/internal/config"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
)

// SMTPNotifier sends each message over a fresh relay connection.
type SMTPNotifier struct {
	dialer   *mail.Dialer
	fromName string
	fromAddr string
}

// NewSMTPNotifier builds a notifier for the relay in cfg. Port 465 means
// implicit TLS; any other port upgrades with STARTTLS when the relay offers it.
func NewSMTPNotifier(cfg config.SMTPConfig, from config.NotifierConfig) *SMTPNotifier {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.ImplicitTLS()
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	d.Timeout = from.Timeout()
	d.RetryFailure = false

	return &SMTPNotifier{
		dialer:   d,
		fromName: from.FromName,
		fromAddr: from.FromAddress,
	}
}

// Send delivers one HTML message. It returns false when the relay refuses the
// connection, authentication, sender or recipient, or when ctx expires first.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, htmlBody string) bool {
	msg := mail.NewMessage()
	msg.SetAddressHeader("From", n.fromAddr, n.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	// The dialer has no context support; its own Timeout bounds the
	// goroutine after ctx gives up on it.
	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- n.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("smtp send failed", "to", to, "host", n.dialer.Host, "error", err)
			return false
		}
		logger.Debug("smtp send accepted", "to", to, "took", time.Since(start).String())
		return true
	case <-ctx.Done():
		logger.Error("smtp send timed out", "to", to, "host", n.dialer.Host, "error", ctx.Err())
		return false
	}
}
