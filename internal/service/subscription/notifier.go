package subscription

import "context"

// Notifier delivers a single transactional email. Send reports whether the
// outbound channel accepted the message; transport failures are returned as
// false, never as an error or panic.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) bool
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, to, subject, htmlBody string) bool

func (f NotifierFunc) Send(ctx context.Context, to, subject, htmlBody string) bool {
	return f(ctx, to, subject, htmlBody)
}
