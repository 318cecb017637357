package subscription

import (
	"fmt"
	"html"
)

// ConfirmationSubject is the fixed subject of the confirmation email.
const ConfirmationSubject = "Subscription Confirmation"

const confirmationLayout = `
<div style="font-family:Arial,sans-serif;padding:20px;background:#f4f4f4;">
  <div style="max-width:600px;margin:auto;background:#fff;padding:20px;border-radius:8px;text-align:center;">
    <h2 style="color:#3b82f6;">Subscription Confirmed 🎉</h2>
    <p>Hi, your email <b>%s</b> has been successfully subscribed.</p>
    <p>We’ll notify you as soon as the application is available.</p>
  </div>
</div>
`

// ConfirmationBody renders the confirmation HTML for email. The address is
// escaped since it is user input.
func ConfirmationBody(email string) string {
	return fmt.Sprintf(confirmationLayout, html.EscapeString(email))
}
