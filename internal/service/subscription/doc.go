// Package subscription implements the waitlist subscribe workflow.
//
// The service checks for an existing record, persists a new one and then
// sends a confirmation email on a best-effort basis. Persistence decides the
// outcome; a failed confirmation is logged and never unwinds a saved record.
//
// The service layer depends only on the Store and Notifier interfaces defined
// in this package. It never imports net/http or a database driver directly.
package subscription
