package domain

import "time"

// Subscriber is a single waitlist entry: an email address and the moment it
// was registered. Records are created once and never mutated.
type Subscriber struct {
	ID           string    `json:"_id" db:"id"`
	Email        string    `json:"email" db:"email"`
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`
}
