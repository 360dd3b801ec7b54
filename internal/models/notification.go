package models

import "time"

// Notification is one entry in a user's append-only mailbox. CompetitionID is
// set when the message concerns a competition so that deleting the competition
// can cascade over its notifications.
type Notification struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Role          UserRole  `db:"role" json:"role"`
	Message       string    `db:"message" json:"message"`
	Link          string    `db:"link" json:"link,omitempty"`
	CompetitionID *string   `db:"competition_id" json:"competition_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
