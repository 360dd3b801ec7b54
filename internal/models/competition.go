package models

import "time"

// CompetitionStatus represents the moderation lifecycle of a competition.
type CompetitionStatus string

// Possible competition statuses.
const (
	CompetitionStatusPending  CompetitionStatus = "PENDING"
	CompetitionStatusApproved CompetitionStatus = "APPROVED"
	CompetitionStatusRejected CompetitionStatus = "REJECTED"
)

// Competition is a contest owned by one organizer and moderated by admins.
type Competition struct {
	ID              string            `db:"id" json:"id"`
	Title           string            `db:"title" json:"title"`
	Description     string            `db:"description" json:"description"`
	CategoryID      string            `db:"category_id" json:"category_id"`
	OrganizerID     string            `db:"organizer_id" json:"organizer_id"`
	StartDate       time.Time         `db:"start_date" json:"start_date"`
	EndDate         time.Time         `db:"end_date" json:"end_date"`
	Status          CompetitionStatus `db:"status" json:"status"`
	RejectionReason *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	AutoApprove     bool              `db:"auto_approve" json:"auto_approve"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Ended reports whether the competition's end date has passed. This is a
// derived condition overlaid on the stored status, never stored itself.
func (c *Competition) Ended(now time.Time) bool {
	return c.EndDate.Before(now.Truncate(24 * time.Hour))
}

// CompetitionDetail enriches Competition with catalog and owner info.
type CompetitionDetail struct {
	Competition
	CategoryName     string `db:"category_name" json:"category_name"`
	OrganizerName    string `db:"organizer_name" json:"organizer_name"`
	ParticipantCount int    `db:"participant_count" json:"participant_count"`
}

// CompetitionFilter provides filters for listing competitions.
type CompetitionFilter struct {
	Status      CompetitionStatus
	CategoryID  string
	OrganizerID string
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
