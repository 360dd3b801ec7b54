package models

import "time"

// ParticipationStatus represents the lifecycle of a join request.
type ParticipationStatus string

// Possible participation statuses.
const (
	ParticipationStatusPending  ParticipationStatus = "PENDING"
	ParticipationStatusApproved ParticipationStatus = "APPROVED"
	ParticipationStatusRejected ParticipationStatus = "REJECTED"
)

// Participation links a student to a competition. The (competition, student)
// pair is unique at the store level; cancellation deletes the row rather than
// recording a status.
type Participation struct {
	CompetitionID string              `db:"competition_id" json:"competition_id"`
	StudentID     string              `db:"student_id" json:"student_id"`
	Status        ParticipationStatus `db:"status" json:"status"`
	Notes         string              `db:"notes" json:"notes"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// ParticipationDetail enriches Participation with student and competition info.
type ParticipationDetail struct {
	Participation
	StudentName      string `db:"student_name" json:"student_name"`
	StudentEmail     string `db:"student_email" json:"student_email"`
	CompetitionTitle string `db:"competition_title" json:"competition_title"`
}

// ParticipationFilter provides filters for listing participations.
type ParticipationFilter struct {
	CompetitionID string
	StudentID     string
	Status        ParticipationStatus
	Page          int
	PageSize      int
}
