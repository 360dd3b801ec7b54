package models

import "time"

// AdminAction constants represent privileged actions recorded in the audit
// trail. Only admin-initiated mutations are logged.
const (
	AdminActionLogin                 = "LOGIN"
	AdminActionLogout                = "LOGOUT"
	AdminActionCompetitionApprove    = "COMPETITION_APPROVE"
	AdminActionCompetitionReject     = "COMPETITION_REJECT"
	AdminActionCompetitionDelete     = "COMPETITION_DELETE"
	AdminActionParticipantApprove    = "PARTICIPANT_APPROVE"
	AdminActionParticipantReject     = "PARTICIPANT_REJECT"
	AdminActionParticipantApproveAll = "PARTICIPANT_APPROVE_ALL"
)

// AdminLog represents one audit trail record.
type AdminLog struct {
	ID        string    `db:"id" json:"id"`
	AdminID   string    `db:"admin_id" json:"admin_id"`
	Action    string    `db:"action" json:"action"`
	Details   []byte    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
