package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	"github.com/FezAmir/projectfinal-api/internal/repository"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type participationRepository interface {
	Find(ctx context.Context, competitionID, studentID string) (*models.Participation, error)
	Exists(ctx context.Context, competitionID, studentID string) (bool, error)
	ListByCompetition(ctx context.Context, competitionID string, status models.ParticipationStatus) ([]models.ParticipationDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ParticipationDetail, error)
	CountPending(ctx context.Context, competitionID string) (int, error)
	Create(ctx context.Context, participation *models.Participation) error
	UpdateStatus(ctx context.Context, competitionID, studentID string, status models.ParticipationStatus, notes *string) error
	ApproveAllPending(ctx context.Context, competitionID string) ([]string, error)
	Delete(ctx context.Context, competitionID, studentID string) (bool, error)
}

type competitionReader interface {
	FindByID(ctx context.Context, id string) (*models.Competition, error)
}

// JoinRequest carries the optional free-text registration notes.
type JoinRequest struct {
	Notes string `json:"notes"`
}

// RejectParticipantRequest carries the mandatory rejection reason. The reason
// is stored into the participation notes field, overwriting the student's
// registration notes, matching the legacy portal behavior.
type RejectParticipantRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ApproveAllResult reports the outcome of a bulk approval.
type ApproveAllResult struct {
	ApprovedCount int    `json:"approved_count"`
	Message       string `json:"message,omitempty"`
}

// ParticipationService manages the student join-request lifecycle.
type ParticipationService struct {
	repo          participationRepository
	competitions  competitionReader
	notifications notificationWriter
	audit         auditWriter
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
}

// NewParticipationService constructs ParticipationService. Metrics may be nil.
func NewParticipationService(repo participationRepository, competitions competitionReader, notifications notificationWriter, audit auditWriter, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationService{
		repo:          repo,
		competitions:  competitions,
		notifications: notifications,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
	}
}

// Join registers a student against a competition. Registering twice is a
// warning-grade conflict, not a hard error: the row count for the pair stays
// at one even under a concurrent double-submit, backed by the store-level
// uniqueness constraint.
func (s *ParticipationService) Join(ctx context.Context, actor models.Actor, competitionID string, req JoinRequest) (*models.Participation, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can join competitions")
	}
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition.Status != models.CompetitionStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "competition is not open for registration")
	}

	exists, err := s.repo.Exists(ctx, competitionID, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this competition")
	}

	status := models.ParticipationStatusPending
	if competition.AutoApprove {
		status = models.ParticipationStatusApproved
	}
	participation := &models.Participation{
		CompetitionID: competitionID,
		StudentID:     actor.ID,
		Status:        status,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, participation); err != nil {
		if errors.Is(err, repository.ErrDuplicateParticipation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this competition")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register participation")
	}

	// Auto-approved registrations produce no notification; the organizer only
	// hears about requests that need a decision.
	if status == models.ParticipationStatusPending {
		s.notify(ctx, &models.Notification{
			UserID:        competition.OrganizerID,
			Role:          models.RoleOrganizer,
			Message:       fmt.Sprintf("New registration request for %q", competition.Title),
			Link:          "/competitions/" + competitionID + "/participants",
			CompetitionID: &competition.ID,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordJoin()
	}
	return participation, nil
}

// Approve transitions one participation to approved. Re-approving an already
// approved row succeeds silently.
func (s *ParticipationService) Approve(ctx context.Context, actor models.Actor, competitionID, studentID string) error {
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	if err := s.authorizeModerator(actor, competition); err != nil {
		return err
	}
	if _, err := s.loadParticipation(ctx, competitionID, studentID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, competitionID, studentID, models.ParticipationStatusApproved, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve participant")
	}
	s.notify(ctx, &models.Notification{
		UserID:        studentID,
		Role:          models.RoleStudent,
		Message:       fmt.Sprintf("Your registration for %q has been approved", competition.Title),
		Link:          "/competitions/" + competitionID,
		CompetitionID: &competition.ID,
	})
	if actor.IsAdmin() {
		s.writeAudit(ctx, actor.ID, models.AdminActionParticipantApprove, map[string]interface{}{
			"competition_id": competitionID,
			"student_id":     studentID,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordParticipationDecision("approved")
	}
	return nil
}

// Reject transitions one participation to rejected, storing the reason into
// the notes field.
func (s *ParticipationService) Reject(ctx context.Context, actor models.Actor, competitionID, studentID string, req RejectParticipantRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	if err := s.authorizeModerator(actor, competition); err != nil {
		return err
	}
	if _, err := s.loadParticipation(ctx, competitionID, studentID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, competitionID, studentID, models.ParticipationStatusRejected, &req.Reason); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject participant")
	}
	s.notify(ctx, &models.Notification{
		UserID:        studentID,
		Role:          models.RoleStudent,
		Message:       fmt.Sprintf("Your registration for %q has been rejected", competition.Title),
		Link:          "/competitions/" + competitionID,
		CompetitionID: &competition.ID,
	})
	if actor.IsAdmin() {
		s.writeAudit(ctx, actor.ID, models.AdminActionParticipantReject, map[string]interface{}{
			"competition_id": competitionID,
			"student_id":     studentID,
			"reason":         req.Reason,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordParticipationDecision("rejected")
	}
	return nil
}

// ApproveAll flips every participation still pending at write time. The
// returned count reflects rows actually transitioned, so a racing reject or
// cancel on an individual row is tolerated.
func (s *ParticipationService) ApproveAll(ctx context.Context, actor models.Actor, competitionID string) (*ApproveAllResult, error) {
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeModerator(actor, competition); err != nil {
		return nil, err
	}

	pending, err := s.repo.CountPending(ctx, competitionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending participants")
	}
	if pending == 0 {
		return &ApproveAllResult{ApprovedCount: 0, Message: "no pending participants"}, nil
	}

	studentIDs, err := s.repo.ApproveAllPending(ctx, competitionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve participants")
	}

	for _, studentID := range studentIDs {
		s.notify(ctx, &models.Notification{
			UserID:        studentID,
			Role:          models.RoleStudent,
			Message:       fmt.Sprintf("Your registration for %q has been approved", competition.Title),
			Link:          "/competitions/" + competitionID,
			CompetitionID: &competition.ID,
		})
	}
	if actor.IsAdmin() {
		s.writeAudit(ctx, actor.ID, models.AdminActionParticipantApproveAll, map[string]interface{}{
			"competition_id": competitionID,
			"approved_count": len(studentIDs),
		})
	}
	if s.metrics != nil {
		s.metrics.RecordBulkApproval(len(studentIDs))
	}
	return &ApproveAllResult{ApprovedCount: len(studentIDs)}, nil
}

// Cancel hard-deletes the student's own participation. Students are never
// written to the audit trail.
func (s *ParticipationService) Cancel(ctx context.Context, actor models.Actor, competitionID string) error {
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only the registered student may cancel")
	}
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, competitionID, actor.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel participation")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "participation not found")
	}
	s.notify(ctx, &models.Notification{
		UserID:        competition.OrganizerID,
		Role:          models.RoleOrganizer,
		Message:       fmt.Sprintf("A student withdrew from %q", competition.Title),
		Link:          "/competitions/" + competitionID + "/participants",
		CompetitionID: &competition.ID,
	})
	return nil
}

// ListByCompetition returns a competition's participants for its moderators.
func (s *ParticipationService) ListByCompetition(ctx context.Context, actor models.Actor, competitionID string, status models.ParticipationStatus) ([]models.ParticipationDetail, error) {
	competition, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeModerator(actor, competition); err != nil {
		return nil, err
	}
	participations, err := s.repo.ListByCompetition(ctx, competitionID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participations, nil
}

// ListMine returns the acting student's own registrations.
func (s *ParticipationService) ListMine(ctx context.Context, actor models.Actor) ([]models.ParticipationDetail, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have registrations")
	}
	participations, err := s.repo.ListByStudent(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return participations, nil
}

func (s *ParticipationService) loadCompetition(ctx context.Context, id string) (*models.Competition, error) {
	competition, err := s.competitions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	return competition, nil
}

func (s *ParticipationService) loadParticipation(ctx context.Context, competitionID, studentID string) (*models.Participation, error) {
	participation, err := s.repo.Find(ctx, competitionID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "participation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participation")
	}
	return participation, nil
}

// authorizeModerator admits admins and the competition's owning organizer.
func (s *ParticipationService) authorizeModerator(actor models.Actor, competition *models.Competition) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleOrganizer && actor.ID == competition.OrganizerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to moderate this competition")
}

func (s *ParticipationService) notify(ctx context.Context, notification *models.Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to write notification",
			zap.String("user_id", notification.UserID),
			zap.String("role", string(notification.Role)),
			zap.Error(err))
	}
}

func (s *ParticipationService) writeAudit(ctx context.Context, adminID, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := s.audit.Create(ctx, &models.AdminLog{AdminID: adminID, Action: action, Details: payload}); err != nil {
		s.logger.Warn("failed to write admin log", zap.String("action", action), zap.Error(err))
	}
}
