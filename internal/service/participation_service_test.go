package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	"github.com/FezAmir/projectfinal-api/internal/repository"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type mockParticipationRepo struct {
	participation     *models.Participation
	findErr           error
	exists            bool
	existsErr         error
	byCompetition     []models.ParticipationDetail
	byStudent         []models.ParticipationDetail
	pendingCount      int
	created           *models.Participation
	createErr         error
	updatedStatus     models.ParticipationStatus
	updatedNotes      *string
	updateErr         error
	approvedAll       []string
	approveAllCalled  bool
	deleted           bool
	deleteRemoved     bool
	deleteErr         error
	lastCompetitionID string
	lastStudentID     string
}

func (m *mockParticipationRepo) Find(ctx context.Context, competitionID, studentID string) (*models.Participation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.participation == nil {
		return nil, sql.ErrNoRows
	}
	return m.participation, nil
}

func (m *mockParticipationRepo) Exists(ctx context.Context, competitionID, studentID string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockParticipationRepo) ListByCompetition(ctx context.Context, competitionID string, status models.ParticipationStatus) ([]models.ParticipationDetail, error) {
	return m.byCompetition, nil
}

func (m *mockParticipationRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ParticipationDetail, error) {
	return m.byStudent, nil
}

func (m *mockParticipationRepo) CountPending(ctx context.Context, competitionID string) (int, error) {
	return m.pendingCount, nil
}

func (m *mockParticipationRepo) Create(ctx context.Context, participation *models.Participation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = participation
	return nil
}

func (m *mockParticipationRepo) UpdateStatus(ctx context.Context, competitionID, studentID string, status models.ParticipationStatus, notes *string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.lastCompetitionID = competitionID
	m.lastStudentID = studentID
	m.updatedStatus = status
	m.updatedNotes = notes
	return nil
}

func (m *mockParticipationRepo) ApproveAllPending(ctx context.Context, competitionID string) ([]string, error) {
	m.approveAllCalled = true
	return m.approvedAll, nil
}

func (m *mockParticipationRepo) Delete(ctx context.Context, competitionID, studentID string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	m.deleted = true
	return m.deleteRemoved, nil
}

type mockCompetitionReader struct {
	competition *models.Competition
	err         error
}

func (m *mockCompetitionReader) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.competition == nil {
		return nil, sql.ErrNoRows
	}
	return m.competition, nil
}

type mockNotificationSink struct {
	notifications []*models.Notification
	err           error
}

func (m *mockNotificationSink) Create(ctx context.Context, notification *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.notifications = append(m.notifications, notification)
	return nil
}

type mockAuditSink struct {
	logs []*models.AdminLog
	err  error
}

func (m *mockAuditSink) Create(ctx context.Context, log *models.AdminLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func approvedCompetition() *models.Competition {
	return &models.Competition{
		ID:          "c1",
		Title:       "Math Olympiad",
		OrganizerID: "org1",
		Status:      models.CompetitionStatusApproved,
	}
}

func newParticipationService(repo *mockParticipationRepo, competitions *mockCompetitionReader, notifications *mockNotificationSink, audit *mockAuditSink) *ParticipationService {
	return NewParticipationService(repo, competitions, notifications, audit, validator.New(), zap.NewNop(), nil)
}

func TestParticipationJoinPending(t *testing.T) {
	repo := &mockParticipationRepo{}
	notifications := &mockNotificationSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, &mockAuditSink{})

	participation, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{Notes: "first timer"})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusPending, participation.Status)
	assert.Equal(t, "first timer", participation.Notes)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "org1", notifications.notifications[0].UserID)
	assert.Equal(t, models.RoleOrganizer, notifications.notifications[0].Role)
}

func TestParticipationJoinAutoApprove(t *testing.T) {
	competition := approvedCompetition()
	competition.AutoApprove = true
	repo := &mockParticipationRepo{}
	notifications := &mockNotificationSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: competition}, notifications, &mockAuditSink{})

	participation, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusApproved, participation.Status)
	assert.Empty(t, notifications.notifications)
}

func TestParticipationJoinNotApprovedCompetition(t *testing.T) {
	competition := approvedCompetition()
	competition.Status = models.CompetitionStatusPending
	svc := newParticipationService(&mockParticipationRepo{}, &mockCompetitionReader{competition: competition}, &mockNotificationSink{}, &mockAuditSink{})

	_, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestParticipationJoinTwiceConflict(t *testing.T) {
	repo := &mockParticipationRepo{exists: true}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	_, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestParticipationJoinDuplicateRace(t *testing.T) {
	// The existence check can pass on both sides of a double-submit; the
	// store-level constraint is the backstop.
	repo := &mockParticipationRepo{createErr: repository.ErrDuplicateParticipation}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	_, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestParticipationJoinNonStudent(t *testing.T) {
	svc := newParticipationService(&mockParticipationRepo{}, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	_, err := svc.Join(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", JoinRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestParticipationApproveByOwner(t *testing.T) {
	repo := &mockParticipationRepo{participation: &models.Participation{CompetitionID: "c1", StudentID: "s1", Status: models.ParticipationStatusPending}}
	notifications := &mockNotificationSink{}
	audit := &mockAuditSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, audit)

	err := svc.Approve(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusApproved, repo.updatedStatus)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "s1", notifications.notifications[0].UserID)
	// Organizer actions are not audited.
	assert.Empty(t, audit.logs)
}

func TestParticipationApproveByAdminAudited(t *testing.T) {
	repo := &mockParticipationRepo{participation: &models.Participation{CompetitionID: "c1", StudentID: "s1", Status: models.ParticipationStatusPending}}
	audit := &mockAuditSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, audit)

	err := svc.Approve(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1", "s1")
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AdminActionParticipantApprove, audit.logs[0].Action)
}

func TestParticipationApproveIdempotent(t *testing.T) {
	repo := &mockParticipationRepo{participation: &models.Participation{CompetitionID: "c1", StudentID: "s1", Status: models.ParticipationStatusApproved}}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	require.NoError(t, svc.Approve(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", "s1"))
	assert.Equal(t, models.ParticipationStatusApproved, repo.updatedStatus)
}

func TestParticipationApproveByOtherOrganizer(t *testing.T) {
	repo := &mockParticipationRepo{participation: &models.Participation{CompetitionID: "c1", StudentID: "s1"}}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	err := svc.Approve(context.Background(), models.Actor{ID: "org2", Role: models.RoleOrganizer}, "c1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestParticipationApproveMissing(t *testing.T) {
	svc := newParticipationService(&mockParticipationRepo{}, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	err := svc.Approve(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestParticipationRejectStoresReasonInNotes(t *testing.T) {
	repo := &mockParticipationRepo{participation: &models.Participation{CompetitionID: "c1", StudentID: "s1", Notes: "my original notes"}}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	err := svc.Reject(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", "s1", RejectParticipantRequest{Reason: "incomplete submission"})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusRejected, repo.updatedStatus)
	require.NotNil(t, repo.updatedNotes)
	assert.Equal(t, "incomplete submission", *repo.updatedNotes)
}

func TestParticipationRejectRequiresReason(t *testing.T) {
	svc := newParticipationService(&mockParticipationRepo{}, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	err := svc.Reject(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", "s1", RejectParticipantRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestParticipationApproveAll(t *testing.T) {
	repo := &mockParticipationRepo{pendingCount: 3, approvedAll: []string{"s1", "s2", "s3"}}
	notifications := &mockNotificationSink{}
	audit := &mockAuditSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, audit)

	result, err := svc.ApproveAll(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ApprovedCount)
	assert.Len(t, notifications.notifications, 3)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AdminActionParticipantApproveAll, audit.logs[0].Action)
}

func TestParticipationApproveAllNonePending(t *testing.T) {
	repo := &mockParticipationRepo{pendingCount: 0}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	result, err := svc.ApproveAll(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ApprovedCount)
	assert.Equal(t, "no pending participants", result.Message)
	assert.False(t, repo.approveAllCalled)
}

func TestParticipationApproveAllCountsFlippedRows(t *testing.T) {
	// Two rows were pending at check time but only one survived to the write.
	repo := &mockParticipationRepo{pendingCount: 2, approvedAll: []string{"s1"}}
	notifications := &mockNotificationSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, &mockAuditSink{})

	result, err := svc.ApproveAll(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ApprovedCount)
	assert.Len(t, notifications.notifications, 1)
}

func TestParticipationCancel(t *testing.T) {
	repo := &mockParticipationRepo{deleteRemoved: true}
	notifications := &mockNotificationSink{}
	audit := &mockAuditSink{}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, audit)

	err := svc.Cancel(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1")
	require.NoError(t, err)
	assert.True(t, repo.deleted)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "org1", notifications.notifications[0].UserID)
	assert.Empty(t, audit.logs)
}

func TestParticipationCancelNotRegistered(t *testing.T) {
	repo := &mockParticipationRepo{deleteRemoved: false}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	err := svc.Cancel(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestParticipationNotificationFailureSwallowed(t *testing.T) {
	repo := &mockParticipationRepo{}
	notifications := &mockNotificationSink{err: errors.New("sink down")}
	svc := newParticipationService(repo, &mockCompetitionReader{competition: approvedCompetition()}, notifications, &mockAuditSink{})

	participation, err := svc.Join(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", JoinRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationStatusPending, participation.Status)
}

func TestParticipationListByCompetitionForbidden(t *testing.T) {
	svc := newParticipationService(&mockParticipationRepo{}, &mockCompetitionReader{competition: approvedCompetition()}, &mockNotificationSink{}, &mockAuditSink{})

	_, err := svc.ListByCompetition(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, "c1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestParticipationListMine(t *testing.T) {
	repo := &mockParticipationRepo{byStudent: []models.ParticipationDetail{{CompetitionTitle: "Math Olympiad"}}}
	svc := newParticipationService(repo, &mockCompetitionReader{}, &mockNotificationSink{}, &mockAuditSink{})

	list, err := svc.ListMine(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
