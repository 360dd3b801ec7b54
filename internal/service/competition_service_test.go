package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type mockCompetitionRepo struct {
	competitions  []models.CompetitionDetail
	total         int
	listCalled    bool
	lastFilter    models.CompetitionFilter
	competition   *models.Competition
	detail        *models.CompetitionDetail
	created       *models.Competition
	updated       *models.Competition
	statusID      string
	status        models.CompetitionStatus
	statusReason  *string
	deletedID     string
	updateStatErr error
}

func (m *mockCompetitionRepo) List(ctx context.Context, filter models.CompetitionFilter) ([]models.CompetitionDetail, int, error) {
	m.listCalled = true
	m.lastFilter = filter
	return m.competitions, m.total, nil
}

func (m *mockCompetitionRepo) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	if m.competition == nil {
		return nil, sql.ErrNoRows
	}
	return m.competition, nil
}

func (m *mockCompetitionRepo) FindDetailByID(ctx context.Context, id string) (*models.CompetitionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockCompetitionRepo) Create(ctx context.Context, competition *models.Competition) error {
	competition.ID = "generated"
	m.created = competition
	return nil
}

func (m *mockCompetitionRepo) Update(ctx context.Context, competition *models.Competition) error {
	m.updated = competition
	return nil
}

func (m *mockCompetitionRepo) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus, reason *string) error {
	if m.updateStatErr != nil {
		return m.updateStatErr
	}
	m.statusID = id
	m.status = status
	m.statusReason = reason
	return nil
}

func (m *mockCompetitionRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type mockCategoryReader struct {
	category *models.Category
}

func (m *mockCategoryReader) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if m.category == nil {
		return nil, sql.ErrNoRows
	}
	return m.category, nil
}

type mockListingCache struct {
	payload    *listingPayload
	getKeys    []string
	setKeys    []string
	deletedPat string
}

func (m *mockListingCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.getKeys = append(m.getKeys, key)
	if m.payload == nil {
		return appErrors.ErrCacheMiss
	}
	*dest.(*listingPayload) = *m.payload
	return nil
}

func (m *mockListingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setKeys = append(m.setKeys, key)
	return nil
}

func (m *mockListingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPat = pattern
	return nil
}

func newCompetitionService(repo *mockCompetitionRepo, categories *mockCategoryReader, notifications *mockNotificationSink, audit *mockAuditSink, cache *mockListingCache) *CompetitionService {
	var c listingCache
	if cache != nil {
		c = cache
	}
	return NewCompetitionService(repo, categories, notifications, audit, c, time.Minute, validator.New(), zap.NewNop(), nil)
}

func validCompetitionRequest() CompetitionRequest {
	start := time.Now().UTC().Add(48 * time.Hour)
	return CompetitionRequest{
		Title:       "Science Fair",
		Description: "Annual science fair",
		CategoryID:  "cat1",
		StartDate:   start,
		EndDate:     start.Add(24 * time.Hour),
	}
}

func TestCompetitionCreateByOrganizerStartsPending(t *testing.T) {
	repo := &mockCompetitionRepo{}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	competition, err := svc.Create(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, validCompetitionRequest())
	require.NoError(t, err)
	assert.Equal(t, models.CompetitionStatusPending, competition.Status)
	assert.Equal(t, "org1", competition.OrganizerID)
}

func TestCompetitionCreateByAdminApprovedImmediately(t *testing.T) {
	repo := &mockCompetitionRepo{}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	req := validCompetitionRequest()
	req.OrganizerID = "org7"
	competition, err := svc.Create(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, req)
	require.NoError(t, err)
	assert.Equal(t, models.CompetitionStatusApproved, competition.Status)
	assert.Equal(t, "org7", competition.OrganizerID)
}

func TestCompetitionCreateByStudentForbidden(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, err := svc.Create(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, validCompetitionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompetitionCreatePastStartDate(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	req := validCompetitionRequest()
	req.StartDate = time.Now().UTC().Add(-72 * time.Hour)
	_, err := svc.Create(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompetitionCreateEndBeforeStart(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	req := validCompetitionRequest()
	req.EndDate = req.StartDate.Add(-time.Hour)
	_, err := svc.Create(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompetitionCreateUnknownCategory(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, err := svc.Create(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, validCompetitionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompetitionEditByOwner(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{
		ID:          "c1",
		OrganizerID: "org1",
		Status:      models.CompetitionStatusApproved,
		EndDate:     time.Now().UTC().Add(240 * time.Hour),
	}}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	req := validCompetitionRequest()
	req.Title = "Renamed"
	competition, err := svc.Edit(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", competition.Title)
	// The status field is never touched by content edits.
	assert.Equal(t, models.CompetitionStatusApproved, competition.Status)
	require.NotNil(t, repo.updated)
}

func TestCompetitionEditEndedConflict(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{
		ID:          "c1",
		OrganizerID: "org1",
		EndDate:     time.Now().UTC().Add(-240 * time.Hour),
	}}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, err := svc.Edit(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", validCompetitionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCompetitionEditByNonOwnerForbidden(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1", EndDate: time.Now().UTC().Add(240 * time.Hour)}}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, err := svc.Edit(context.Background(), models.Actor{ID: "org2", Role: models.RoleOrganizer}, "c1", validCompetitionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompetitionEditPastStartAllowed(t *testing.T) {
	// Edits only check date ordering; an already running competition keeps its
	// original start date without tripping the future-start rule.
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1", EndDate: time.Now().UTC().Add(240 * time.Hour)}}
	svc := newCompetitionService(repo, &mockCategoryReader{category: &models.Category{ID: "cat1"}}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	req := validCompetitionRequest()
	req.StartDate = time.Now().UTC().Add(-24 * time.Hour)
	req.EndDate = time.Now().UTC().Add(24 * time.Hour)
	_, err := svc.Edit(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1", req)
	require.NoError(t, err)
}

func TestCompetitionApprove(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", Title: "Science Fair", OrganizerID: "org1", Status: models.CompetitionStatusPending}}
	notifications := &mockNotificationSink{}
	audit := &mockAuditSink{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, notifications, audit, nil)

	err := svc.Approve(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CompetitionStatusApproved, repo.status)
	assert.Nil(t, repo.statusReason)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "org1", notifications.notifications[0].UserID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AdminActionCompetitionApprove, audit.logs[0].Action)
}

func TestCompetitionApproveIdempotent(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", Status: models.CompetitionStatusApproved}}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	require.NoError(t, svc.Approve(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1"))
	assert.Equal(t, models.CompetitionStatusApproved, repo.status)
}

func TestCompetitionApproveByOrganizerForbidden(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1"}}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	err := svc.Approve(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompetitionRejectPersistsReason(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", Title: "Science Fair", OrganizerID: "org1", Status: models.CompetitionStatusPending}}
	notifications := &mockNotificationSink{}
	audit := &mockAuditSink{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, notifications, audit, nil)

	err := svc.Reject(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1", RejectCompetitionRequest{Reason: "duplicate event"})
	require.NoError(t, err)
	assert.Equal(t, models.CompetitionStatusRejected, repo.status)
	require.NotNil(t, repo.statusReason)
	assert.Equal(t, "duplicate event", *repo.statusReason)
	// The reason stays off the notification text.
	require.Len(t, notifications.notifications, 1)
	assert.NotContains(t, notifications.notifications[0].Message, "duplicate event")
	require.Len(t, audit.logs, 1)
	assert.Contains(t, string(audit.logs[0].Details), "duplicate event")
}

func TestCompetitionRejectRequiresReason(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1"}}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	err := svc.Reject(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1", RejectCompetitionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCompetitionDeleteByAdminAudited(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", Title: "Science Fair", OrganizerID: "org1"}}
	audit := &mockAuditSink{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, audit, nil)

	require.NoError(t, svc.Delete(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1"))
	assert.Equal(t, "c1", repo.deletedID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AdminActionCompetitionDelete, audit.logs[0].Action)
}

func TestCompetitionDeleteByOwnerNotAudited(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1"}}
	audit := &mockAuditSink{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, audit, nil)

	require.NoError(t, svc.Delete(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, "c1"))
	assert.Empty(t, audit.logs)
}

func TestCompetitionDeleteByNonOwnerForbidden(t *testing.T) {
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1"}}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	err := svc.Delete(context.Background(), models.Actor{ID: "org2", Role: models.RoleOrganizer}, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompetitionListPublicForcesApproved(t *testing.T) {
	repo := &mockCompetitionRepo{competitions: []models.CompetitionDetail{}, total: 0}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, _, err := svc.ListPublic(context.Background(), models.CompetitionFilter{Status: models.CompetitionStatusPending, OrganizerID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, models.CompetitionStatusApproved, repo.lastFilter.Status)
	assert.Empty(t, repo.lastFilter.OrganizerID)
}

func TestCompetitionListPublicCacheHit(t *testing.T) {
	cache := &mockListingCache{payload: &listingPayload{
		Competitions: []models.CompetitionDetail{{Competition: models.Competition{ID: "c1"}}},
		Total:        1,
	}}
	repo := &mockCompetitionRepo{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, cache)

	list, pagination, err := svc.ListPublic(context.Background(), models.CompetitionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.False(t, repo.listCalled)
}

func TestCompetitionListPublicCacheMissPopulates(t *testing.T) {
	cache := &mockListingCache{}
	repo := &mockCompetitionRepo{competitions: []models.CompetitionDetail{{Competition: models.Competition{ID: "c1"}}}, total: 1}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, cache)

	list, _, err := svc.ListPublic(context.Background(), models.CompetitionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, repo.listCalled)
	assert.Len(t, cache.setKeys, 1)
}

func TestCompetitionApproveInvalidatesListingCache(t *testing.T) {
	cache := &mockListingCache{}
	repo := &mockCompetitionRepo{competition: &models.Competition{ID: "c1", OrganizerID: "org1"}}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, cache)

	require.NoError(t, svc.Approve(context.Background(), models.Actor{ID: "a1", Role: models.RoleAdmin}, "c1"))
	assert.Equal(t, publicListingKeyPrefix+":*", cache.deletedPat)
}

func TestCompetitionListMineScopesToActor(t *testing.T) {
	repo := &mockCompetitionRepo{}
	svc := newCompetitionService(repo, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, _, err := svc.ListMine(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, models.CompetitionFilter{OrganizerID: "org9"})
	require.NoError(t, err)
	assert.Equal(t, "org1", repo.lastFilter.OrganizerID)
}

func TestCompetitionListAllAdminOnly(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, _, err := svc.ListAll(context.Background(), models.Actor{ID: "org1", Role: models.RoleOrganizer}, models.CompetitionFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompetitionGetNotFound(t *testing.T) {
	svc := newCompetitionService(&mockCompetitionRepo{}, &mockCategoryReader{}, &mockNotificationSink{}, &mockAuditSink{}, nil)

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
