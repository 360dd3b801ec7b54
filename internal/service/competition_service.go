package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
)

type competitionRepository interface {
	List(ctx context.Context, filter models.CompetitionFilter) ([]models.CompetitionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Competition, error)
	FindDetailByID(ctx context.Context, id string) (*models.CompetitionDetail, error)
	Create(ctx context.Context, competition *models.Competition) error
	Update(ctx context.Context, competition *models.Competition) error
	UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus, reason *string) error
	Delete(ctx context.Context, id string) error
}

type categoryReader interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type auditWriter interface {
	Create(ctx context.Context, log *models.AdminLog) error
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const publicListingKeyPrefix = "competitions:public"

// CompetitionRequest describes create/edit payloads.
type CompetitionRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	CategoryID  string    `json:"category_id" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	AutoApprove bool      `json:"auto_approve"`
	// OrganizerID is honored only for admin actors creating on behalf of an
	// organizer; organizers always own what they create.
	OrganizerID string `json:"organizer_id,omitempty"`
}

// RejectCompetitionRequest carries the mandatory rejection reason.
type RejectCompetitionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CompetitionService orchestrates the competition status workflow.
type CompetitionService struct {
	repo          competitionRepository
	categories    categoryReader
	notifications notificationWriter
	audit         auditWriter
	cache         listingCache
	cacheTTL      time.Duration
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
	now           func() time.Time
}

// NewCompetitionService constructs CompetitionService. Cache and metrics may
// be nil.
func NewCompetitionService(repo competitionRepository, categories categoryReader, notifications notificationWriter, audit auditWriter, cache listingCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *CompetitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetitionService{
		repo:          repo,
		categories:    categories,
		notifications: notifications,
		audit:         audit,
		cache:         cache,
		cacheTTL:      cacheTTL,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type listingPayload struct {
	Competitions []models.CompetitionDetail `json:"competitions"`
	Total        int                        `json:"total"`
}

// ListPublic returns approved competitions for the public catalog, served
// from the redis cache when possible.
func (s *CompetitionService) ListPublic(ctx context.Context, filter models.CompetitionFilter) ([]models.CompetitionDetail, *models.Pagination, error) {
	filter.Status = models.CompetitionStatusApproved
	filter.OrganizerID = ""

	key := fmt.Sprintf("%s:p%d:n%d:c%s:q%s:s%s%s", publicListingKeyPrefix,
		filter.Page, filter.PageSize, filter.CategoryID, filter.Search, filter.SortBy, filter.SortOrder)

	if s.cache != nil {
		var cached listingPayload
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(true)
			}
			return cached.Competitions, s.paginationFor(filter, cached.Total), nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("competition listing cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheHit(false)
		}
	}

	competitions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, listingPayload{Competitions: competitions, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("competition listing cache write failed", zap.Error(err))
		}
	}
	return competitions, s.paginationFor(filter, total), nil
}

// ListMine returns the competitions owned by the acting organizer.
func (s *CompetitionService) ListMine(ctx context.Context, actor models.Actor, filter models.CompetitionFilter) ([]models.CompetitionDetail, *models.Pagination, error) {
	if actor.Role != models.RoleOrganizer {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only organizers have owned competitions")
	}
	filter.OrganizerID = actor.ID
	competitions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}
	return competitions, s.paginationFor(filter, total), nil
}

// ListAll returns competitions in every status for admin moderation.
func (s *CompetitionService) ListAll(ctx context.Context, actor models.Actor, filter models.CompetitionFilter) ([]models.CompetitionDetail, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	competitions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list competitions")
	}
	return competitions, s.paginationFor(filter, total), nil
}

// Get returns one competition with catalog and owner info.
func (s *CompetitionService) Get(ctx context.Context, id string) (*models.CompetitionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	return detail, nil
}

// Create registers a new competition. Organizer-created competitions start
// pending; admin-created ones are approved immediately.
func (s *CompetitionService) Create(ctx context.Context, actor models.Actor, req CompetitionRequest) (*models.Competition, error) {
	if !actor.Role.CanModerate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot create competitions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid competition payload")
	}
	if err := s.validateDates(req, true); err != nil {
		return nil, err
	}
	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	organizerID := actor.ID
	status := models.CompetitionStatusPending
	if actor.IsAdmin() {
		status = models.CompetitionStatusApproved
		if req.OrganizerID != "" {
			organizerID = req.OrganizerID
		}
	}

	competition := &models.Competition{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		OrganizerID: organizerID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
		AutoApprove: req.AutoApprove,
	}
	if err := s.repo.Create(ctx, competition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create competition")
	}
	s.invalidateListing(ctx)
	return competition, nil
}

// Edit rewrites the content fields of a competition. The status is never
// touched here, and editing is refused once the competition has ended.
func (s *CompetitionService) Edit(ctx context.Context, actor models.Actor, id string, req CompetitionRequest) (*models.Competition, error) {
	competition, err := s.loadCompetition(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(actor, competition); err != nil {
		return nil, err
	}
	if competition.Ended(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "competition ended")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid competition payload")
	}
	if err := s.validateDates(req, false); err != nil {
		return nil, err
	}
	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	competition.Title = req.Title
	competition.Description = req.Description
	competition.CategoryID = req.CategoryID
	competition.StartDate = req.StartDate
	competition.EndDate = req.EndDate
	competition.AutoApprove = req.AutoApprove
	if err := s.repo.Update(ctx, competition); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update competition")
	}
	s.invalidateListing(ctx)
	return competition, nil
}

// Delete removes a competition and cascades over its participations and
// notifications in one transaction.
func (s *CompetitionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	competition, err := s.loadCompetition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(actor, competition); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete competition")
	}
	if actor.IsAdmin() {
		s.writeAudit(ctx, actor.ID, models.AdminActionCompetitionDelete, map[string]interface{}{
			"competition_id": id,
			"title":          competition.Title,
		})
	}
	s.invalidateListing(ctx)
	return nil
}

// Approve transitions a competition to approved. Re-approving an approved
// competition succeeds silently.
func (s *CompetitionService) Approve(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	competition, err := s.loadCompetition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, models.CompetitionStatusApproved, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve competition")
	}
	s.notify(ctx, &models.Notification{
		UserID:        competition.OrganizerID,
		Role:          models.RoleOrganizer,
		Message:       fmt.Sprintf("Your competition %q has been approved", competition.Title),
		Link:          "/competitions/" + id,
		CompetitionID: &competition.ID,
	})
	s.writeAudit(ctx, actor.ID, models.AdminActionCompetitionApprove, map[string]interface{}{
		"competition_id": id,
		"title":          competition.Title,
	})
	if s.metrics != nil {
		s.metrics.RecordCompetitionDecision("approved")
	}
	s.invalidateListing(ctx)
	return nil
}

// Reject transitions a competition to rejected with a mandatory reason. The
// notification deliberately omits the reason text; it is only shown on the
// competition detail view.
func (s *CompetitionService) Reject(ctx context.Context, actor models.Actor, id string, req RejectCompetitionRequest) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	competition, err := s.loadCompetition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, models.CompetitionStatusRejected, &req.Reason); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject competition")
	}
	s.notify(ctx, &models.Notification{
		UserID:        competition.OrganizerID,
		Role:          models.RoleOrganizer,
		Message:       fmt.Sprintf("Your competition %q has been rejected", competition.Title),
		Link:          "/competitions/" + id,
		CompetitionID: &competition.ID,
	})
	s.writeAudit(ctx, actor.ID, models.AdminActionCompetitionReject, map[string]interface{}{
		"competition_id": id,
		"title":          competition.Title,
		"reason":         req.Reason,
	})
	if s.metrics != nil {
		s.metrics.RecordCompetitionDecision("rejected")
	}
	s.invalidateListing(ctx)
	return nil
}

func (s *CompetitionService) loadCompetition(ctx context.Context, id string) (*models.Competition, error) {
	competition, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "competition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load competition")
	}
	return competition, nil
}

func (s *CompetitionService) authorizeOwner(actor models.Actor, competition *models.Competition) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleOrganizer && actor.ID == competition.OrganizerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not the owner of this competition")
}

func (s *CompetitionService) validateDates(req CompetitionRequest, enforceFuture bool) error {
	if req.EndDate.Before(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}
	if enforceFuture {
		today := s.now().Truncate(24 * time.Hour)
		if req.StartDate.Before(today) {
			return appErrors.Clone(appErrors.ErrValidation, "start date must not be in the past")
		}
	}
	return nil
}

// notify is a best-effort side effect: a failed write is logged and swallowed,
// never surfaced to the caller.
func (s *CompetitionService) notify(ctx context.Context, notification *models.Notification) {
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

// writeAudit is best-effort in the same way as notify.
func (s *CompetitionService) writeAudit(ctx context.Context, adminID, action string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	if err := s.audit.Create(ctx, &models.AdminLog{AdminID: adminID, Action: action, Details: payload}); err != nil {
		s.logger.Warn("failed to write admin log", zap.String("action", action), zap.Error(err))
	}
}

func (s *CompetitionService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, publicListingKeyPrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate competition listing cache", zap.Error(err))
	}
}

func (s *CompetitionService) paginationFor(filter models.CompetitionFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
