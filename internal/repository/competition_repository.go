package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

// CompetitionRepository handles persistence of competitions.
type CompetitionRepository struct {
	db *sqlx.DB
}

// NewCompetitionRepository constructs the repository.
func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

// List returns competitions filtered by the provided criteria.
func (r *CompetitionRepository) List(ctx context.Context, filter models.CompetitionFilter) ([]models.CompetitionDetail, int, error) {
	base := `FROM competitions comp
LEFT JOIN categories cat ON cat.id = comp.category_id
LEFT JOIN organizers org ON org.id = comp.organizer_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("comp.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("comp.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.OrganizerID != "" {
		conditions = append(conditions, fmt.Sprintf("comp.organizer_id = $%d", len(args)+1))
		args = append(args, filter.OrganizerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(comp.title ILIKE $%d OR comp.description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_date": "comp.start_date",
		"created_at": "comp.created_at",
		"title":      "comp.title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "comp.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT comp.id, comp.title, comp.description, comp.category_id, comp.organizer_id,
        comp.start_date, comp.end_date, comp.status, comp.rejection_reason, comp.auto_approve, comp.created_at, comp.updated_at,
        COALESCE(cat.name, '') AS category_name, COALESCE(org.full_name, '') AS organizer_name,
        (SELECT COUNT(*) FROM participations p WHERE p.competition_id = comp.id) AS participant_count
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var competitions []models.CompetitionDetail
	if err := r.db.SelectContext(ctx, &competitions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list competitions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count competitions: %w", err)
	}
	return competitions, total, nil
}

// FindByID returns a competition by its ID.
func (r *CompetitionRepository) FindByID(ctx context.Context, id string) (*models.Competition, error) {
	const query = `SELECT id, title, description, category_id, organizer_id, start_date, end_date, status,
        rejection_reason, auto_approve, created_at, updated_at FROM competitions WHERE id = $1`
	var competition models.Competition
	if err := r.db.GetContext(ctx, &competition, query, id); err != nil {
		return nil, err
	}
	return &competition, nil
}

// FindDetailByID returns a competition with catalog and owner info.
func (r *CompetitionRepository) FindDetailByID(ctx context.Context, id string) (*models.CompetitionDetail, error) {
	const query = `SELECT comp.id, comp.title, comp.description, comp.category_id, comp.organizer_id,
        comp.start_date, comp.end_date, comp.status, comp.rejection_reason, comp.auto_approve, comp.created_at, comp.updated_at,
        COALESCE(cat.name, '') AS category_name, COALESCE(org.full_name, '') AS organizer_name,
        (SELECT COUNT(*) FROM participations p WHERE p.competition_id = comp.id) AS participant_count
        FROM competitions comp
        LEFT JOIN categories cat ON cat.id = comp.category_id
        LEFT JOIN organizers org ON org.id = comp.organizer_id
        WHERE comp.id = $1`
	var detail models.CompetitionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new competition record.
func (r *CompetitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	now := time.Now().UTC()
	if competition.ID == "" {
		competition.ID = uuid.NewString()
	}
	if competition.CreatedAt.IsZero() {
		competition.CreatedAt = now
	}
	competition.UpdatedAt = now
	const query = `INSERT INTO competitions (id, title, description, category_id, organizer_id, start_date, end_date,
        status, rejection_reason, auto_approve, created_at, updated_at)
        VALUES (:id, :title, :description, :category_id, :organizer_id, :start_date, :end_date,
        :status, :rejection_reason, :auto_approve, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, competition); err != nil {
		return fmt.Errorf("create competition: %w", err)
	}
	return nil
}

// Update rewrites the content fields of a competition. Status is untouched.
func (r *CompetitionRepository) Update(ctx context.Context, competition *models.Competition) error {
	competition.UpdatedAt = time.Now().UTC()
	const query = `UPDATE competitions SET title = :title, description = :description, category_id = :category_id,
        start_date = :start_date, end_date = :end_date, auto_approve = :auto_approve, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, competition); err != nil {
		return fmt.Errorf("update competition: %w", err)
	}
	return nil
}

// UpdateStatus transitions a competition. Reason is cleared on approval and
// stored on rejection.
func (r *CompetitionRepository) UpdateStatus(ctx context.Context, id string, status models.CompetitionStatus, reason *string) error {
	const query = `UPDATE competitions SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("update competition status: %w", err)
	}
	return nil
}

// Delete removes a competition together with its participations and related
// notifications. The cascade runs in one transaction so a failure leaves no
// partial state behind.
func (r *CompetitionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete competition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM participations WHERE competition_id = $1`, id); err != nil {
		return fmt.Errorf("delete participations: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM notifications WHERE competition_id = $1`, id); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM competitions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete competition: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete competition: %w", err)
	}
	return nil
}
