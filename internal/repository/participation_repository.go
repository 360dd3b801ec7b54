package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

// ErrDuplicateParticipation is returned when the (competition, student) pair
// already exists. The uniqueness constraint lives at the store level, so a
// racing double-submit surfaces here instead of creating a second row.
var ErrDuplicateParticipation = errors.New("participation already exists")

// ParticipationRepository handles persistence of join requests.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Find returns the participation for a (competition, student) pair.
func (r *ParticipationRepository) Find(ctx context.Context, competitionID, studentID string) (*models.Participation, error) {
	const query = `SELECT competition_id, student_id, status, notes, created_at, updated_at
        FROM participations WHERE competition_id = $1 AND student_id = $2`
	var participation models.Participation
	if err := r.db.GetContext(ctx, &participation, query, competitionID, studentID); err != nil {
		return nil, err
	}
	return &participation, nil
}

// Exists reports whether the pair already has a row.
func (r *ParticipationRepository) Exists(ctx context.Context, competitionID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM participations WHERE competition_id = $1 AND student_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, competitionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check participation: %w", err)
	}
	return true, nil
}

// ListByCompetition returns participations of one competition, optionally
// narrowed to a status.
func (r *ParticipationRepository) ListByCompetition(ctx context.Context, competitionID string, status models.ParticipationStatus) ([]models.ParticipationDetail, error) {
	query := `SELECT p.competition_id, p.student_id, p.status, p.notes, p.created_at, p.updated_at,
        COALESCE(s.full_name, '') AS student_name, COALESCE(s.email, '') AS student_email,
        COALESCE(comp.title, '') AS competition_title
        FROM participations p
        LEFT JOIN students s ON s.id = p.student_id
        LEFT JOIN competitions comp ON comp.id = p.competition_id
        WHERE p.competition_id = $1`
	args := []interface{}{competitionID}
	if status != "" {
		query += " AND p.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY p.created_at"
	var participations []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &participations, query, args...); err != nil {
		return nil, fmt.Errorf("list competition participations: %w", err)
	}
	return participations, nil
}

// ListByStudent returns every participation of one student.
func (r *ParticipationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ParticipationDetail, error) {
	const query = `SELECT p.competition_id, p.student_id, p.status, p.notes, p.created_at, p.updated_at,
        COALESCE(s.full_name, '') AS student_name, COALESCE(s.email, '') AS student_email,
        COALESCE(comp.title, '') AS competition_title
        FROM participations p
        LEFT JOIN students s ON s.id = p.student_id
        LEFT JOIN competitions comp ON comp.id = p.competition_id
        WHERE p.student_id = $1 ORDER BY p.created_at DESC`
	var participations []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &participations, query, studentID); err != nil {
		return nil, fmt.Errorf("list student participations: %w", err)
	}
	return participations, nil
}

// CountPending returns the number of pending rows for a competition.
func (r *ParticipationRepository) CountPending(ctx context.Context, competitionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM participations WHERE competition_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, competitionID, models.ParticipationStatusPending); err != nil {
		return 0, fmt.Errorf("count pending participations: %w", err)
	}
	return count, nil
}

// Create persists a new participation row. The unique (competition, student)
// constraint converts a concurrent double insert into ErrDuplicateParticipation.
func (r *ParticipationRepository) Create(ctx context.Context, participation *models.Participation) error {
	now := time.Now().UTC()
	if participation.CreatedAt.IsZero() {
		participation.CreatedAt = now
	}
	participation.UpdatedAt = now
	const query = `INSERT INTO participations (competition_id, student_id, status, notes, created_at, updated_at)
        VALUES (:competition_id, :student_id, :status, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, participation); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateParticipation
		}
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// UpdateStatus transitions a single participation. A non-nil notes pointer
// overwrites the stored notes (rejection reasons land there).
func (r *ParticipationRepository) UpdateStatus(ctx context.Context, competitionID, studentID string, status models.ParticipationStatus, notes *string) error {
	if notes != nil {
		const query = `UPDATE participations SET status = $3, notes = $4, updated_at = $5
            WHERE competition_id = $1 AND student_id = $2`
		if _, err := r.db.ExecContext(ctx, query, competitionID, studentID, status, *notes, time.Now().UTC()); err != nil {
			return fmt.Errorf("update participation status: %w", err)
		}
		return nil
	}
	const query = `UPDATE participations SET status = $3, updated_at = $4
        WHERE competition_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, competitionID, studentID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update participation status: %w", err)
	}
	return nil
}

// ApproveAllPending flips every row still pending at write time and returns
// the student ids actually transitioned. The status condition makes the
// update safe under a racing reject or cancel on an individual row.
func (r *ParticipationRepository) ApproveAllPending(ctx context.Context, competitionID string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve all: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE participations SET status = $2, updated_at = $3
        WHERE competition_id = $1 AND status = $4 RETURNING student_id`
	var studentIDs []string
	rows, err := tx.QueryxContext(ctx, query, competitionID, models.ParticipationStatusApproved, time.Now().UTC(), models.ParticipationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("approve pending participations: %w", err)
	}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan approved student id: %w", err)
		}
		studentIDs = append(studentIDs, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read approved student ids: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve all: %w", err)
	}
	return studentIDs, nil
}

// Delete hard-deletes a participation row, reporting whether one existed.
func (r *ParticipationRepository) Delete(ctx context.Context, competitionID, studentID string) (bool, error) {
	const query = `DELETE FROM participations WHERE competition_id = $1 AND student_id = $2`
	result, err := r.db.ExecContext(ctx, query, competitionID, studentID)
	if err != nil {
		return false, fmt.Errorf("delete participation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete participation rows affected: %w", err)
	}
	return affected > 0, nil
}
