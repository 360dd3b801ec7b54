package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/FezAmir/projectfinal-api/internal/models"
)

// roleTables maps a role to its backing collection. Role dispatch happens
// here once instead of string branching at every call site.
var roleTables = map[models.UserRole]string{
	models.RoleAdmin:     "admins",
	models.RoleOrganizer: "organizers",
	models.RoleStudent:   "students",
}

// UserRepository handles persistence across the three user collections and
// the refresh token sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func tableFor(role models.UserRole) (string, error) {
	table, ok := roleTables[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return table, nil
}

// FindByEmail returns the user with the given email from the role's collection.
func (r *UserRepository) FindByEmail(ctx context.Context, role models.UserRole, email string) (*models.User, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, email, password_hash, full_name, picture, created_at, updated_at FROM %s WHERE email = $1`, table)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// FindByID returns the user with the given id from the role's collection.
func (r *UserRepository) FindByID(ctx context.Context, role models.UserRole, id string) (*models.User, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, email, password_hash, full_name, picture, created_at, updated_at FROM %s WHERE id = $1`, table)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}

// UpdateProfile updates display name and picture reference.
func (r *UserRepository) UpdateProfile(ctx context.Context, role models.UserRole, id, fullName, picture string, updatedAt time.Time) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET full_name = $2, picture = $3, updated_at = $4 WHERE id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, id, fullName, picture, updatedAt); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, role models.UserRole, id, passwordHash string, updatedAt time.Time) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $2, updated_at = $3 WHERE id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, role, token, expires_at, created_at, revoked, ip_address, user_agent)
        VALUES (:id, :user_id, :role, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns the stored session for the given token value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, role, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
        FROM refresh_tokens WHERE token = $1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks a single session as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every active session of one user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, role models.UserRole, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $3 WHERE user_id = $1 AND role = $2 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
