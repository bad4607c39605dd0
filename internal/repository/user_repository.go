package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/staffdesk/internal/domain"
)

// uniqueViolation is the Postgres error code for unique constraint breaches
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

// Create inserts the user and its profile in one transaction
func (r *PostgresUserRepository) Create(user *domain.User, profile *domain.Profile) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Name, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyRegistered
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	profile.UserID = user.ID
	if profile.Status == "" {
		profile.Status = domain.ProfileStatusActive
	}
	err = tx.QueryRow(`
		INSERT INTO profiles (user_id, role, status, phone, job_title)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, profile.UserID, string(profile.Role), string(profile.Status), profile.Phone, profile.JobTitle).
		Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves a user by ID, including soft-deleted rows
func (r *PostgresUserRepository) GetByID(id string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRow(`
		SELECT id, email, name, password_hash, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves an active user by email
func (r *PostgresUserRepository) GetByEmail(email string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRow(`
		SELECT id, email, name, password_hash, created_at, updated_at, deleted_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetProfile retrieves the profile owned by userID
func (r *PostgresUserRepository) GetProfile(userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	var role, status string
	err := r.db.QueryRow(`
		SELECT user_id, role, status, phone, job_title, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &role, &status, &p.Phone, &p.JobTitle, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Role = domain.GlobalRole(role)
	p.Status = domain.ProfileStatus(status)
	return p, nil
}

// Update updates an existing user
func (r *PostgresUserRepository) Update(user *domain.User) error {
	err := r.db.QueryRow(`
		UPDATE users
		SET email = $1, name = $2, password_hash = $3
		WHERE id = $4 AND deleted_at IS NULL
		RETURNING updated_at
	`, user.Email, user.Name, user.PasswordHash, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateProfile updates an existing profile
func (r *PostgresUserRepository) UpdateProfile(profile *domain.Profile) error {
	err := r.db.QueryRow(`
		UPDATE profiles
		SET role = $1, status = $2, phone = $3, job_title = $4
		WHERE user_id = $5
		RETURNING updated_at
	`, string(profile.Role), string(profile.Status), profile.Phone, profile.JobTitle, profile.UserID).
		Scan(&profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// SetGlobalRole updates only the profile role
func (r *PostgresUserRepository) SetGlobalRole(userID string, role domain.GlobalRole) error {
	res, err := r.db.Exec(`UPDATE profiles SET role = $1 WHERE user_id = $2`, string(role), userID)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SoftDelete marks a user deleted without removing the row
func (r *PostgresUserRepository) SoftDelete(id string) error {
	res, err := r.db.Exec(`
		UPDATE users SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns all active users
func (r *PostgresUserRepository) List() ([]*domain.User, error) {
	rows, err := r.db.Query(`
		SELECT id, email, name, password_hash, created_at, updated_at, deleted_at
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash,
			&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListPermissions returns the named permissions granted to userID
func (r *PostgresUserRepository) ListPermissions(userID string) ([]domain.Permission, error) {
	rows, err := r.db.Query(`
		SELECT permission FROM user_permissions WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, domain.Permission(p))
	}
	return perms, rows.Err()
}

// GrantPermission grants a named permission, idempotently
func (r *PostgresUserRepository) GrantPermission(userID string, perm domain.Permission) error {
	_, err := r.db.Exec(`
		INSERT INTO user_permissions (user_id, permission)
		VALUES ($1, $2)
		ON CONFLICT (user_id, permission) DO NOTHING
	`, userID, string(perm))
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}
