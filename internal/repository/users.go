package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

// Users persists user records.
type Users struct {
	db *sql.DB
}

// NewUsers returns a user repository backed by db.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

const userCols = `id, name, email, credential_hash, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CredentialHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user, assigning its id and timestamps.
func (r *Users) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.CredentialHash, u.CreatedAt, u.UpdatedAt)
	return err
}

// FindByID returns the user or apperr.ErrNotFound.
func (r *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

// FindByEmail returns the user or apperr.ErrNotFound.
func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

// List returns the public projection of all users, ordered by name.
func (r *Users) List(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update applies the non-nil profile fields to the user row.
func (r *Users) Update(ctx context.Context, id string, name, email, credentialHash *string) (*models.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET
			name = COALESCE($1, name),
			email = COALESCE($2, email),
			credential_hash = COALESCE($3, credential_hash),
			updated_at = $4
		 WHERE id = $5`,
		name, email, credentialHash, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("user not found")
	}
	return r.FindByID(ctx, id)
}
