package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresUserRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresUserRepository(db *sqlx.DB, logger *logrus.Logger) domain.UserRepository {
	return &postgresUserRepository{
		db:  db,
		log: logger,
	}
}

const userColumns = `id, name, email, password_hash, role, addresses, settings, created_at, updated_at`

// scanUser decodes a user row, unmarshalling the jsonb address book and
// settings columns.
func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*domain.User, error) {
	user := &domain.User{}
	var addresses, settings []byte
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&addresses,
		&settings,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addresses, &user.Addresses); err != nil {
		return nil, fmt.Errorf("could not decode user addresses: %w", err)
	}
	if err := json.Unmarshal(settings, &user.Settings); err != nil {
		return nil, fmt.Errorf("could not decode user settings: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) CreateUser(user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (name, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, role, created_at, updated_at`

	r.log.Debugf("Repository: Attempting to create user with email: %s", user.Email)

	err := r.db.QueryRow(query, user.Name, user.Email, user.PasswordHash).Scan(
		&user.ID,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Repository: Attempted to create user with duplicate email: %s", user.Email)
			return nil, fmt.Errorf("user with email '%s' already exists", user.Email)
		}
		r.log.Errorf("Repository: Failed to create user '%s': %v", user.Email, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	user.Addresses = []domain.Address{}
	r.log.Infof("Repository: User created successfully with ID: %d, Email: %s", user.ID, user.Email)
	return user, nil
}

func (r *postgresUserRepository) GetUserByEmail(email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with email %s not found", email)
			return nil, fmt.Errorf("user with email '%s' not found", email)
		}
		r.log.Errorf("Repository: Failed to get user by email %s: %v", email, err)
		return nil, fmt.Errorf("could not get user by email: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) GetUserByID(id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found", id)
			return nil, fmt.Errorf("user with id %d not found", id)
		}
		r.log.Errorf("Repository: Failed to get user by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) UpdateProfile(id int64, name, email, passwordHash string) (*domain.User, error) {
	query := `
        UPDATE users
        SET name = $1, email = $2, password_hash = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(query, name, email, passwordHash, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found for profile update", id)
			return nil, fmt.Errorf("user with id %d not found for update", id)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Repository: Profile update for user %d rejected, email %s already taken", id, email)
			return nil, fmt.Errorf("user with email '%s' already exists", email)
		}
		r.log.Errorf("Repository: Failed to update profile for user ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update user profile: %w", err)
	}

	r.log.Infof("Repository: Profile updated for user ID %d", id)
	return user, nil
}

func (r *postgresUserRepository) UpdateAddresses(id int64, addresses []domain.Address) error {
	payload, err := json.Marshal(addresses)
	if err != nil {
		return fmt.Errorf("could not encode addresses: %w", err)
	}

	result, err := r.db.Exec(`UPDATE users SET addresses = $1, updated_at = NOW() WHERE id = $2`, payload, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to update addresses for user ID %d: %v", id, err)
		return fmt.Errorf("could not update addresses: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found for update", id)
	}
	return nil
}

func (r *postgresUserRepository) UpdateSettings(id int64, settings domain.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}

	result, err := r.db.Exec(`UPDATE users SET settings = $1, updated_at = NOW() WHERE id = $2`, payload, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to update settings for user ID %d: %v", id, err)
		return fmt.Errorf("could not update settings: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found for update", id)
	}
	return nil
}

func (r *postgresUserRepository) ListUsers(limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.log.Errorf("Repository: Failed to list users: %v", err)
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan user row: %v", err)
			return nil, fmt.Errorf("error scanning user data: %w", err)
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during users iteration: %v", err)
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	r.log.Infof("Repository: Retrieved %d users (limit: %d, offset: %d)", len(users), limit, offset)
	return users, nil
}

func (r *postgresUserRepository) UpdateUserRole(id int64, role string) (*domain.User, error) {
	query := `
        UPDATE users
        SET role = $1, updated_at = NOW()
        WHERE id = $2
        RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(query, role, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User with ID %d not found for role update", id)
			return nil, fmt.Errorf("user with id %d not found for update", id)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Repository: Invalid role value '%s' for user ID %d", role, id)
			return nil, fmt.Errorf("invalid role provided: %s", role)
		}
		r.log.Errorf("Repository: Failed to update role for user ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update user role: %w", err)
	}

	r.log.Infof("Repository: Role for user ID %d set to '%s'", id, role)
	return user, nil
}
