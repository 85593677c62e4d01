package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresSessionRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresSessionRepository(db *sqlx.DB, logger *logrus.Logger) domain.SessionRepository {
	return &postgresSessionRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresSessionRepository) CreateSession(session *domain.Session) error {
	query := `
        INSERT INTO sessions (token, user_id, expires_at)
        VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(query, session.Token, session.UserID, session.ExpiresAt); err != nil {
		r.log.Errorf("Repository: Failed to create session for user %d: %v", session.UserID, err)
		return fmt.Errorf("could not create session: %w", err)
	}

	r.log.Debugf("Repository: Session created for user %d (expires %s)", session.UserID, session.ExpiresAt)
	return nil
}

// GetSession resolves a token to its user and role, rejecting expired rows.
func (r *postgresSessionRepository) GetSession(token string) (*domain.Session, error) {
	query := `
        SELECT s.token, s.user_id, u.role, s.expires_at
        FROM sessions s
        JOIN users u ON u.id = s.user_id
        WHERE s.token = $1 AND s.expires_at > NOW()`

	session := &domain.Session{}
	err := r.db.QueryRow(query, token).Scan(
		&session.Token,
		&session.UserID,
		&session.Role,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found or expired")
		}
		r.log.Errorf("Repository: Failed to get session: %v", err)
		return nil, fmt.Errorf("could not get session: %w", err)
	}
	return session, nil
}

func (r *postgresSessionRepository) DeleteSession(token string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE token = $1`, token); err != nil {
		r.log.Errorf("Repository: Failed to delete session: %v", err)
		return fmt.Errorf("could not delete session: %w", err)
	}
	return nil
}
