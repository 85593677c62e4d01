package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresReconciliationRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresReconciliationRepository(db *sqlx.DB, logger *logrus.Logger) domain.ReconciliationRepository {
	return &postgresReconciliationRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresReconciliationRepository) SaveFailure(failure *domain.ReconciliationFailure) error {
	query := `
        INSERT INTO reconciliation_failures (event_id, payload, last_error)
        VALUES ($1, $2, $3)
        RETURNING id, attempts, resolved, created_at, updated_at`

	err := r.db.QueryRow(query, failure.EventID, failure.Payload, failure.LastError).Scan(
		&failure.ID,
		&failure.Attempts,
		&failure.Resolved,
		&failure.CreatedAt,
		&failure.UpdatedAt,
	)
	if err != nil {
		r.log.Errorf("Failed to save reconciliation failure for event %s: %v", failure.EventID, err)
		return fmt.Errorf("could not save reconciliation failure: %w", err)
	}

	r.log.Warnf("Reconciliation failure recorded for event %s: %s", failure.EventID, failure.LastError)
	return nil
}

func (r *postgresReconciliationRepository) ListUnresolved(limit int) ([]domain.ReconciliationFailure, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
        SELECT id, event_id, payload, last_error, attempts, resolved, created_at, updated_at
        FROM reconciliation_failures
        WHERE resolved = FALSE
        ORDER BY created_at ASC
        LIMIT $1`

	failures := []domain.ReconciliationFailure{}
	if err := r.db.Select(&failures, query, limit); err != nil {
		r.log.Errorf("Failed to list unresolved reconciliation failures: %v", err)
		return nil, fmt.Errorf("could not list reconciliation failures: %w", err)
	}
	return failures, nil
}

func (r *postgresReconciliationRepository) MarkResolved(id int64) error {
	result, err := r.db.Exec(`UPDATE reconciliation_failures SET resolved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Failed to mark reconciliation failure %d resolved: %v", id, err)
		return fmt.Errorf("could not mark reconciliation failure resolved: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("reconciliation failure with id %d not found", id)
	}
	r.log.Infof("Reconciliation failure %d resolved", id)
	return nil
}

func (r *postgresReconciliationRepository) MarkRetried(id int64, lastError string) error {
	result, err := r.db.Exec(
		`UPDATE reconciliation_failures SET attempts = attempts + 1, last_error = $1, updated_at = NOW() WHERE id = $2`,
		lastError, id)
	if err != nil {
		r.log.Errorf("Failed to record retry for reconciliation failure %d: %v", id, err)
		return fmt.Errorf("could not record reconciliation retry: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("reconciliation failure with id %d not found", id)
	}
	return nil
}
