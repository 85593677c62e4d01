package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresReviewRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresReviewRepository(db *sqlx.DB, logger *logrus.Logger) domain.ReviewRepository {
	return &postgresReviewRepository{
		db:  db,
		log: logger,
	}
}

// recomputeRating refreshes the product's stored average from all of its
// reviews. Runs inside the same transaction as the review write so a
// concurrent reader never sees a review without its rating effect.
func recomputeRating(tx *sql.Tx, productID int64) error {
	query := `
        UPDATE products
        SET rating = COALESCE((SELECT AVG(rating)::double precision FROM reviews WHERE product_id = $1), 0),
            updated_at = NOW()
        WHERE id = $1`
	if _, err := tx.Exec(query, productID); err != nil {
		return fmt.Errorf("could not recompute product rating: %w", err)
	}
	return nil
}

func (r *postgresReviewRepository) CreateReview(review *domain.Review) (rev *domain.Review, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Failed to begin transaction for review create: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("CreateReview: Failed to rollback transaction: %v (original error: %v)", rbErr, err)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit review transaction: %w", cErr)
				r.log.Errorf("CreateReview: %v", err)
				rev = nil
			}
		}
	}()

	query := `
        INSERT INTO reviews (user_id, product_id, rating, comment)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err = tx.QueryRow(query, review.UserID, review.ProductID, review.Rating, review.Comment).Scan(
		&review.ID,
		&review.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				r.log.Warnf("Duplicate review by user %d for product %d", review.UserID, review.ProductID)
				err = domain.ErrAlreadyReviewed
				return nil, err
			case "23503":
				r.log.Warnf("Review references missing product %d or user %d", review.ProductID, review.UserID)
				err = fmt.Errorf("product with id %d not found", review.ProductID)
				return nil, err
			}
		}
		r.log.Errorf("Failed to create review for product %d by user %d: %v", review.ProductID, review.UserID, err)
		err = fmt.Errorf("could not create review: %w", err)
		return nil, err
	}

	if err = recomputeRating(tx, review.ProductID); err != nil {
		r.log.Errorf("Failed to recompute rating for product %d: %v", review.ProductID, err)
		return nil, err
	}

	r.log.Infof("Review %d created for product %d by user %d (rating %d)", review.ID, review.ProductID, review.UserID, review.Rating)
	return review, nil
}

func (r *postgresReviewRepository) GetReviewByID(id int64) (*domain.Review, error) {
	query := `
        SELECT id, user_id, product_id, rating, comment, created_at
        FROM reviews
        WHERE id = $1`

	review := &domain.Review{}
	err := r.db.QueryRow(query, id).Scan(
		&review.ID,
		&review.UserID,
		&review.ProductID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Review with ID %d not found", id)
			return nil, fmt.Errorf("review with id %d not found", id)
		}
		r.log.Errorf("Failed to get review by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get review: %w", err)
	}
	return review, nil
}

func (r *postgresReviewRepository) DeleteReview(id int64) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Failed to begin transaction for review delete: %v", err)
		return fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("DeleteReview: Failed to rollback transaction: %v (original error: %v)", rbErr, err)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit review delete transaction: %w", cErr)
				r.log.Errorf("DeleteReview: %v", err)
			}
		}
	}()

	var productID int64
	err = tx.QueryRow(`DELETE FROM reviews WHERE id = $1 RETURNING product_id`, id).Scan(&productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Review with ID %d not found for deletion", id)
			err = fmt.Errorf("review with id %d not found for deletion", id)
			return err
		}
		r.log.Errorf("Failed to delete review ID %d: %v", id, err)
		err = fmt.Errorf("could not delete review: %w", err)
		return err
	}

	if err = recomputeRating(tx, productID); err != nil {
		r.log.Errorf("Failed to recompute rating for product %d after delete: %v", productID, err)
		return err
	}

	r.log.Infof("Review %d deleted, product %d rating recomputed", id, productID)
	return nil
}

func (r *postgresReviewRepository) ListReviewsByProduct(productID int64) ([]domain.Review, error) {
	query := `
        SELECT rv.id, rv.user_id, u.name, rv.product_id, rv.rating, rv.comment, rv.created_at
        FROM reviews rv
        JOIN users u ON u.id = rv.user_id
        WHERE rv.product_id = $1
        ORDER BY rv.created_at DESC`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		r.log.Errorf("Failed to list reviews for product %d: %v", productID, err)
		return nil, fmt.Errorf("could not list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.UserName,
			&review.ProductID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			r.log.Errorf("Failed to scan review row for product %d: %v", productID, err)
			return nil, fmt.Errorf("error scanning review data: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during reviews iteration for product %d: %v", productID, err)
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	r.log.Infof("Retrieved %d reviews for product %d", len(reviews), productID)
	return reviews, nil
}
