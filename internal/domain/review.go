package domain

import "time"

type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewRepository interface {
	// CreateReview inserts the review and recomputes the product's stored
	// average rating in the same transaction. A duplicate (user, product)
	// pair yields ErrAlreadyReviewed.
	CreateReview(review *Review) (*Review, error)
	GetReviewByID(id int64) (*Review, error)
	// DeleteReview removes the review and recomputes the product rating in
	// the same transaction (0 when no reviews remain).
	DeleteReview(id int64) error
	ListReviewsByProduct(productID int64) ([]Review, error)
}
