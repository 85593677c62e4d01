package usecase

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type ReviewUseCase interface {
	CreateReview(userID, productID int64, rating int, comment string) (*domain.Review, error)
	// DeleteReview removes a review; permitted for the review's author and
	// for administrators.
	DeleteReview(reviewID, requesterID int64, requesterRole string) error
	ListReviewsForProduct(productID int64) ([]domain.Review, error)
}

type reviewUseCase struct {
	reviewRepo  domain.ReviewRepository
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewReviewUseCase(reviewRepo domain.ReviewRepository, productRepo domain.ProductRepository, logger *logrus.Logger) ReviewUseCase {
	return &reviewUseCase{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		log:         logger,
	}
}

func (uc *reviewUseCase) CreateReview(userID, productID int64, rating int, comment string) (*domain.Review, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user ID")
	}
	if productID <= 0 {
		return nil, errors.New("invalid product ID")
	}
	if rating < 1 || rating > 5 {
		uc.log.Warnf("Use Case: Invalid rating %d for product %d by user %d", rating, productID, userID)
		return nil, errors.New("rating must be between 1 and 5")
	}

	if _, err := uc.productRepo.GetProductByID(productID); err != nil {
		uc.log.Warnf("Use Case: Product %d not found for review: %v", productID, err)
		return nil, err
	}

	review := &domain.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
	}

	// The repository enforces the (user, product) uniqueness with a storage
	// constraint and recomputes the product rating in the same transaction.
	created, err := uc.reviewRepo.CreateReview(review)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyReviewed) {
			uc.log.Warnf("Use Case: User %d already reviewed product %d", userID, productID)
			return nil, err
		}
		uc.log.Errorf("Use Case: Repository failed to create review for product %d: %v", productID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Review %d created for product %d by user %d", created.ID, productID, userID)
	return created, nil
}

func (uc *reviewUseCase) DeleteReview(reviewID, requesterID int64, requesterRole string) error {
	if reviewID <= 0 {
		return errors.New("invalid review ID")
	}

	review, err := uc.reviewRepo.GetReviewByID(reviewID)
	if err != nil {
		uc.log.Warnf("Use Case: Review %d not found for deletion: %v", reviewID, err)
		return err
	}

	if review.UserID != requesterID && requesterRole != domain.RoleAdmin {
		uc.log.Warnf("Use Case: User %d not authorized to delete review %d owned by user %d", requesterID, reviewID, review.UserID)
		return errors.New("not authorized to delete this review")
	}

	if err := uc.reviewRepo.DeleteReview(reviewID); err != nil {
		uc.log.Errorf("Use Case: Repository failed to delete review %d: %v", reviewID, err)
		return err
	}

	uc.log.Infof("Use Case: Review %d deleted by user %d", reviewID, requesterID)
	return nil
}

func (uc *reviewUseCase) ListReviewsForProduct(productID int64) ([]domain.Review, error) {
	if productID <= 0 {
		return nil, errors.New("invalid product ID")
	}
	reviews, err := uc.reviewRepo.ListReviewsByProduct(productID)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list reviews for product %d: %v", productID, err)
		return nil, err
	}
	return reviews, nil
}
