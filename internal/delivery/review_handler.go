package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/middleware"
	"github.com/vaddi6894/commerce/internal/usecase"
)

type ReviewHandler struct {
	useCase usecase.ReviewUseCase
	log     *logrus.Logger
}

func NewReviewHandler(uc usecase.ReviewUseCase, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *ReviewHandler) RegisterRoutes(public gin.IRouter, protected gin.IRouter) {
	public.GET("/products/:id/reviews", h.ListReviews)
	protected.POST("/products/:id/reviews", h.CreateReview)
	protected.DELETE("/reviews/:id", h.DeleteReview)
}

func (h *ReviewHandler) ListReviews(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		h.log.Warnf("Invalid product ID parameter for reviews: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	reviews, err := h.useCase.ListReviewsForProduct(productID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to list reviews for product %d: %v", productID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve reviews: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Reviews retrieved successfully", reviews)
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		h.log.Warnf("Invalid product ID parameter for create review: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for create review (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	review, err := h.useCase.CreateReview(userID, productID, req.Rating, req.Comment)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to create review for product %d by user %d: %v", productID, userID, err)
		ErrorResponse(c, statusCode, "Failed to create review: "+err.Error())
		return
	}

	h.log.Infof("Review %d created for product %d by user %d", review.ID, productID, userID)
	SuccessResponse(c, http.StatusCreated, "Review created successfully", review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	role := c.GetString(middleware.ContextRoleKey)

	reviewID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || reviewID <= 0 {
		h.log.Warnf("Invalid review ID parameter for delete: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid review ID format")
		return
	}

	if err := h.useCase.DeleteReview(reviewID, userID, role); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to delete review %d (user %d): %v", reviewID, userID, err)
		ErrorResponse(c, statusCode, "Failed to delete review: "+err.Error())
		return
	}

	h.log.Infof("Review %d deleted by user %d", reviewID, userID)
	SuccessResponse(c, http.StatusOK, "Review deleted successfully", nil)
}
