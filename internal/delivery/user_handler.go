package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/usecase"
)

// UserHandler exposes the back-office user administration endpoints.
type UserHandler struct {
	useCase usecase.UserUseCase
	log     *logrus.Logger
}

func NewUserHandler(uc usecase.UserUseCase, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *UserHandler) RegisterRoutes(admin gin.IRouter) {
	users := admin.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.PUT("/:id", h.UpdateUserRole)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := parsePagination(c, h.log)

	users, err := h.useCase.ListUsers(limit, offset)
	if err != nil {
		h.log.Errorf("Failed to list users: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	h.log.Infof("Retrieved %d users for back office", len(users))
	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid user ID parameter for role update: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for role update (user %d): %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.useCase.UpdateUserRole(id, req.Role)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update role for user %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update user role: "+err.Error())
		return
	}

	h.log.Infof("User %d role updated to '%s'", id, user.Role)
	SuccessResponse(c, http.StatusOK, "User role updated successfully", user)
}
