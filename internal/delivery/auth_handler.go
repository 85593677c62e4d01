package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
	"github.com/vaddi6894/commerce/internal/middleware"
	"github.com/vaddi6894/commerce/internal/usecase"
)

type AuthHandler struct {
	useCase usecase.UserUseCase
	log     *logrus.Logger
}

func NewAuthHandler(uc usecase.UserUseCase, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		useCase: uc,
		log:     logger,
	}
}

// RegisterRoutes mounts the public endpoints on public and the
// session-guarded ones on protected.
func (h *AuthHandler) RegisterRoutes(public gin.IRouter, protected gin.IRouter) {
	auth := public.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	account := protected.Group("/auth")
	{
		account.GET("/me", h.Me)
		account.POST("/logout", h.Logout)
		account.PUT("/profile", h.UpdateProfile)
	}

	users := protected.Group("/users")
	{
		users.GET("/addresses", h.ListAddresses)
		users.POST("/addresses", h.AddAddress)
		users.PUT("/addresses/:index", h.UpdateAddress)
		users.DELETE("/addresses/:index", h.DeleteAddress)
		users.GET("/settings", h.GetSettings)
		users.PUT("/settings", h.UpdateSettings)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for register: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.useCase.RegisterUser(req.Name, req.Email, req.Password)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to register user '%s': %v", req.Email, err)
		ErrorResponse(c, statusCode, "Failed to register: "+err.Error())
		return
	}

	h.log.Infof("User %d registered successfully", result.User.ID)
	SuccessResponse(c, http.StatusCreated, "User registered successfully", gin.H{
		"user":  result.User,
		"token": result.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for login: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.useCase.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed login attempt for '%s': %v", req.Email, err)
		ErrorResponse(c, statusCode, "Failed to log in: "+err.Error())
		return
	}

	h.log.Infof("User %d logged in successfully", result.User.ID)
	SuccessResponse(c, http.StatusOK, "Logged in successfully", gin.H{
		"user":  result.User,
		"token": result.Token,
	})
}

// Logout revokes the presented session token server-side; the token is
// dead immediately, not just forgotten by the client.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	token := c.GetString(middleware.ContextTokenKey)

	if err := h.useCase.Logout(token); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to log out user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to log out: "+err.Error())
		return
	}

	h.log.Infof("User %d logged out", userID)
	SuccessResponse(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	user, err := h.useCase.GetProfile(userID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to load profile for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve profile: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", user)
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for profile update (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.useCase.UpdateProfile(userID, req.Name, req.Email, req.Password)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update profile for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to update profile: "+err.Error())
		return
	}

	h.log.Infof("Profile updated for user %d", userID)
	SuccessResponse(c, http.StatusOK, "Profile updated successfully", gin.H{
		"user":  result.User,
		"token": result.Token,
	})
}

func (h *AuthHandler) ListAddresses(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	addresses, err := h.useCase.ListAddresses(userID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to list addresses for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve addresses: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Addresses retrieved successfully", addresses)
}

func (h *AuthHandler) AddAddress(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	var address domain.Address
	if err := c.ShouldBindJSON(&address); err != nil {
		h.log.Warnf("Failed to bind JSON for add address (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	addresses, err := h.useCase.AddAddress(userID, address)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to add address for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to add address: "+err.Error())
		return
	}

	h.log.Infof("Address added for user %d (%d total)", userID, len(addresses))
	SuccessResponse(c, http.StatusCreated, "Address added successfully", addresses)
}

func (h *AuthHandler) UpdateAddress(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		h.log.Warnf("Invalid address index parameter: %s", c.Param("index"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid address index")
		return
	}

	var address domain.Address
	if err := c.ShouldBindJSON(&address); err != nil {
		h.log.Warnf("Failed to bind JSON for update address (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	addresses, err := h.useCase.UpdateAddress(userID, index, address)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update address %d for user %d: %v", index, userID, err)
		ErrorResponse(c, statusCode, "Failed to update address: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Address updated successfully", addresses)
}

func (h *AuthHandler) DeleteAddress(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		h.log.Warnf("Invalid address index parameter: %s", c.Param("index"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid address index")
		return
	}

	addresses, err := h.useCase.DeleteAddress(userID, index)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to delete address %d for user %d: %v", index, userID, err)
		ErrorResponse(c, statusCode, "Failed to delete address: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Address deleted successfully", addresses)
}

func (h *AuthHandler) GetSettings(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	settings, err := h.useCase.GetSettings(userID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to load settings for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve settings: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Settings retrieved successfully", settings)
}

func (h *AuthHandler) UpdateSettings(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	var settings domain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.log.Warnf("Failed to bind JSON for update settings (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.useCase.UpdateSettings(userID, settings)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update settings for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to update settings: "+err.Error())
		return
	}

	h.log.Infof("Settings updated for user %d", userID)
	SuccessResponse(c, http.StatusOK, "Settings updated successfully", updated)
}
