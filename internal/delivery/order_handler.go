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

type OrderHandler struct {
	useCase usecase.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc usecase.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(protected gin.IRouter, admin gin.IRouter) {
	orders := protected.Group("/orders")
	{
		orders.POST("", h.PlaceOrder)
		orders.GET("/my", h.ListMyOrders)
		orders.GET("/by-session/:sessionId", h.GetOrderBySession)
		orders.GET("/:id", h.GetOrderByID)
	}

	manage := admin.Group("/orders")
	{
		manage.GET("", h.ListAllOrders)
		manage.PUT("/:id/status", h.UpdateOrderStatus)
	}
}

type placeOrderRequest struct {
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	PaymentRef      string             `json:"paymentRef"`
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	h.log.Infof("Processing place order request for user %d", userID)

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for place order (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: items cannot be empty")
		return
	}
	if req.PaymentRef == "" {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: paymentRef is required")
		return
	}

	order, err := h.useCase.PlaceOrder(c.Request.Context(), userID, req.Items, req.ShippingAddress, req.PaymentRef)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to place order for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to place order: "+err.Error())
		return
	}

	h.log.Infof("Order %d placed successfully for user %d", order.ID, userID)
	SuccessResponse(c, http.StatusCreated, "Order placed successfully", order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	limit, offset := parsePagination(c, h.log)

	orders, err := h.useCase.ListOrdersByUser(userID, limit, offset)
	if err != nil {
		h.log.Errorf("Failed to list orders for user %d: %v", userID, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	h.log.Infof("Retrieved %d orders for user %d", len(orders), userID)
	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found for this user", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	role := c.GetString(middleware.ContextRoleKey)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid order ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.useCase.GetOrderByID(id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to get order %d (requested by user %d): %v", id, userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve order: "+err.Error())
		return
	}

	if order.UserID != userID && role != domain.RoleAdmin {
		h.log.Warnf("Authorization failed: user %d attempted to access order %d owned by user %d", userID, id, order.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to view this order")
		return
	}

	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

// GetOrderBySession serves the post-payment confirmation page: the client
// comes back from the hosted checkout holding only the session id and asks
// for the order the webhook created for it.
func (h *OrderHandler) GetOrderBySession(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)
	role := c.GetString(middleware.ContextRoleKey)

	sessionID := c.Param("sessionId")
	if sessionID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Invalid session ID")
		return
	}

	order, err := h.useCase.GetOrderByPaymentRef(sessionID)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to get order for session '%s' (requested by user %d): %v", sessionID, userID, err)
		ErrorResponse(c, statusCode, "Failed to retrieve order: "+err.Error())
		return
	}

	if order.UserID != userID && role != domain.RoleAdmin {
		h.log.Warnf("Authorization failed: user %d attempted to access order %d owned by user %d", userID, order.ID, order.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to view this order")
		return
	}

	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	limit, offset := parsePagination(c, h.log)

	orders, err := h.useCase.ListAllOrders(limit, offset)
	if err != nil {
		h.log.Errorf("Failed to list all orders: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	h.log.Infof("Retrieved %d orders for back office", len(orders))
	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

type updateStatusRequest struct {
	Status *domain.OrderStatus `json:"status"`
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid order ID parameter for status update: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for status update (order %d): %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Status == nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: 'status' field is required")
		return
	}

	order, err := h.useCase.UpdateOrderStatus(id, *req.Status)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update status for order %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update order status: "+err.Error())
		return
	}

	h.log.Infof("Order %d status updated to '%s'", id, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func parsePagination(c *gin.Context, log *logrus.Logger) (int, int) {
	limitStr := c.DefaultQuery("limit", "10")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		log.Warnf("Invalid limit parameter '%s', using default 10", limitStr)
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		log.Warnf("Invalid offset parameter '%s', using default 0", offsetStr)
		offset = 0
	}

	return limit, offset
}
