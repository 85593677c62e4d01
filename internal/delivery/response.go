package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "fail",
		Message: message,
	})
}

func mapErrorToStatus(err error) int {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid email or password") || strings.Contains(errMsg, "expired token") {
		return http.StatusUnauthorized
	}
	if strings.Contains(errMsg, "not authorized") {
		return http.StatusForbidden
	}
	if strings.Contains(errMsg, "not found") {
		return http.StatusNotFound
	}
	if strings.Contains(errMsg, "insufficient stock") {
		return http.StatusConflict // the cart raced another checkout
	}
	if strings.Contains(errMsg, "already exists") || strings.Contains(errMsg, "already reviewed") || strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint") {
		return http.StatusConflict
	}
	if strings.Contains(errMsg, "payment could not be verified") {
		return http.StatusPaymentRequired
	}
	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "cannot be empty") || strings.Contains(errMsg, "must be positive") || strings.Contains(errMsg, "cannot be negative") || strings.Contains(errMsg, "must be between") || strings.Contains(errMsg, "cannot transition") || strings.Contains(errMsg, "constraint violation") {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
