package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
	"github.com/vaddi6894/commerce/internal/middleware"
	"github.com/vaddi6894/commerce/internal/usecase"
)

const webhookSignatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	useCase       usecase.PaymentUseCase
	webhookSecret string
	log           *logrus.Logger
}

func NewPaymentHandler(uc usecase.PaymentUseCase, webhookSecret string, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		useCase:       uc,
		webhookSecret: webhookSecret,
		log:           logger,
	}
}

// RegisterRoutes mounts intent creation on protected and the processor
// webhook on public; the webhook authenticates with its signature, not a
// session.
func (h *PaymentHandler) RegisterRoutes(public gin.IRouter, protected gin.IRouter) {
	protected.POST("/payments/create-intent", h.CreateIntent)
	protected.POST("/payments/create-checkout-session", h.CreateCheckoutSession)
	public.POST("/payments/webhook", h.Webhook)
}

type createIntentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	ShippingAddress domain.Address  `json:"shippingAddress"`
}

func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for create intent: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	clientSecret, err := h.useCase.CreatePaymentIntent(c.Request.Context(), req.Amount, req.ShippingAddress)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to create payment intent: %v", err)
		ErrorResponse(c, statusCode, "Failed to create payment intent: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "Payment intent created successfully", gin.H{
		"clientSecret": clientSecret,
	})
}

type createCheckoutRequest struct {
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
}

func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserIDKey)

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for create checkout session (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: items cannot be empty")
		return
	}

	url, err := h.useCase.CreateCheckoutSession(c.Request.Context(), userID, req.Items, req.ShippingAddress)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to create checkout session for user %d: %v", userID, err)
		ErrorResponse(c, statusCode, "Failed to create checkout session: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "Checkout session created successfully", gin.H{
		"url": url,
	})
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.log.Errorf("Failed to read webhook body: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Could not read request body")
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if !h.verifySignature(payload, signature) {
		h.log.Warnf("Webhook rejected: bad signature (header present: %t)", signature != "")
		ErrorResponse(c, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	if err := h.useCase.HandleEvent(c.Request.Context(), payload); err != nil {
		// Undecodable payloads are the only hard failure; order-creation
		// problems land in the dead-letter queue and are acknowledged.
		h.log.Errorf("Failed to handle webhook event: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	SuccessResponse(c, http.StatusOK, "Webhook processed", gin.H{"received": true})
}

func (h *PaymentHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
