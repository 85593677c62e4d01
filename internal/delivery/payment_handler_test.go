package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddi6894/commerce/internal/domain"
	"github.com/vaddi6894/commerce/internal/middleware"
)

type stubPaymentUseCase struct {
	handled [][]byte
}

func (s *stubPaymentUseCase) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, address domain.Address) (string, error) {
	return "pi_secret", nil
}

func (s *stubPaymentUseCase) CreateCheckoutSession(ctx context.Context, userID int64, items []domain.OrderItem, address domain.Address) (string, error) {
	return "https://pay.test/c/cs_1", nil
}

func (s *stubPaymentUseCase) HandleEvent(ctx context.Context, payload []byte) error {
	s.handled = append(s.handled, payload)
	return nil
}

func (s *stubPaymentUseCase) RetryFailedReconciliations(ctx context.Context) error {
	return nil
}

func setupWebhookRouter(t *testing.T, secret string) (*gin.Engine, *stubPaymentUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	stub := &stubPaymentUseCase{}
	handler := NewPaymentHandler(stub, secret, logger)

	router := gin.New()
	router.POST("/api/payments/webhook", handler.Webhook)
	return router, stub
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateCheckoutSession_ReturnsRedirectURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	stub := &stubPaymentUseCase{}
	handler := NewPaymentHandler(stub, "whsec_test", logger)

	router := gin.New()
	router.POST("/api/payments/create-checkout-session", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, int64(7))
	}, handler.CreateCheckoutSession)

	body := []byte(`{"items":[{"product_id":1,"qty":2}],"shippingAddress":{"country":"US"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/create-checkout-session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://pay.test/c/cs_1")

	t.Run("empty cart rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/create-checkout-session",
			bytes.NewReader([]byte(`{"items":[],"shippingAddress":{"country":"US"}}`)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWebhook_ValidSignature(t *testing.T) {
	router, stub := setupWebhookRouter(t, "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set(webhookSignatureHeader, sign("whsec_test", payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.handled, 1)
	assert.Equal(t, payload, stub.handled[0])
}

func TestWebhook_BadSignature(t *testing.T) {
	router, stub := setupWebhookRouter(t, "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set(webhookSignatureHeader, sign("wrong_secret", payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.handled)
}

func TestWebhook_MissingSignature(t *testing.T) {
	router, stub := setupWebhookRouter(t, "whsec_test")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.handled)
}

func TestWebhook_TamperedPayload(t *testing.T) {
	router, stub := setupWebhookRouter(t, "whsec_test")
	payload := []byte(`{"id":"evt_1"}`)
	signature := sign("whsec_test", payload)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader([]byte(`{"id":"evt_evil"}`)))
	req.Header.Set(webhookSignatureHeader, signature)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.handled)
}
