package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddi6894/commerce/internal/domain"
)

type paymentTestEnv struct {
	uc          PaymentUseCase
	orderRepo   *mockOrderRepository
	productRepo *mockProductRepository
	userRepo    *mockUserRepository
	reconRepo   *mockReconciliationRepository
	gateway     *mockPaymentGateway
}

func setupPaymentTest(t *testing.T) *paymentTestEnv {
	t.Helper()
	productRepo := newMockProductRepository()
	orderRepo := newMockOrderRepository(productRepo)
	userRepo := newMockUserRepository()
	reconRepo := newMockReconciliationRepository()
	gateway := newMockPaymentGateway()
	orderUC := NewOrderUseCase(orderRepo, productRepo, gateway, testLogger())
	uc := NewPaymentUseCase(gateway, orderUC, userRepo, productRepo, reconRepo, "https://shop.test", testLogger())
	return &paymentTestEnv{
		uc:          uc,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		reconRepo:   reconRepo,
		gateway:     gateway,
	}
}

func checkoutEvent(t *testing.T, eventID, email string, lines []cartLine, address domain.Address) []byte {
	t.Helper()
	cart, err := json.Marshal(lines)
	require.NoError(t, err)
	addr, err := json.Marshal(address)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": EventCheckoutCompleted,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "cs_" + eventID,
				"customer_email": email,
				"metadata": map[string]string{
					"cart":            string(cart),
					"shippingAddress": string(addr),
				},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestCreatePaymentIntent(t *testing.T) {
	env := setupPaymentTest(t)

	secret, err := env.uc.CreatePaymentIntent(context.Background(),
		decimal.RequireFromString("149.99"), domain.Address{Country: "US"})

	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, int64(14999), env.gateway.created[0].Amount, "amount is converted to minor units")
	assert.Equal(t, "usd", env.gateway.created[0].Currency)
}

func TestCreatePaymentIntent_IndiaSettlesInINR(t *testing.T) {
	env := setupPaymentTest(t)

	_, err := env.uc.CreatePaymentIntent(context.Background(),
		decimal.RequireFromString("10.00"), domain.Address{Country: "in"})

	require.NoError(t, err)
	require.Len(t, env.gateway.created, 1)
	assert.Equal(t, "inr", env.gateway.created[0].Currency)
	assert.Equal(t, "IN", env.gateway.created[0].Shipping.Country, "country is upper-cased before the gateway call")
}

func TestCreatePaymentIntent_InvalidCountry(t *testing.T) {
	env := setupPaymentTest(t)

	for _, country := range []string{"", "USA", "U", "U1"} {
		_, err := env.uc.CreatePaymentIntent(context.Background(),
			decimal.RequireFromString("10.00"), domain.Address{Country: country})
		require.Error(t, err, "country %q must be rejected", country)
		assert.Contains(t, err.Error(), "invalid country code")
	}
	assert.Empty(t, env.gateway.created)
}

func TestCreatePaymentIntent_NonPositiveAmount(t *testing.T) {
	env := setupPaymentTest(t)

	_, err := env.uc.CreatePaymentIntent(context.Background(),
		decimal.Zero, domain.Address{Country: "US"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestCreateCheckoutSession(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)
	user, err := env.userRepo.CreateUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	url, err := env.uc.CreateCheckoutSession(context.Background(), user.ID,
		[]domain.OrderItem{{ProductID: product.ID, Quantity: 2, Price: decimal.RequireFromString("0.01")}},
		domain.Address{Name: "Jane", Country: "US"})

	require.NoError(t, err)
	assert.NotEmpty(t, url)
	require.Len(t, env.gateway.sessions, 1)

	session := env.gateway.sessions[0]
	assert.Equal(t, "jane@example.com", session.CustomerEmail)
	assert.Contains(t, session.SuccessURL, "https://shop.test/order-success")
	assert.Equal(t, "https://shop.test/checkout", session.CancelURL)

	require.Len(t, session.Lines, 1)
	assert.Equal(t, int64(4000), session.Lines[0].UnitAmount, "line amount comes from the live catalog price, not the client cart")
	assert.Equal(t, "usd", session.Lines[0].Currency)
	assert.Equal(t, 2, session.Lines[0].Quantity)

	var metaLines []cartLine
	require.NoError(t, json.Unmarshal([]byte(session.CartJSON), &metaLines))
	require.Len(t, metaLines, 1)
	assert.Equal(t, product.ID, metaLines[0].Product)
	assert.True(t, metaLines[0].Price.Equal(decimal.RequireFromString("40.00")))
}

func TestCreateCheckoutSession_IndiaSettlesInINR(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)
	user, err := env.userRepo.CreateUser(&domain.User{Name: "Anita", Email: "anita@example.com"})
	require.NoError(t, err)

	_, err = env.uc.CreateCheckoutSession(context.Background(), user.ID,
		[]domain.OrderItem{{ProductID: product.ID, Quantity: 1}},
		domain.Address{Country: "in"})

	require.NoError(t, err)
	require.Len(t, env.gateway.sessions, 1)
	assert.Equal(t, "inr", env.gateway.sessions[0].Lines[0].Currency)
}

func TestCreateCheckoutSession_Rejections(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)
	user, err := env.userRepo.CreateUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	_, err = env.uc.CreateCheckoutSession(context.Background(), user.ID,
		nil, domain.Address{Country: "US"})
	require.Error(t, err, "empty cart")

	_, err = env.uc.CreateCheckoutSession(context.Background(), user.ID,
		[]domain.OrderItem{{ProductID: product.ID, Quantity: 1}}, domain.Address{Country: "USA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid country code")

	_, err = env.uc.CreateCheckoutSession(context.Background(), 999,
		[]domain.OrderItem{{ProductID: product.ID, Quantity: 1}}, domain.Address{Country: "US"})
	require.Error(t, err, "unknown user")

	assert.Empty(t, env.gateway.sessions)
}

func TestHandleEvent_CheckoutCompletedCreatesOrder(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)
	user, err := env.userRepo.CreateUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	payload := checkoutEvent(t, "evt_1", "jane@example.com",
		[]cartLine{{Product: product.ID, Quantity: 2}},
		domain.Address{Name: "Jane", Country: "US"})

	err = env.uc.HandleEvent(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, 1, env.productRepo.stockOf(product.ID))
	assert.Zero(t, env.reconRepo.unresolvedCount())

	orders, err := env.orderRepo.ListOrdersByUserID(user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "cs_evt_1", orders[0].PaymentRef)
	assert.Equal(t, domain.StatusPending, orders[0].Status)
}

func TestHandleEvent_RedeliveredEventIsIdempotent(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 10)
	user, err := env.userRepo.CreateUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	payload := checkoutEvent(t, "evt_dup", "jane@example.com",
		[]cartLine{{Product: product.ID, Quantity: 2}},
		domain.Address{Name: "Jane", Country: "US"})

	require.NoError(t, env.uc.HandleEvent(context.Background(), payload))
	require.NoError(t, env.uc.HandleEvent(context.Background(), payload), "redelivery of the same event")

	orders, err := env.orderRepo.ListOrdersByUserID(user.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1, "one order per checkout session, however often the event is delivered")
	assert.Equal(t, 8, env.productRepo.stockOf(product.ID), "stock decremented once")
	assert.Zero(t, env.reconRepo.unresolvedCount(), "a redelivery is not a failure")
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	env := setupPaymentTest(t)

	err := env.uc.HandleEvent(context.Background(),
		[]byte(`{"id":"evt_2","type":"payment_intent.created","data":{"object":{}}}`))

	require.NoError(t, err)
	assert.Zero(t, env.reconRepo.unresolvedCount())
}

func TestHandleEvent_UndecodablePayload(t *testing.T) {
	env := setupPaymentTest(t)

	err := env.uc.HandleEvent(context.Background(), []byte(`{not json`))

	require.Error(t, err)
}

func TestHandleEvent_FailureGoesToDeadLetter(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)

	// no user with this email exists yet, so reconciliation cannot finish
	payload := checkoutEvent(t, "evt_3", "ghost@example.com",
		[]cartLine{{Product: product.ID, Quantity: 1}},
		domain.Address{Country: "US"})

	err := env.uc.HandleEvent(context.Background(), payload)

	require.NoError(t, err, "delivery is acknowledged even when reconciliation fails")
	assert.Equal(t, 1, env.reconRepo.unresolvedCount())
	assert.Equal(t, 3, env.productRepo.stockOf(product.ID), "no partial writes on failure")
}

func TestRetryFailedReconciliations(t *testing.T) {
	env := setupPaymentTest(t)
	product := seedProduct(t, env.productRepo, "Bag", "40.00", 3)

	payload := checkoutEvent(t, "evt_4", "late@example.com",
		[]cartLine{{Product: product.ID, Quantity: 1}},
		domain.Address{Country: "US"})
	require.NoError(t, env.uc.HandleEvent(context.Background(), payload))
	require.Equal(t, 1, env.reconRepo.unresolvedCount())

	t.Run("retry fails while the cause persists", func(t *testing.T) {
		err := env.uc.RetryFailedReconciliations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, env.reconRepo.unresolvedCount())

		failures, err := env.reconRepo.ListUnresolved(10)
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, 2, failures[0].Attempts)
		assert.NotEmpty(t, failures[0].LastError)
	})

	t.Run("retry resolves once the cause is fixed", func(t *testing.T) {
		user, err := env.userRepo.CreateUser(&domain.User{Name: "Late", Email: "late@example.com"})
		require.NoError(t, err)

		err = env.uc.RetryFailedReconciliations(context.Background())
		require.NoError(t, err)
		assert.Zero(t, env.reconRepo.unresolvedCount())
		assert.Equal(t, 2, env.productRepo.stockOf(product.ID))

		orders, err := env.orderRepo.ListOrdersByUserID(user.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, orders, 1)
	})
}

func TestHandleEvent_EmptyCartRejected(t *testing.T) {
	env := setupPaymentTest(t)
	_, err := env.userRepo.CreateUser(&domain.User{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(`{"id":"evt_5","type":%q,"data":{"object":{"id":"cs_evt_5","customer_email":"jane@example.com","metadata":{}}}}`, EventCheckoutCompleted))

	err = env.uc.HandleEvent(context.Background(), payload)

	require.NoError(t, err)
	assert.Equal(t, 1, env.reconRepo.unresolvedCount(), "a session without cart metadata lands in the dead-letter queue")
}
