package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

// CreateIntentRequest carries everything the processor needs to open a
// pending charge. Amount is already in minor units.
type CreateIntentRequest struct {
	Amount      int64
	Currency    string
	Description string
	Shipping    domain.Address
}

// CheckoutLine is one cart line for a hosted checkout session. UnitAmount
// is in minor units.
type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Currency   string
	Quantity   int
}

// CreateCheckoutRequest opens a processor-hosted payment page. CartJSON and
// AddressJSON are stashed in the session metadata verbatim so the completion
// webhook can rebuild the order without any local pending state.
type CreateCheckoutRequest struct {
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Lines         []CheckoutLine
	CartJSON      string
	AddressJSON   string
}

// PaymentGateway is the boundary to the external card processor. The
// processor performs authentication, fraud checks and money movement; this
// side only relays amount, currency and shipping metadata and reads back a
// status. Card data never passes through here.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, req CreateCheckoutRequest) (*domain.HostedCheckout, error)
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type gatewayErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type paymentHTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	log       *logrus.Logger
}

func NewPaymentHTTPClient(baseURL, secretKey string, timeout time.Duration, logger *logrus.Logger) PaymentGateway {
	return &paymentHTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

func (c *paymentHTTPClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("description", req.Description)
	form.Set("shipping[name]", req.Shipping.Name)
	form.Set("shipping[address][line1]", req.Shipping.Street)
	form.Set("shipping[address][city]", req.Shipping.City)
	form.Set("shipping[address][postal_code]", req.Shipping.PostalCode)
	form.Set("shipping[address][country]", req.Shipping.Country)

	c.log.Infof("PaymentGateway: Creating intent for %d %s", req.Amount, req.Currency)

	intent, err := c.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create payment intent")
	}

	c.log.Infof("PaymentGateway: Intent %s created (status %s)", intent.ID, intent.Status)
	return intent, nil
}

func (c *paymentHTTPClient) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	if id == "" {
		return nil, errors.New("payment intent id cannot be empty")
	}

	c.log.Infof("PaymentGateway: Fetching intent %s", id)

	intent, err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch payment intent %s", id)
	}

	c.log.Infof("PaymentGateway: Intent %s fetched (status %s, amount %d %s)", intent.ID, intent.Status, intent.Amount, intent.Currency)
	return intent, nil
}

func (c *paymentHTTPClient) CreateCheckoutSession(ctx context.Context, req CreateCheckoutRequest) (*domain.HostedCheckout, error) {
	if len(req.Lines) == 0 {
		return nil, errors.New("checkout session needs at least one line item")
	}

	form := url.Values{}
	form.Set("payment_method_types[0]", "card")
	form.Set("mode", "payment")
	form.Set("customer_email", req.CustomerEmail)
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata[cart]", req.CartJSON)
	form.Set("metadata[shippingAddress]", req.AddressJSON)
	for i, line := range req.Lines {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[price_data][currency]", line.Currency)
		form.Set(prefix+"[price_data][product_data][name]", line.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(line.UnitAmount, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(line.Quantity))
	}

	c.log.Infof("PaymentGateway: Creating checkout session for %s (%d lines)", req.CustomerEmail, len(req.Lines))

	raw, err := c.send(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create checkout session")
	}

	var payload checkoutSessionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.Errorf("PaymentGateway: Failed to decode checkout session response: %v", err)
		return nil, errors.Wrap(err, "failed to decode payment processor response")
	}

	c.log.Infof("PaymentGateway: Checkout session %s created", payload.ID)
	return &domain.HostedCheckout{ID: payload.ID, URL: payload.URL}, nil
}

func (c *paymentHTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*domain.PaymentIntent, error) {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var payload intentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.Errorf("PaymentGateway: Failed to decode %s %s response: %v", method, path, err)
		return nil, errors.Wrap(err, "failed to decode payment processor response")
	}

	return &domain.PaymentIntent{
		ID:           payload.ID,
		ClientSecret: payload.ClientSecret,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		Status:       payload.Status,
	}, nil
}

func (c *paymentHTTPClient) send(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("PaymentGateway: Request %s %s failed: %v", method, path, err)
		return nil, errors.Wrap(err, "failed to communicate with payment processor")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Warnf("PaymentGateway: %s %s returned 404", method, path)
		return nil, errors.New("payment intent not found")
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Errorf("PaymentGateway: Failed to read %s %s response body: %v", method, path, err)
		return nil, errors.Wrap(err, "failed to read payment processor response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var gwErr gatewayErrorResponse
		if jsonErr := json.Unmarshal(raw, &gwErr); jsonErr == nil && gwErr.Error.Message != "" {
			c.log.Errorf("PaymentGateway: %s %s failed with status %d: %s", method, path, resp.StatusCode, gwErr.Error.Message)
			return nil, errors.Errorf("payment processor rejected the request: %s", gwErr.Error.Message)
		}
		c.log.Errorf("PaymentGateway: %s %s failed with status %d. Body: %s", method, path, resp.StatusCode, string(raw))
		return nil, errors.Errorf("payment processor returned status %d", resp.StatusCode)
	}

	return raw, nil
}

var _ PaymentGateway = (*paymentHTTPClient)(nil)
