package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/clients"
	"github.com/vaddi6894/commerce/internal/domain"
)

var countryCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// WebhookEvent is the processor's asynchronous notification envelope.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the completed hosted-checkout object. The cart and
// shipping address were stashed in metadata when the session was created.
type CheckoutSession struct {
	ID            string            `json:"id"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

const EventCheckoutCompleted = "checkout.session.completed"

type cartLine struct {
	Product  int64           `json:"product"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"qty"`
}

type PaymentUseCase interface {
	// CreatePaymentIntent opens a pending charge with the processor and
	// returns the client-side continuation token. Nothing is persisted
	// locally; card collection happens between the client and the
	// processor.
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, address domain.Address) (string, error)
	// CreateCheckoutSession opens a processor-hosted payment page for the
	// user's cart and returns the redirect URL. The cart and shipping
	// address ride along in session metadata; the completion webhook reads
	// them back to create the order, so nothing is persisted here either.
	CreateCheckoutSession(ctx context.Context, userID int64, items []domain.OrderItem, address domain.Address) (string, error)
	// HandleEvent processes a webhook notification. Failures while creating
	// the order are persisted to the reconciliation dead-letter queue and
	// reported as nil so the processor's delivery is acknowledged.
	HandleEvent(ctx context.Context, payload []byte) error
	// RetryFailedReconciliations replays unresolved dead-letter entries.
	RetryFailedReconciliations(ctx context.Context) error
}

type paymentUseCase struct {
	gateway     clients.PaymentGateway
	orderUC     OrderUseCase
	userRepo    domain.UserRepository
	productRepo domain.ProductRepository
	reconRepo   domain.ReconciliationRepository
	clientURL   string
	log         *logrus.Logger
}

func NewPaymentUseCase(gateway clients.PaymentGateway, orderUC OrderUseCase, userRepo domain.UserRepository, productRepo domain.ProductRepository, reconRepo domain.ReconciliationRepository, clientURL string, logger *logrus.Logger) PaymentUseCase {
	return &paymentUseCase{
		gateway:     gateway,
		orderUC:     orderUC,
		userRepo:    userRepo,
		productRepo: productRepo,
		reconRepo:   reconRepo,
		clientURL:   strings.TrimRight(clientURL, "/"),
		log:         logger,
	}
}

func (uc *paymentUseCase) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, address domain.Address) (string, error) {
	if !amount.IsPositive() {
		uc.log.Warnf("Use Case: Rejected payment intent with non-positive amount: %s", amount)
		return "", errors.New("payment amount must be positive")
	}
	if !countryCodePattern.MatchString(address.Country) {
		uc.log.Warnf("Use Case: Rejected payment intent with invalid country code: %q", address.Country)
		return "", errors.New("invalid country code")
	}
	address.Country = strings.ToUpper(address.Country)

	currency := domain.SettlementCurrency(address.Country)
	description := "Storefront order payment"
	if currency == "inr" {
		description += " (India export)"
	}

	intent, err := uc.gateway.CreateIntent(ctx, clients.CreateIntentRequest{
		Amount:      domain.ToMinorUnits(amount),
		Currency:    currency,
		Description: description,
		Shipping:    address,
	})
	if err != nil {
		uc.log.Errorf("Use Case: Gateway failed to create payment intent: %v", err)
		return "", fmt.Errorf("could not create payment intent: %w", err)
	}

	uc.log.Infof("Use Case: Payment intent %s created (%d %s)", intent.ID, intent.Amount, intent.Currency)
	return intent.ClientSecret, nil
}

func (uc *paymentUseCase) CreateCheckoutSession(ctx context.Context, userID int64, items []domain.OrderItem, address domain.Address) (string, error) {
	if err := validateItems(items); err != nil {
		uc.log.Warnf("Use Case: Rejected checkout session for user %d: %v", userID, err)
		return "", err
	}
	if !countryCodePattern.MatchString(address.Country) {
		uc.log.Warnf("Use Case: Rejected checkout session with invalid country code: %q", address.Country)
		return "", errors.New("invalid country code")
	}
	address.Country = strings.ToUpper(address.Country)

	user, err := uc.userRepo.GetUserByID(userID)
	if err != nil {
		uc.log.Warnf("Use Case: Could not resolve user %d for checkout session: %v", userID, err)
		return "", fmt.Errorf("could not resolve user: %w", err)
	}

	currency := domain.SettlementCurrency(address.Country)

	// Line amounts come from live catalog prices, not from whatever the
	// client put in its cart. The same snapshot goes into the metadata the
	// webhook will read back.
	merged := mergeLines(items)
	metaLines := make([]cartLine, 0, len(merged))
	gwLines := make([]clients.CheckoutLine, 0, len(merged))
	for _, item := range merged {
		product, err := uc.productRepo.GetProductByID(item.ProductID)
		if err != nil {
			uc.log.Warnf("Use Case: Catalog check failed for product %d: %v", item.ProductID, err)
			return "", fmt.Errorf("catalog check failed for product %d: %w", item.ProductID, err)
		}
		metaLines = append(metaLines, cartLine{
			Product:  product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.Image,
			Quantity: item.Quantity,
		})
		gwLines = append(gwLines, clients.CheckoutLine{
			Name:       product.Name,
			UnitAmount: domain.ToMinorUnits(product.Price),
			Currency:   currency,
			Quantity:   item.Quantity,
		})
	}

	cartJSON, err := json.Marshal(metaLines)
	if err != nil {
		return "", fmt.Errorf("could not encode cart metadata: %w", err)
	}
	addressJSON, err := json.Marshal(address)
	if err != nil {
		return "", fmt.Errorf("could not encode shipping address metadata: %w", err)
	}

	checkout, err := uc.gateway.CreateCheckoutSession(ctx, clients.CreateCheckoutRequest{
		CustomerEmail: user.Email,
		SuccessURL:    uc.clientURL + "/order-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     uc.clientURL + "/checkout",
		Lines:         gwLines,
		CartJSON:      string(cartJSON),
		AddressJSON:   string(addressJSON),
	})
	if err != nil {
		uc.log.Errorf("Use Case: Gateway failed to create checkout session for user %d: %v", userID, err)
		return "", fmt.Errorf("could not create checkout session: %w", err)
	}

	uc.log.Infof("Use Case: Checkout session %s created for user %d (%d lines, %s)", checkout.ID, userID, len(gwLines), currency)
	return checkout.URL, nil
}

func (uc *paymentUseCase) HandleEvent(ctx context.Context, payload []byte) error {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		uc.log.Errorf("Use Case: Failed to decode webhook payload: %v", err)
		return fmt.Errorf("invalid webhook payload: %w", err)
	}

	if event.Type != EventCheckoutCompleted {
		uc.log.Infof("Use Case: Ignoring webhook event %s of type '%s'", event.ID, event.Type)
		return nil
	}

	uc.log.Infof("Use Case: Processing checkout completion event %s (session %s)", event.ID, event.Data.Object.ID)

	if err := uc.reconcileSession(event.Data.Object); err != nil {
		uc.log.Errorf("Use Case: Reconciliation failed for event %s: %v", event.ID, err)
		failure := &domain.ReconciliationFailure{
			EventID:   event.ID,
			Payload:   payload,
			LastError: err.Error(),
		}
		if saveErr := uc.reconRepo.SaveFailure(failure); saveErr != nil {
			// The dead-letter write itself failed; nothing left but the log.
			uc.log.Errorf("Use Case: CRITICAL! Could not persist reconciliation failure for event %s: %v", event.ID, saveErr)
		}
	}
	return nil
}

func (uc *paymentUseCase) reconcileSession(session CheckoutSession) error {
	if session.CustomerEmail == "" {
		return errors.New("checkout session has no customer email")
	}

	// The processor redelivers events until acknowledged, so the same
	// session can arrive more than once. An order already carrying this
	// session's reference means the work is done.
	if existing, err := uc.orderUC.GetOrderByPaymentRef(session.ID); err == nil {
		uc.log.Infof("Use Case: Session %s already reconciled as order %d, ignoring redelivery", session.ID, existing.ID)
		return nil
	}

	var lines []cartLine
	if raw := session.Metadata["cart"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			return fmt.Errorf("could not decode cart metadata: %w", err)
		}
	}
	if len(lines) == 0 {
		return errors.New("checkout session has no cart metadata")
	}

	var address domain.Address
	if raw := session.Metadata["shippingAddress"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &address); err != nil {
			return fmt.Errorf("could not decode shipping address metadata: %w", err)
		}
	}

	user, err := uc.userRepo.GetUserByEmail(strings.ToLower(session.CustomerEmail))
	if err != nil {
		return fmt.Errorf("could not resolve paying user: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID: line.Product,
			Name:      line.Name,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}

	order, err := uc.orderUC.PlaceReconciledOrder(user.ID, items, address, session.ID)
	if err != nil {
		return fmt.Errorf("could not create order for session %s: %w", session.ID, err)
	}

	uc.log.Infof("Use Case: Order %d reconciled from checkout session %s for user %d", order.ID, session.ID, user.ID)
	return nil
}

func (uc *paymentUseCase) RetryFailedReconciliations(ctx context.Context) error {
	failures, err := uc.reconRepo.ListUnresolved(20)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		return nil
	}

	uc.log.Infof("Use Case: Retrying %d unresolved reconciliation failures", len(failures))

	for _, failure := range failures {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var event WebhookEvent
		if err := json.Unmarshal(failure.Payload, &event); err != nil {
			uc.log.Errorf("Use Case: Dead-letter entry %d has undecodable payload: %v", failure.ID, err)
			if markErr := uc.reconRepo.MarkRetried(failure.ID, "undecodable payload: "+err.Error()); markErr != nil {
				uc.log.Errorf("Use Case: Failed to record retry for entry %d: %v", failure.ID, markErr)
			}
			continue
		}

		if err := uc.reconcileSession(event.Data.Object); err != nil {
			uc.log.Warnf("Use Case: Retry failed for dead-letter entry %d (event %s): %v", failure.ID, event.ID, err)
			if markErr := uc.reconRepo.MarkRetried(failure.ID, err.Error()); markErr != nil {
				uc.log.Errorf("Use Case: Failed to record retry for entry %d: %v", failure.ID, markErr)
			}
			continue
		}

		if err := uc.reconRepo.MarkResolved(failure.ID); err != nil {
			uc.log.Errorf("Use Case: Failed to mark dead-letter entry %d resolved: %v", failure.ID, err)
			continue
		}
		uc.log.Infof("Use Case: Dead-letter entry %d (event %s) resolved after %d attempts", failure.ID, event.ID, failure.Attempts)
	}
	return nil
}

// RunReconciliationWorker periodically replays the dead-letter queue until
// the context is cancelled.
func RunReconciliationWorker(ctx context.Context, uc PaymentUseCase, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("Reconciliation worker started (interval %s)", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := uc.RetryFailedReconciliations(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Reconciliation worker pass failed: %v", err)
			}
		}
	}
}
