package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/clients"
	"github.com/vaddi6894/commerce/internal/domain"
)

type OrderUseCase interface {
	// PlaceOrder verifies the payment reference against the gateway and
	// creates the order with its stock decrements as one atomic unit.
	PlaceOrder(ctx context.Context, userID int64, items []domain.OrderItem, address domain.Address, paymentRef string) (*domain.Order, error)
	// PlaceReconciledOrder is the webhook path: the processor already
	// confirmed the charge through its hosted session, so no intent lookup
	// is performed. Stock handling is identical to PlaceOrder.
	PlaceReconciledOrder(userID int64, items []domain.OrderItem, address domain.Address, paymentRef string) (*domain.Order, error)
	GetOrderByID(id int64) (*domain.Order, error)
	// GetOrderByPaymentRef is the post-checkout confirmation lookup: the
	// client returns from the hosted payment page holding only the session
	// id and asks for the order the webhook created for it.
	GetOrderByPaymentRef(ref string) (*domain.Order, error)
	ListOrdersByUser(userID int64, limit, offset int) ([]domain.Order, error)
	ListAllOrders(limit, offset int) ([]domain.Order, error)
	UpdateOrderStatus(id int64, status domain.OrderStatus) (*domain.Order, error)
}

type orderUseCase struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	gateway     clients.PaymentGateway
	log         *logrus.Logger
}

func NewOrderUseCase(orderRepo domain.OrderRepository, productRepo domain.ProductRepository, gateway clients.PaymentGateway, logger *logrus.Logger) OrderUseCase {
	return &orderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		gateway:     gateway,
		log:         logger,
	}
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return errors.New("order must contain at least one item")
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return fmt.Errorf("item %d: invalid product ID", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d (product %d): quantity must be positive", i, item.ProductID)
		}
	}
	return nil
}

// mergeLines collapses duplicate product references into a single line,
// summing quantities. The cart contract is one line per product; a client
// that sends duplicates still gets correct stock accounting.
func mergeLines(items []domain.OrderItem) []domain.OrderItem {
	merged := make([]domain.OrderItem, 0, len(items))
	index := make(map[int64]int)
	for _, item := range items {
		if at, ok := index[item.ProductID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func (uc *orderUseCase) PlaceOrder(ctx context.Context, userID int64, items []domain.OrderItem, address domain.Address, paymentRef string) (*domain.Order, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user ID")
	}
	if err := validateItems(items); err != nil {
		uc.log.Warnf("Use Case: Order validation failed for user %d: %v", userID, err)
		return nil, err
	}
	if paymentRef == "" {
		uc.log.Warnf("Use Case: Order for user %d missing payment reference", userID)
		return nil, errors.New("payment reference cannot be empty")
	}

	lines := mergeLines(items)

	// The expected charge is computed from live catalog prices, never from
	// the client-sent snapshots.
	expectedTotal := decimal.Zero
	for _, line := range lines {
		product, err := uc.productRepo.GetProductByID(line.ProductID)
		if err != nil {
			uc.log.Warnf("Use Case: Catalog check failed for product %d: %v", line.ProductID, err)
			return nil, fmt.Errorf("catalog check failed for product %d: %w", line.ProductID, err)
		}
		if product.Stock < line.Quantity {
			uc.log.Warnf("Use Case: Insufficient stock for product %d (requested: %d, available: %d)", line.ProductID, line.Quantity, product.Stock)
			return nil, fmt.Errorf("%w for product %d (requested: %d, available: %d)",
				domain.ErrInsufficientStock, line.ProductID, line.Quantity, product.Stock)
		}
		expectedTotal = expectedTotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if err := uc.verifyPayment(ctx, paymentRef, expectedTotal, address.Country); err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:          userID,
		Items:           lines,
		ShippingAddress: address,
		PaymentRef:      paymentRef,
		Status:          domain.StatusPending,
	}

	uc.log.Infof("Use Case: Placing order for user %d (%d lines, expected total %s)", userID, len(lines), expectedTotal)

	createdOrder, err := uc.orderRepo.CreateOrder(order)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create order for user %d: %v", userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d created for user %d", createdOrder.ID, userID)
	return createdOrder, nil
}

// verifyPayment fetches the payment authorization by its reference and
// requires a succeeded charge matching the expected amount and settlement
// currency. The order is never written on the client's word alone.
func (uc *orderUseCase) verifyPayment(ctx context.Context, paymentRef string, expectedTotal decimal.Decimal, country string) error {
	intent, err := uc.gateway.GetIntent(ctx, paymentRef)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to fetch payment intent %s: %v", paymentRef, err)
		return fmt.Errorf("%w: %v", domain.ErrPaymentNotVerified, err)
	}

	if intent.Status != domain.PaymentStatusSucceeded {
		uc.log.Warnf("Use Case: Payment %s has status '%s', expected '%s'", paymentRef, intent.Status, domain.PaymentStatusSucceeded)
		return fmt.Errorf("%w: payment status is '%s'", domain.ErrPaymentNotVerified, intent.Status)
	}

	expectedAmount := domain.ToMinorUnits(expectedTotal)
	if intent.Amount != expectedAmount {
		uc.log.Warnf("Use Case: Payment %s amount mismatch (charged: %d, expected: %d)", paymentRef, intent.Amount, expectedAmount)
		return fmt.Errorf("%w: charged amount %d does not match order total %d", domain.ErrPaymentNotVerified, intent.Amount, expectedAmount)
	}

	expectedCurrency := domain.SettlementCurrency(country)
	if intent.Currency != expectedCurrency {
		uc.log.Warnf("Use Case: Payment %s currency mismatch (charged: %s, expected: %s)", paymentRef, intent.Currency, expectedCurrency)
		return fmt.Errorf("%w: charge currency %s does not match settlement currency %s", domain.ErrPaymentNotVerified, intent.Currency, expectedCurrency)
	}

	uc.log.Infof("Use Case: Payment %s verified (%d %s)", paymentRef, intent.Amount, intent.Currency)
	return nil
}

func (uc *orderUseCase) PlaceReconciledOrder(userID int64, items []domain.OrderItem, address domain.Address, paymentRef string) (*domain.Order, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user ID")
	}
	if err := validateItems(items); err != nil {
		uc.log.Warnf("Use Case: Reconciled order validation failed for user %d: %v", userID, err)
		return nil, err
	}

	order := &domain.Order{
		UserID:          userID,
		Items:           mergeLines(items),
		ShippingAddress: address,
		PaymentRef:      paymentRef,
		Status:          domain.StatusPending,
	}

	createdOrder, err := uc.orderRepo.CreateOrder(order)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create reconciled order for user %d: %v", userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Reconciled order %d created for user %d", createdOrder.ID, userID)
	return createdOrder, nil
}

func (uc *orderUseCase) GetOrderByID(id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, errors.New("invalid order ID")
	}
	order, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get order ID %d: %v", id, err)
		return nil, err
	}
	return order, nil
}

func (uc *orderUseCase) GetOrderByPaymentRef(ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, errors.New("payment reference cannot be empty")
	}
	order, err := uc.orderRepo.GetOrderByPaymentRef(ref)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get order for payment ref '%s': %v", ref, err)
		return nil, err
	}
	return order, nil
}

func (uc *orderUseCase) ListOrdersByUser(userID int64, limit, offset int) ([]domain.Order, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user ID")
	}
	orders, err := uc.orderRepo.ListOrdersByUserID(userID, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not retrieve orders for user %d: %w", userID, err)
	}
	return orders, nil
}

func (uc *orderUseCase) ListAllOrders(limit, offset int) ([]domain.Order, error) {
	orders, err := uc.orderRepo.ListAllOrders(limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list all orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	return orders, nil
}

func (uc *orderUseCase) UpdateOrderStatus(id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, errors.New("invalid order ID for status update")
	}
	if !domain.IsValidStatus(status) {
		uc.log.Warnf("Use Case: Unknown order status '%s' for order %d", status, id)
		return nil, fmt.Errorf("invalid target order status: %s", status)
	}

	currentOrder, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		uc.log.Warnf("Use Case: Could not get current order %d for status update check: %v", id, err)
		return nil, err
	}

	if !domain.CanTransition(currentOrder.Status, status) {
		uc.log.Warnf("Use Case: Transition '%s' -> '%s' not permitted for order %d", currentOrder.Status, status, id)
		return nil, fmt.Errorf("%w: cannot move order from '%s' to '%s'", domain.ErrInvalidTransition, currentOrder.Status, status)
	}

	restock := status == domain.StatusCancelled
	if restock {
		uc.log.Infof("Use Case: Order %d is being cancelled, items will be returned to stock", id)
	}

	// The repository re-checks that the order is still in the status read
	// above, so two concurrent updates cannot both apply.
	updatedOrder, err := uc.orderRepo.UpdateOrderStatus(id, currentOrder.Status, status, restock)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update status for order ID %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d status updated to '%s'", updatedOrder.ID, updatedOrder.Status)
	return updatedOrder, nil
}
