package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition enforces the directed status graph:
// pending -> processing -> shipped -> delivered, with cancelled reachable
// from any non-terminal state. Delivered and cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusShipped || to == StatusCancelled
	case StatusShipped:
		return to == StatusDelivered || to == StatusCancelled
	default:
		return false
	}
}

// OrderItem is a snapshot of the product at purchase time. Name, image and
// price are copied from the catalog row inside the placement transaction,
// never edited afterwards.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	UserName        string      `json:"user_name,omitempty"`
	UserEmail       string      `json:"user_email,omitempty"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shipping_address"`
	PaymentRef      string      `json:"payment_ref"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Total sums price*quantity over the order items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

type OrderRepository interface {
	// CreateOrder decrements stock for every item and inserts the order as
	// one atomic unit. Each decrement is conditional on sufficient stock;
	// a failed condition aborts the whole order with ErrInsufficientStock.
	// Item name/image/price are snapshotted from the catalog rows inside
	// the same transaction; quantities come from the caller.
	CreateOrder(order *Order) (*Order, error)
	GetOrderByID(id int64) (*Order, error)
	// GetOrderByPaymentRef resolves the order created for a processor
	// reference. Used by the post-checkout confirmation view and by the
	// webhook to detect already-reconciled deliveries.
	GetOrderByPaymentRef(ref string) (*Order, error)
	ListOrdersByUserID(userID int64, limit, offset int) ([]Order, error)
	ListAllOrders(limit, offset int) ([]Order, error)
	// UpdateOrderStatus moves the order from one status to another. The
	// update is conditional on the row still holding the from status;
	// losing a concurrent race yields ErrInvalidTransition. When restock
	// is true the order's item quantities are returned to product stock
	// in the same transaction (cancellation path).
	UpdateOrderStatus(id int64, from, to OrderStatus, restock bool) (*Order, error)
}
