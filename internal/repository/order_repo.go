package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresOrderRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sqlx.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

// CreateOrder performs the whole placement as one transaction: every line
// item's stock decrement is conditional on sufficient stock, and the order
// row plus its item snapshots commit together with the decrements or not
// at all. Two concurrent placements racing for the last units serialize on
// the row update; the loser gets zero rows affected and the transaction
// rolls back.
func (r *postgresOrderRepository) CreateOrder(order *domain.Order) (ord *domain.Order, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Failed to begin transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.log.Warnf("Rolling back order transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				r.log.Errorf("Failed to commit order transaction: %v", cErr)
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
				ord = nil
			}
		}
	}()

	// Decrement first so a failed condition aborts before the order row is
	// visible anywhere. RETURNING gives the authoritative name/image/price
	// snapshot from the same transaction.
	decrementQuery := `
        UPDATE products
        SET stock = stock - $1, updated_at = NOW()
        WHERE id = $2 AND stock >= $1
        RETURNING name, image, price`

	for i := range order.Items {
		item := &order.Items[i]
		err = tx.QueryRow(decrementQuery, item.Quantity, item.ProductID).Scan(
			&item.Name,
			&item.Image,
			&item.Price,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				var exists bool
				if checkErr := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, item.ProductID).Scan(&exists); checkErr != nil {
					r.log.Errorf("Failed to check product %d existence: %v", item.ProductID, checkErr)
					err = fmt.Errorf("could not check product %d: %w", item.ProductID, checkErr)
					return nil, err
				}
				if !exists {
					r.log.Warnf("Product %d not found during order placement", item.ProductID)
					err = fmt.Errorf("product with id %d not found", item.ProductID)
					return nil, err
				}
				r.log.Warnf("Insufficient stock for product %d (requested %d)", item.ProductID, item.Quantity)
				err = fmt.Errorf("%w for product %d (requested: %d)", domain.ErrInsufficientStock, item.ProductID, item.Quantity)
				return nil, err
			}
			r.log.Errorf("Failed to decrement stock for product %d: %v", item.ProductID, err)
			err = fmt.Errorf("could not decrement stock for product %d: %w", item.ProductID, err)
			return nil, err
		}
	}

	orderQuery := `
        INSERT INTO orders (user_id, ship_name, ship_street, ship_city, ship_country, ship_postal_code, payment_ref, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, status, created_at, updated_at`

	err = tx.QueryRow(orderQuery,
		order.UserID,
		order.ShippingAddress.Name,
		order.ShippingAddress.Street,
		order.ShippingAddress.City,
		order.ShippingAddress.Country,
		order.ShippingAddress.PostalCode,
		order.PaymentRef,
		order.Status,
	).Scan(&order.ID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Order with payment ref '%s' already exists (duplicate delivery)", order.PaymentRef)
			err = fmt.Errorf("order with payment reference '%s' already exists", order.PaymentRef)
			return nil, err
		}
		r.log.Errorf("Failed to insert order for user %d: %v", order.UserID, err)
		err = fmt.Errorf("could not create order entry: %w", err)
		return nil, err
	}

	itemQuery := `
        INSERT INTO order_items (order_id, product_id, name, image, price, quantity)
        VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range order.Items {
		item := &order.Items[i]
		_, err = tx.Exec(itemQuery, order.ID, item.ProductID, item.Name, item.Image, item.Price, item.Quantity)
		if err != nil {
			r.log.Errorf("Failed to insert order item (product %d) for order %d: %v", item.ProductID, order.ID, err)
			err = fmt.Errorf("could not create order item (product %d): %w", item.ProductID, err)
			return nil, err
		}
	}

	r.log.Infof("Order %d created with %d items for user %d", order.ID, len(order.Items), order.UserID)
	return order, nil
}

const orderSelect = `
        SELECT id, user_id, ship_name, ship_street, ship_city, ship_country, ship_postal_code,
               payment_ref, status, created_at, updated_at
        FROM orders`

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ShippingAddress.Name,
		&order.ShippingAddress.Street,
		&order.ShippingAddress.City,
		&order.ShippingAddress.Country,
		&order.ShippingAddress.PostalCode,
		&order.PaymentRef,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *postgresOrderRepository) GetOrderByID(id int64) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(orderSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with ID %d not found", id)
			return nil, fmt.Errorf("order with id %d not found", id)
		}
		r.log.Errorf("Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// GetOrderByPaymentRef looks an order up by its processor reference
// (checkout session or intent id). The partial unique index on
// payment_ref guarantees at most one match.
func (r *postgresOrderRepository) GetOrderByPaymentRef(ref string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(orderSelect+` WHERE payment_ref = $1`, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with payment ref '%s' not found", ref)
			return nil, fmt.Errorf("order with payment reference '%s' not found", ref)
		}
		r.log.Errorf("Failed to get order by payment ref '%s': %v", ref, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *postgresOrderRepository) getOrderItems(orderID int64) ([]domain.OrderItem, error) {
	itemsQuery := `
        SELECT product_id, name, image, price, quantity
        FROM order_items
        WHERE order_id = $1
        ORDER BY id ASC`

	rows, err := r.db.Query(itemsQuery, orderID)
	if err != nil {
		r.log.Errorf("Failed to query order items for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Image, &item.Price, &item.Quantity); err != nil {
			r.log.Errorf("Failed to scan order item row for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during order items iteration for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (r *postgresOrderRepository) ListOrdersByUserID(userID int64, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(orderSelect+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		r.log.Errorf("Failed to list orders for user ID %d: %v", userID, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.collectOrders(rows)
	if err != nil {
		return nil, err
	}

	r.log.Infof("Retrieved %d orders for user ID %d (limit %d, offset %d)", len(orders), userID, limit, offset)
	return orders, nil
}

// ListAllOrders is the admin view. The owning user's name and email are
// populated alongside each order.
func (r *postgresOrderRepository) ListAllOrders(limit, offset int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT o.id, o.user_id, u.name, u.email, o.ship_name, o.ship_street, o.ship_city,
               o.ship_country, o.ship_postal_code, o.payment_ref, o.status, o.created_at, o.updated_at
        FROM orders o
        JOIN users u ON u.id = o.user_id
        ORDER BY o.created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.log.Errorf("Failed to list all orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	orderIDs := []int64{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.UserName,
			&order.UserEmail,
			&order.ShippingAddress.Name,
			&order.ShippingAddress.Street,
			&order.ShippingAddress.City,
			&order.ShippingAddress.Country,
			&order.ShippingAddress.PostalCode,
			&order.PaymentRef,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			r.log.Errorf("Failed to scan order row: %v", err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during orders iteration: %v", err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(orders, orderIDs); err != nil {
		return nil, err
	}

	r.log.Infof("Retrieved %d orders (limit %d, offset %d)", len(orders), limit, offset)
	return orders, nil
}

func (r *postgresOrderRepository) collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	orderIDs := []int64{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.log.Errorf("Failed to scan order row: %v", err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, *order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		r.log.Errorf("Error during orders iteration: %v", err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(orders, orderIDs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresOrderRepository) attachItems(orders []domain.Order, orderIDs []int64) error {
	if len(orders) == 0 {
		return nil
	}

	itemsQuery := `
        SELECT order_id, product_id, name, image, price, quantity
        FROM order_items
        WHERE order_id = ANY($1)
        ORDER BY order_id, id`

	itemRows, err := r.db.Query(itemsQuery, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Failed to query items for orders %v: %v", orderIDs, err)
		return fmt.Errorf("could not retrieve order items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int64][]domain.OrderItem)
	for itemRows.Next() {
		var item domain.OrderItem
		var orderID int64
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Image, &item.Price, &item.Quantity); err != nil {
			r.log.Errorf("Failed to scan order item row during multi-order fetch: %v", err)
			return fmt.Errorf("error scanning order item data for list: %w", err)
		}
		itemsMap[orderID] = append(itemsMap[orderID], item)
	}
	if err = itemRows.Err(); err != nil {
		r.log.Errorf("Error during multi-order items iteration: %v", err)
		return fmt.Errorf("error iterating order items for list: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return nil
}

// UpdateOrderStatus flips the status only if the row still holds the
// status the caller read. Two admins racing to cancel the same order
// serialize on the row: the second update matches zero rows and rolls
// back, so the restock runs at most once.
func (r *postgresOrderRepository) UpdateOrderStatus(id int64, from, to domain.OrderStatus, restock bool) (ord *domain.Order, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Failed to begin transaction for status update: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("UpdateOrderStatus: Failed to rollback transaction: %v (original error: %v)", rbErr, err)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit status update transaction: %w", cErr)
				r.log.Errorf("UpdateOrderStatus: %v", err)
				ord = nil
			}
		}
	}()

	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING id, user_id, ship_name, ship_street, ship_city, ship_country, ship_postal_code,
                  payment_ref, status, created_at, updated_at`

	updatedOrder, err := scanOrder(tx.QueryRow(query, to, id, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if checkErr := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
				r.log.Errorf("Failed to check order %d existence: %v", id, checkErr)
				err = fmt.Errorf("could not check order %d: %w", id, checkErr)
				return nil, err
			}
			if !exists {
				r.log.Warnf("Order with ID %d not found for status update", id)
				err = fmt.Errorf("order with id %d not found for update", id)
				return nil, err
			}
			r.log.Warnf("Order %d is no longer '%s', concurrent update won the race", id, from)
			err = fmt.Errorf("%w: order %d is no longer '%s'", domain.ErrInvalidTransition, id, from)
			return nil, err
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Invalid status value '%s' for order ID %d", to, id)
			err = fmt.Errorf("invalid order status provided: %s", to)
			return nil, err
		}
		r.log.Errorf("Failed to update status for order ID %d: %v", id, err)
		err = fmt.Errorf("could not update order status: %w", err)
		return nil, err
	}

	if restock {
		// Return each line item's quantity to the product's stock in the
		// same transaction as the status flip.
		restockQuery := `
            UPDATE products p
            SET stock = p.stock + oi.quantity, updated_at = NOW()
            FROM order_items oi
            WHERE oi.order_id = $1 AND oi.product_id = p.id`
		if _, err = tx.Exec(restockQuery, id); err != nil {
			r.log.Errorf("Failed to restock items for cancelled order %d: %v", id, err)
			err = fmt.Errorf("could not restock order items: %w", err)
			return nil, err
		}
		r.log.Infof("Restocked items for cancelled order %d", id)
	}

	items, err := r.getOrderItemsTx(tx, id)
	if err != nil {
		return nil, err
	}
	updatedOrder.Items = items

	r.log.Infof("Status for order %d set to '%s'", updatedOrder.ID, updatedOrder.Status)
	return updatedOrder, nil
}

func (r *postgresOrderRepository) getOrderItemsTx(tx *sql.Tx, orderID int64) ([]domain.OrderItem, error) {
	itemsQuery := `
        SELECT product_id, name, image, price, quantity
        FROM order_items
        WHERE order_id = $1
        ORDER BY id ASC`

	rows, err := tx.Query(itemsQuery, orderID)
	if err != nil {
		r.log.Errorf("Failed to query order items within tx for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items within tx: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Image, &item.Price, &item.Quantity); err != nil {
			r.log.Errorf("Failed to scan order item row within tx for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item within tx: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during order items iteration within tx for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items within tx: %w", err)
	}
	return items, nil
}
