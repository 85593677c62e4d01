package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/clients"
	"github.com/vaddi6894/commerce/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// mockProductRepository is a mutex-guarded in-memory catalog shared with the
// order and review mocks, so stock decrements and rating recomputes behave
// like the real transactional store.
type mockProductRepository struct {
	mu     sync.Mutex
	store  map[int64]*domain.Product
	nextID int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[int64]*domain.Product), nextID: 1}
}

func (m *mockProductRepository) CreateProduct(product *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = m.nextID
	m.nextID++
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	copied := *product
	m.store[product.ID] = &copied
	return product, nil
}

func (m *mockProductRepository) GetProductByID(id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("product with id %d not found", id)
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) UpdateProduct(id int64, updates map[string]interface{}) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("product with id %d not found", id)
	}
	if name, ok := updates["name"].(string); ok {
		product.Name = name
	}
	if stock, ok := updates["stock"].(int); ok {
		product.Stock = stock
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) DeleteProduct(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return fmt.Errorf("product with id %d not found", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockProductRepository) ListProducts(filter domain.ProductFilter) ([]domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := make([]domain.Product, 0, len(m.store))
	for _, product := range m.store {
		if len(filter.IDs) > 0 {
			matched := false
			for _, id := range filter.IDs {
				if product.ID == id {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		products = append(products, *product)
	}
	return products, len(products), nil
}

func (m *mockProductRepository) setStock(id int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[id].Stock = stock
}

func (m *mockProductRepository) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id].Stock
}

func (m *mockProductRepository) ratingOf(id int64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id].Rating
}

type mockOrderRepository struct {
	mu       sync.Mutex
	products *mockProductRepository
	store    map[int64]*domain.Order
	nextID   int64
}

func newMockOrderRepository(products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{
		products: products,
		store:    make(map[int64]*domain.Order),
		nextID:   1,
	}
}

// CreateOrder mirrors the conditional decrement semantics of the real
// store: all lines decrement under a single lock or none do. A non-empty
// payment ref must be unique, like the partial index on the orders table.
func (m *mockOrderRepository) CreateOrder(order *domain.Order) (*domain.Order, error) {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.PaymentRef != "" {
		for _, existing := range m.store {
			if existing.PaymentRef == order.PaymentRef {
				return nil, fmt.Errorf("order with payment reference '%s' already exists", order.PaymentRef)
			}
		}
	}

	for _, item := range order.Items {
		product, ok := m.products.store[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product with id %d not found", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w for product %d (requested: %d)", domain.ErrInsufficientStock, item.ProductID, item.Quantity)
		}
	}
	for i := range order.Items {
		item := &order.Items[i]
		product := m.products.store[item.ProductID]
		product.Stock -= item.Quantity
		item.Name = product.Name
		item.Image = product.Image
		item.Price = product.Price
	}

	order.ID = m.nextID
	m.nextID++
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	m.store[order.ID] = &copied
	return order, nil
}

func (m *mockOrderRepository) GetOrderByID(id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("order with id %d not found", id)
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepository) GetOrderByPaymentRef(ref string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.store {
		if order.PaymentRef == ref {
			copied := *order
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("order with payment reference '%s' not found", ref)
}

func (m *mockOrderRepository) ListOrdersByUserID(userID int64, limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]domain.Order, 0)
	for _, order := range m.store {
		if order.UserID == userID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) ListAllOrders(limit, offset int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]domain.Order, 0, len(m.store))
	for _, order := range m.store {
		orders = append(orders, *order)
	}
	return orders, nil
}

// UpdateOrderStatus applies the flip only while the order still holds the
// expected status, like the conditional UPDATE in the real store.
func (m *mockOrderRepository) UpdateOrderStatus(id int64, from, to domain.OrderStatus, restock bool) (*domain.Order, error) {
	m.mu.Lock()
	order, ok := m.store[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("order with id %d not found for update", id)
	}
	if order.Status != from {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: order %d is no longer '%s'", domain.ErrInvalidTransition, id, from)
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	copied := *order
	m.mu.Unlock()

	if restock {
		m.products.mu.Lock()
		for _, item := range copied.Items {
			if product, ok := m.products.store[item.ProductID]; ok {
				product.Stock += item.Quantity
			}
		}
		m.products.mu.Unlock()
	}
	return &copied, nil
}

type mockReviewRepository struct {
	mu       sync.Mutex
	products *mockProductRepository
	store    map[int64]*domain.Review
	nextID   int64
}

func newMockReviewRepository(products *mockProductRepository) *mockReviewRepository {
	return &mockReviewRepository{
		products: products,
		store:    make(map[int64]*domain.Review),
		nextID:   1,
	}
}

func (m *mockReviewRepository) recomputeRating(productID int64) {
	sum, count := 0, 0
	for _, review := range m.store {
		if review.ProductID == productID {
			sum += review.Rating
			count++
		}
	}
	rating := 0.0
	if count > 0 {
		rating = float64(sum) / float64(count)
	}
	m.products.mu.Lock()
	if product, ok := m.products.store[productID]; ok {
		product.Rating = rating
	}
	m.products.mu.Unlock()
}

func (m *mockReviewRepository) CreateReview(review *domain.Review) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.UserID == review.UserID && existing.ProductID == review.ProductID {
			return nil, fmt.Errorf("%w: user %d already reviewed product %d", domain.ErrAlreadyReviewed, review.UserID, review.ProductID)
		}
	}
	review.ID = m.nextID
	m.nextID++
	review.CreatedAt = time.Now()
	copied := *review
	m.store[review.ID] = &copied
	m.recomputeRating(review.ProductID)
	return review, nil
}

func (m *mockReviewRepository) GetReviewByID(id int64) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("review with id %d not found", id)
	}
	copied := *review
	return &copied, nil
}

func (m *mockReviewRepository) DeleteReview(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.store[id]
	if !ok {
		return fmt.Errorf("review with id %d not found", id)
	}
	delete(m.store, id)
	m.recomputeRating(review.ProductID)
	return nil
}

func (m *mockReviewRepository) ListReviewsByProduct(productID int64) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reviews := make([]domain.Review, 0)
	for _, review := range m.store {
		if review.ProductID == productID {
			reviews = append(reviews, *review)
		}
	}
	return reviews, nil
}

type mockUserRepository struct {
	mu     sync.Mutex
	store  map[int64]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{store: make(map[int64]*domain.User), nextID: 1}
}

func (m *mockUserRepository) CreateUser(user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("user with email '%s' already exists", user.Email)
		}
	}
	user.ID = m.nextID
	m.nextID++
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = time.Now()
	copied := *user
	m.store[user.ID] = &copied
	return user, nil
}

func (m *mockUserRepository) GetUserByEmail(email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.store {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user with email '%s' not found", email)
}

func (m *mockUserRepository) GetUserByID(id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d not found", id)
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) UpdateProfile(id int64, name, email, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d not found", id)
	}
	user.Name = name
	user.Email = email
	user.PasswordHash = passwordHash
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) UpdateAddresses(id int64, addresses []domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.store[id]
	if !ok {
		return fmt.Errorf("user with id %d not found", id)
	}
	user.Addresses = append([]domain.Address(nil), addresses...)
	return nil
}

func (m *mockUserRepository) UpdateSettings(id int64, settings domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.store[id]
	if !ok {
		return fmt.Errorf("user with id %d not found", id)
	}
	user.Settings = settings
	return nil
}

func (m *mockUserRepository) ListUsers(limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.store))
	for _, user := range m.store {
		users = append(users, *user)
	}
	return users, nil
}

func (m *mockUserRepository) UpdateUserRole(id int64, role string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d not found", id)
	}
	user.Role = role
	copied := *user
	return &copied, nil
}

type mockSessionRepository struct {
	mu    sync.Mutex
	store map[string]*domain.Session
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{store: make(map[string]*domain.Session)}
}

func (m *mockSessionRepository) CreateSession(session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.store[session.Token] = &copied
	return nil
}

func (m *mockSessionRepository) GetSession(token string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.store[token]
	if !ok || session.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("session not found or expired")
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepository) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, token)
	return nil
}

type mockReconciliationRepository struct {
	mu     sync.Mutex
	store  map[int64]*domain.ReconciliationFailure
	nextID int64
}

func newMockReconciliationRepository() *mockReconciliationRepository {
	return &mockReconciliationRepository{store: make(map[int64]*domain.ReconciliationFailure), nextID: 1}
}

func (m *mockReconciliationRepository) SaveFailure(failure *domain.ReconciliationFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	failure.ID = m.nextID
	m.nextID++
	failure.Attempts = 1
	failure.CreatedAt = time.Now()
	copied := *failure
	m.store[failure.ID] = &copied
	return nil
}

func (m *mockReconciliationRepository) ListUnresolved(limit int) ([]domain.ReconciliationFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	failures := make([]domain.ReconciliationFailure, 0)
	for _, failure := range m.store {
		if !failure.Resolved {
			failures = append(failures, *failure)
		}
	}
	return failures, nil
}

func (m *mockReconciliationRepository) MarkResolved(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	failure, ok := m.store[id]
	if !ok {
		return fmt.Errorf("reconciliation failure %d not found", id)
	}
	failure.Resolved = true
	return nil
}

func (m *mockReconciliationRepository) MarkRetried(id int64, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	failure, ok := m.store[id]
	if !ok {
		return fmt.Errorf("reconciliation failure %d not found", id)
	}
	failure.Attempts++
	failure.LastError = lastError
	return nil
}

func (m *mockReconciliationRepository) unresolvedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, failure := range m.store {
		if !failure.Resolved {
			count++
		}
	}
	return count
}

// mockPaymentGateway serves canned intents keyed by reference.
type mockPaymentGateway struct {
	mu        sync.Mutex
	intents   map[string]*domain.PaymentIntent
	createErr error
	created   []clients.CreateIntentRequest
	sessions  []clients.CreateCheckoutRequest
}

func newMockPaymentGateway() *mockPaymentGateway {
	return &mockPaymentGateway{intents: make(map[string]*domain.PaymentIntent)}
}

func (m *mockPaymentGateway) CreateIntent(ctx context.Context, req clients.CreateIntentRequest) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, req)
	intent := &domain.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", len(m.created)),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", len(m.created)),
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       "requires_payment_method",
	}
	m.intents[intent.ID] = intent
	return intent, nil
}

func (m *mockPaymentGateway) CreateCheckoutSession(ctx context.Context, req clients.CreateCheckoutRequest) (*domain.HostedCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.sessions = append(m.sessions, req)
	id := fmt.Sprintf("cs_test_%d", len(m.sessions))
	return &domain.HostedCheckout{ID: id, URL: "https://pay.test/c/" + id}, nil
}

func (m *mockPaymentGateway) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, fmt.Errorf("payment intent not found: %s", id)
	}
	copied := *intent
	return &copied, nil
}

func (m *mockPaymentGateway) setIntent(intent *domain.PaymentIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
}
