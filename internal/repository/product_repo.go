package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type postgresProductRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sqlx.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresProductRepository) CreateProduct(product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, image, description, price, stock, category)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, rating, created_at, updated_at`

	err := r.db.QueryRow(query,
		product.Name,
		product.Image,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
	).Scan(&product.ID, &product.Rating, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Check constraint violation for product '%s': %s", product.Name, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %s", pqErr.Message)
		}
		r.log.Errorf("Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}

	r.log.Infof("Product created successfully with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(id int64) (*domain.Product, error) {
	query := `
        SELECT id, name, image, description, price, stock, category, rating, created_at, updated_at
        FROM products
        WHERE id = $1`

	product := &domain.Product{}
	err := r.db.Get(product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Product with ID %d not found", id)
			return nil, fmt.Errorf("product with id %d not found", id)
		}
		r.log.Errorf("Failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}

	return product, nil
}

func (r *postgresProductRepository) UpdateProduct(id int64, updates map[string]interface{}) (*domain.Product, error) {
	if len(updates) == 0 {
		return r.GetProductByID(id)
	}

	setClauses := []string{}
	args := []interface{}{}
	argCounter := 1

	for key, value := range updates {
		switch key {
		case "name", "image", "description", "category", "stock":
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
		case "price":
			price, ok := value.(decimal.Decimal)
			if !ok {
				r.log.Errorf("Repository: Invalid type for price on product update ID %d: %T", id, value)
				return nil, fmt.Errorf("internal error: invalid type for price in repository")
			}
			setClauses = append(setClauses, fmt.Sprintf("price = $%d", argCounter))
			args = append(args, price)
		default:
			r.log.Warnf("Repository: Skipping unknown field '%s' on product update ID %d", key, id)
			continue
		}
		argCounter++
	}

	if len(setClauses) == 0 {
		return r.GetProductByID(id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := "UPDATE products SET " + strings.Join(setClauses, ", ") + fmt.Sprintf(" WHERE id = $%d", argCounter)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Repository: Check constraint violation for product update ID %d: %s", id, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %s", pqErr.Message)
		}
		r.log.Errorf("Repository: Failed to update product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after update for ID %d: %v", id, err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Product with ID %d not found for update", id)
		return nil, fmt.Errorf("product with id %d not found for update", id)
	}

	r.log.Infof("Repository: Update successful for product ID %d", id)
	return r.GetProductByID(id)
}

func (r *postgresProductRepository) DeleteProduct(id int64) error {
	result, err := r.db.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Failed to delete product ID %d: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Failed to get rows affected after deleting product ID %d: %v", id, err)
		return fmt.Errorf("could not confirm product deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Attempted to delete non-existent product ID %d", id)
		return fmt.Errorf("product with id %d not found for deletion", id)
	}
	r.log.Infof("Product deleted successfully with ID: %d", id)
	return nil
}

func (r *postgresProductRepository) ListProducts(filter domain.ProductFilter) ([]domain.Product, int, error) {
	selectCols := `id, name, image, description, price, stock, category, rating, created_at, updated_at`

	// Explicit id-set lookup resolves a cart/wishlist and bypasses
	// pagination and the other filters entirely.
	if len(filter.IDs) > 0 {
		query := `SELECT ` + selectCols + ` FROM products WHERE id = ANY($1) ORDER BY id ASC`
		products := []domain.Product{}
		if err := r.db.Select(&products, query, pq.Array(filter.IDs)); err != nil {
			r.log.Errorf("Failed to list products by ids %v: %v", filter.IDs, err)
			return nil, 0, fmt.Errorf("could not list products by ids: %w", err)
		}
		r.log.Infof("Retrieved %d products for id set of %d", len(products), len(filter.IDs))
		return products, len(products), nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	where := []string{"name ILIKE $1"}
	args := []interface{}{"%" + escapeLike(filter.Keyword) + "%"}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM products`+whereClause, args...); err != nil {
		r.log.Errorf("Failed to count products (keyword: %q, category: %q): %v", filter.Keyword, filter.Category, err)
		return nil, 0, fmt.Errorf("could not count products: %w", err)
	}

	query := `SELECT ` + selectCols + ` FROM products` + whereClause +
		fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	products := []domain.Product{}
	if err := r.db.Select(&products, query, args...); err != nil {
		r.log.Errorf("Failed to list products (keyword: %q, category: %q): %v", filter.Keyword, filter.Category, err)
		return nil, 0, fmt.Errorf("could not list products: %w", err)
	}

	r.log.Infof("Retrieved %d of %d products (keyword: %q, category: %q, page: %d)", len(products), count, filter.Keyword, filter.Category, page)
	return products, count, nil
}

// escapeLike neutralizes the LIKE metacharacters so a search keyword
// matches literally instead of acting as a pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
