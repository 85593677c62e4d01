package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Image       string          `json:"image" db:"image"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Category    string          `json:"category" db:"category"`
	Rating      float64         `json:"rating" db:"rating"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductFilter narrows a catalog listing. When IDs is non-empty the
// keyword/category/pagination fields are ignored and the id set is
// resolved directly (used by the client to hydrate a cart or wishlist).
type ProductFilter struct {
	Keyword  string
	Category string
	IDs      []int64
	Page     int
	Limit    int
}

type ProductRepository interface {
	CreateProduct(product *Product) (*Product, error)
	GetProductByID(id int64) (*Product, error)
	UpdateProduct(id int64, updates map[string]interface{}) (*Product, error)
	DeleteProduct(id int64) error
	ListProducts(filter ProductFilter) ([]Product, int, error)
}
