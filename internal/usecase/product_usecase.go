package usecase

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
)

type ProductUseCase interface {
	CreateProduct(product *domain.Product) (*domain.Product, error)
	GetProductByID(id int64) (*domain.Product, error)
	UpdateProduct(id int64, updates map[string]interface{}) (*domain.Product, error)
	DeleteProduct(id int64) error
	ListProducts(filter domain.ProductFilter) ([]domain.Product, int, error)
}

type productUseCase struct {
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewProductUseCase(repo domain.ProductRepository, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo: repo,
		log:         logger,
	}
}

func (uc *productUseCase) CreateProduct(product *domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		uc.log.Warn("Use Case: Attempted to create product with empty name")
		return nil, errors.New("product name cannot be empty")
	}
	if !product.Price.IsPositive() {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with invalid price: %s", product.Name, product.Price)
		return nil, errors.New("product price must be positive")
	}
	if product.Stock < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative stock: %d", product.Name, product.Stock)
		return nil, errors.New("product stock cannot be negative")
	}

	uc.log.Infof("Use Case: Attempting to create product '%s'", product.Name)
	createdProduct, err := uc.productRepo.CreateProduct(product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product '%s' created successfully with ID %d", createdProduct.Name, createdProduct.ID)
	return createdProduct, nil
}

func (uc *productUseCase) GetProductByID(id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("invalid product ID")
	}
	product, err := uc.productRepo.GetProductByID(id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get product ID %d: %v", id, err)
		return nil, err
	}
	return product, nil
}

func (uc *productUseCase) UpdateProduct(id int64, updates map[string]interface{}) (*domain.Product, error) {
	if id <= 0 {
		return nil, errors.New("invalid product ID for update")
	}
	if len(updates) == 0 {
		return uc.productRepo.GetProductByID(id)
	}

	validUpdates := make(map[string]interface{})
	for key, value := range updates {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || name == "" {
				uc.log.Warnf("Use Case: Invalid or empty 'name' provided for update ID %d", id)
				return nil, errors.New("product name cannot be empty if provided for update")
			}
			validUpdates[key] = name
		case "image", "description", "category":
			text, ok := value.(string)
			if !ok {
				uc.log.Warnf("Use Case: Invalid type for '%s' provided for update ID %d", key, id)
				return nil, fmt.Errorf("invalid type for %s", key)
			}
			validUpdates[key] = text
		case "price":
			// JSON numbers arrive as float64.
			priceFloat, ok := value.(float64)
			if !ok || priceFloat <= 0 {
				uc.log.Warnf("Use Case: Invalid or non-positive 'price' provided for update ID %d", id)
				return nil, errors.New("product price must be positive if provided for update")
			}
			validUpdates[key] = decimal.NewFromFloat(priceFloat)
		case "stock":
			stockFloat, ok := value.(float64)
			if !ok || stockFloat < 0 || float64(int(stockFloat)) != stockFloat {
				uc.log.Warnf("Use Case: Invalid 'stock' provided for update ID %d: %v", id, value)
				return nil, errors.New("product stock must be a non-negative integer if provided for update")
			}
			validUpdates[key] = int(stockFloat)
		default:
			uc.log.Warnf("Use Case: Skipping unknown field '%s' for product update ID %d", key, id)
		}
	}

	if len(validUpdates) == 0 {
		return uc.productRepo.GetProductByID(id)
	}

	uc.log.Infof("Use Case: Attempting partial update for product ID %d with fields: %v", id, validUpdates)
	updatedProduct, err := uc.productRepo.UpdateProduct(id, validUpdates)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed partial update for product ID %d: %v", id, err)
		return nil, err
	}

	return updatedProduct, nil
}

func (uc *productUseCase) DeleteProduct(id int64) error {
	if id <= 0 {
		return errors.New("invalid product ID for delete")
	}
	uc.log.Infof("Use Case: Attempting to delete product ID %d", id)
	if err := uc.productRepo.DeleteProduct(id); err != nil {
		uc.log.Warnf("Use Case: Repository failed to delete product ID %d: %v", id, err)
		return err
	}
	return nil
}

func (uc *productUseCase) ListProducts(filter domain.ProductFilter) ([]domain.Product, int, error) {
	products, count, err := uc.productRepo.ListProducts(filter)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list products: %v", err)
		return nil, 0, fmt.Errorf("could not retrieve products: %w", err)
	}
	uc.log.Infof("Use Case: Retrieved %d of %d products", len(products), count)
	return products, count, nil
}
