package delivery

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
	"github.com/vaddi6894/commerce/internal/usecase"
)

type ProductHandler struct {
	useCase usecase.ProductUseCase
	log     *logrus.Logger
}

func NewProductHandler(uc usecase.ProductUseCase, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		useCase: uc,
		log:     logger,
	}
}

// RegisterRoutes mounts the public catalog reads on public and the
// write operations on admin.
func (h *ProductHandler) RegisterRoutes(public gin.IRouter, admin gin.IRouter) {
	products := public.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProductByID)
	}

	manage := admin.Group("/products")
	{
		manage.POST("", h.CreateProduct)
		manage.PUT("/:id", h.UpdateProduct)
		manage.DELETE("/:id", h.DeleteProduct)
	}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
	}

	// An explicit ids list short-circuits keyword search and pagination;
	// it is the cart's price-refresh path.
	if idsParam := c.Query("ids"); idsParam != "" {
		for _, raw := range strings.Split(idsParam, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				h.log.Warnf("Invalid product id '%s' in ids parameter", raw)
				ErrorResponse(c, http.StatusBadRequest, "Invalid ids parameter")
				return
			}
			filter.IDs = append(filter.IDs, id)
		}
	}

	if pageStr := c.DefaultQuery("page", "1"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			h.log.Warnf("Invalid page parameter '%s', using default 1", pageStr)
			page = 1
		}
		filter.Page = page
	}
	if limitStr := c.DefaultQuery("limit", "10"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			h.log.Warnf("Invalid limit parameter '%s', using default 10", limitStr)
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		filter.Limit = limit
	}

	products, count, err := h.useCase.ListProducts(filter)
	if err != nil {
		h.log.Errorf("Failed to list products: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	h.log.Infof("Retrieved %d of %d products (keyword: %q, category: %q, ids: %d)",
		len(products), count, filter.Keyword, filter.Category, len(filter.IDs))
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", gin.H{
		"products": products,
		"count":    count,
	})
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid product ID parameter: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.useCase.GetProductByID(id)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Warnf("Failed to get product %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to retrieve product: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		h.log.Warnf("Failed to bind JSON for create product: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.useCase.CreateProduct(&product)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to create product '%s': %v", product.Name, err)
		ErrorResponse(c, statusCode, "Failed to create product: "+err.Error())
		return
	}

	h.log.Infof("Product %d ('%s') created successfully", created.ID, created.Name)
	SuccessResponse(c, http.StatusCreated, "Product created successfully", created)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid product ID parameter for update: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.log.Warnf("Failed to bind JSON for update product %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: no fields to update")
		return
	}

	updated, err := h.useCase.UpdateProduct(id, updates)
	if err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to update product %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to update product: "+err.Error())
		return
	}

	h.log.Infof("Product %d updated successfully", id)
	SuccessResponse(c, http.StatusOK, "Product updated successfully", updated)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.log.Warnf("Invalid product ID parameter for delete: %s", c.Param("id"))
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	if err := h.useCase.DeleteProduct(id); err != nil {
		statusCode := mapErrorToStatus(err)
		h.log.Errorf("Failed to delete product %d: %v", id, err)
		ErrorResponse(c, statusCode, "Failed to delete product: "+err.Error())
		return
	}

	h.log.Infof("Product %d deleted successfully", id)
	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}
