package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawfacts/backend/internal/domain"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store domain.ProductStore
}

// NewHandler creates a new HTTP handler over the product store
func NewHandler(store domain.ProductStore) *Handler {
	return &Handler{store: store}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pawfacts-backend",
		"version": "1.0.0",
	})
}

// BrandProducts returns every stored product for a brand. A brand with no
// stored products is an explicit 404, never an empty success.
func (h *Handler) BrandProducts(c *gin.Context) {
	brand := c.Param("brand")

	products, err := h.store.ProductsByBrand(c.Request.Context(), brand)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to query products",
		})
		return
	}

	if len(products) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no products found for brand: " + brand,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"brand":    brand,
		"count":    len(products),
		"products": products,
	})
}
