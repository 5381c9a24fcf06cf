// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/tienda-backend/internal/domain/cart"
	"github.com/your-org/tienda-backend/internal/domain/inventory"
	"github.com/your-org/tienda-backend/internal/domain/order"
)

// respondDomainError translates domain errors into HTTP responses.
// Unknown errors become a generic 500 so internals are not leaked.
func respondDomainError(c *gin.Context, err error) {
	var insufficientStock *inventory.InsufficientStockError
	var productNotFound *inventory.ProductNotFoundError
	var inactiveProduct *inventory.InactiveProductError
	var invalidTransition *order.InvalidTransitionError

	switch {
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Insufficient stock",
			"product_id": insufficientStock.ProductID,
			"available":  insufficientStock.Available,
			"held":       insufficientStock.Held,
			"requested":  insufficientStock.Requested,
		})
	case errors.As(err, &productNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "Product not found",
			"product_id": productNotFound.ProductID,
		})
	case errors.As(err, &inactiveProduct):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Product is not available for purchase",
			"product_id": inactiveProduct.ProductID,
		})
	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": invalidTransition.Error(),
		})
	case errors.Is(err, cart.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Cart not found",
		})
	case errors.Is(err, cart.ErrQuantityRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cart is empty",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
