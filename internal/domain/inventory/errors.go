// internal/domain/inventory/errors.go
package inventory

import "fmt"

// InsufficientStockError is returned when a requested quantity cannot be
// satisfied from the current stock. Available and Held let callers build
// actionable messages ("5 available, you already hold 3").
type InsufficientStockError struct {
	ProductID uint
	Available int
	Held      int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.Held > 0 {
		return fmt.Sprintf("insufficient stock for product %d: available %d, already in cart %d, requested %d",
			e.ProductID, e.Available, e.Held, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// ProductNotFoundError is returned when a referenced product does not exist.
type ProductNotFoundError struct {
	ProductID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InactiveProductError is returned when a referenced product exists but has
// been deactivated.
type InactiveProductError struct {
	ProductID uint
}

func (e *InactiveProductError) Error() string {
	return fmt.Sprintf("product %d is no longer available", e.ProductID)
}
