// internal/domain/inventory/guard.go
//
// The inventory guard serializes read-check-decrement sequences on product
// stock. Every caller that reads stock to decide whether to proceed must do
// so through a locking read inside the transaction that performs the write,
// so two concurrent checkouts can never both pass the same stock check.
package inventory

import (
	"fmt"
	"sort"

	"github.com/your-org/tienda-backend/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Guard wraps the locking protocol for product stock. It carries no state of
// its own; all coordination happens through the database transaction handed
// to each call.
type Guard struct{}

// NewGuard creates a new inventory guard
func NewGuard() *Guard {
	return &Guard{}
}

// LockProduct acquires a row lock on a single product and returns it.
// Returns ProductNotFoundError when no such product exists.
func (g *Guard) LockProduct(tx *gorm.DB, productID uint) (*product.Product, error) {
	var prod product.Product
	err := lockingRead(tx).Where("id = ?", productID).First(&prod).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return &prod, nil
}

// LockProducts acquires row locks on all given products in ascending id
// order, so two transactions sharing products always contend in the same
// sequence and cannot deadlock. Duplicate ids are collapsed. The result maps
// product id to the locked row; ids without a row are simply absent, callers
// decide whether that is an error.
func (g *Guard) LockProducts(tx *gorm.DB, productIDs []uint) (map[uint]*product.Product, error) {
	ids := dedupeSorted(productIDs)
	if len(ids) == 0 {
		return map[uint]*product.Product{}, nil
	}

	var rows []product.Product
	err := lockingRead(tx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	locked := make(map[uint]*product.Product, len(rows))
	for i := range rows {
		locked[rows[i].ID] = &rows[i]
	}
	return locked, nil
}

// Deduct decrements a product's stock by quantity. The decrement is
// conditional on sufficient stock so the quantity column can never go
// negative even if a caller skipped the locked pre-check.
func (g *Guard) Deduct(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("deduct quantity must be positive, got %d", quantity)
	}

	result := tx.Model(&product.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to deduct stock for product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the row vanished or stock dropped below the request since
		// the caller's check. Re-read for an accurate error.
		var prod product.Product
		if err := tx.Where("id = ?", productID).First(&prod).Error; err != nil {
			return &ProductNotFoundError{ProductID: productID}
		}
		return &InsufficientStockError{
			ProductID: productID,
			Available: prod.StockQuantity,
			Requested: quantity,
		}
	}
	return nil
}

// Restock adds quantity back to a product's stock, used when an order is
// cancelled.
func (g *Guard) Restock(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("restock quantity must be positive, got %d", quantity)
	}

	result := tx.Model(&product.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to restock product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}

// lockingRead applies SELECT ... FOR UPDATE on dialects that support row
// locks. SQLite (used in tests) has a database-level writer lock instead, so
// the check-then-write sequence is still atomic per transaction there.
func lockingRead(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func dedupeSorted(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
