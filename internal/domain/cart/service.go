// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/inventory"
	"github.com/your-org/tienda-backend/internal/domain/product"
	"gorm.io/gorm"
)

// ErrCartNotFound is returned by the update path when the user has no cart
// row at all. Remove and clear treat the same condition as a soft no-op.
var ErrCartNotFound = errors.New("cart not found")

// ErrQuantityRange is returned when a requested quantity falls outside the
// allowed per-line range.
var ErrQuantityRange = fmt.Errorf("quantity must be between 1 and %d", MaxLineQuantity)

// Service handles cart business logic. Every stock check runs inside the
// same transaction as the mutation it guards, with the product row locked
// through the inventory guard, so check and write cannot race.
type Service struct {
	db     *gorm.DB
	config *config.Config
	guard  *inventory.Guard
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		guard:  inventory.NewGuard(),
	}
}

// CartItemResponse represents a cart line with product details
type CartItemResponse struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice int64            `json:"unit_price"`
	LineTotal int64            `json:"line_total"`
	Product   *product.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartResponse represents a cart with items and a recomputed total. The
// total is never persisted; it is always the sum of the returned lines.
type CartResponse struct {
	CartID    uint               `json:"cart_id"`
	UserID    uint               `json:"user_id"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Total     int64              `json:"total"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=100"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=100"`
}

// GetCart retrieves the user's cart. A user without a cart row gets an
// empty-cart result, not an error. Side-effect free.
func (s *Service) GetCart(userID uint) (*CartResponse, error) {
	var userCart Cart
	err := s.db.Preload("Items").Where("user_id = ?", userID).First(&userCart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartResponse{
				UserID:    userID,
				Items:     []CartItemResponse{},
				UpdatedAt: time.Now().UTC(),
			}, nil
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	return s.buildResponse(&userCart)
}

// AddItem adds a product to the user's cart, creating the cart row if it
// does not exist yet. Re-adding a product increments its line instead of
// duplicating it; the stored unit price is kept on increment.
func (s *Service) AddItem(userID uint, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 || req.Quantity > MaxLineQuantity {
		return nil, ErrQuantityRange
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		prod, err := s.guard.LockProduct(tx, req.ProductID)
		if err != nil {
			return err
		}
		if !prod.IsActive {
			return &inventory.InactiveProductError{ProductID: prod.ID}
		}

		userCart, err := s.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item CartItem
		held := 0
		found := tx.Where("cart_id = ? AND product_id = ?", userCart.ID, req.ProductID).First(&item).Error
		if found == nil {
			held = item.Quantity
		} else if !errors.Is(found, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read cart item: %w", found)
		}

		requestedTotal := held + req.Quantity
		if requestedTotal > MaxLineQuantity {
			return ErrQuantityRange
		}
		if requestedTotal > prod.StockQuantity {
			return &inventory.InsufficientStockError{
				ProductID: prod.ID,
				Available: prod.StockQuantity,
				Held:      held,
				Requested: req.Quantity,
			}
		}

		if held > 0 {
			// Increment the existing line; the snapshotted unit price stays.
			item.Quantity = requestedTotal
			if err := tx.Save(&item).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		} else {
			item = CartItem{
				CartID:    userCart.ID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
				UnitPrice: prod.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
		}

		return s.touchCart(tx, userCart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID)
}

// UpdateItem sets the quantity of a cart line. Quantity zero deletes the
// line; removed reports whether a row was actually deleted, so repeating the
// call succeeds without effect. A positive quantity re-validates stock and
// refreshes the line's unit price to the current product price.
func (s *Service) UpdateItem(userID uint, productID uint, req *UpdateCartItemRequest) (*CartResponse, bool, error) {
	if req.Quantity < 0 || req.Quantity > MaxLineQuantity {
		return nil, false, ErrQuantityRange
	}

	removed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var userCart Cart
		if err := tx.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return fmt.Errorf("failed to retrieve cart: %w", err)
		}

		if req.Quantity == 0 {
			result := tx.Where("cart_id = ? AND product_id = ?", userCart.ID, productID).Delete(&CartItem{})
			if result.Error != nil {
				return fmt.Errorf("failed to delete cart item: %w", result.Error)
			}
			removed = result.RowsAffected > 0
			return s.touchCart(tx, userCart.ID)
		}

		prod, err := s.guard.LockProduct(tx, productID)
		if err != nil {
			return err
		}
		if !prod.IsActive {
			return &inventory.InactiveProductError{ProductID: prod.ID}
		}

		var item CartItem
		held := 0
		found := tx.Where("cart_id = ? AND product_id = ?", userCart.ID, productID).First(&item).Error
		if found == nil {
			held = item.Quantity
		} else if !errors.Is(found, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read cart item: %w", found)
		}

		if req.Quantity > prod.StockQuantity {
			return &inventory.InsufficientStockError{
				ProductID: prod.ID,
				Available: prod.StockQuantity,
				Held:      held,
				Requested: req.Quantity,
			}
		}

		if found == nil {
			item.Quantity = req.Quantity
			item.UnitPrice = prod.Price
			if err := tx.Save(&item).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		} else {
			item = CartItem{
				CartID:    userCart.ID,
				ProductID: productID,
				Quantity:  req.Quantity,
				UnitPrice: prod.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
		}

		return s.touchCart(tx, userCart.ID)
	})
	if err != nil {
		return nil, false, err
	}

	response, err := s.GetCart(userID)
	if err != nil {
		return nil, false, err
	}
	return response, removed, nil
}

// RemoveItem deletes a product line from the user's cart. Returns whether a
// line was actually removed; a missing cart or missing line is a soft no-op.
func (s *Service) RemoveItem(userID uint, productID uint) (bool, error) {
	removed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var userCart Cart
		if err := tx.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to retrieve cart: %w", err)
		}

		result := tx.Where("cart_id = ? AND product_id = ?", userCart.ID, productID).Delete(&CartItem{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete cart item: %w", result.Error)
		}
		removed = result.RowsAffected > 0
		if removed {
			return s.touchCart(tx, userCart.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ClearCart deletes all line items from the user's cart. The cart row itself
// persists for reuse. Used by the checkout flow after an order commits.
func (s *Service) ClearCart(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var userCart Cart
		if err := tx.Where("user_id = ?", userID).First(&userCart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to retrieve cart: %w", err)
		}

		if err := tx.Where("cart_id = ?", userCart.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return s.touchCart(tx, userCart.ID)
	})
}

// Private helper methods

func (s *Service) getOrCreateCart(tx *gorm.DB, userID uint) (*Cart, error) {
	var userCart Cart
	err := tx.Where(Cart{UserID: userID}).FirstOrCreate(&userCart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return &userCart, nil
}

func (s *Service) touchCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Model(&Cart{}).Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

func (s *Service) buildResponse(userCart *Cart) (*CartResponse, error) {
	items := make([]CartItemResponse, len(userCart.Items))
	var total int64

	for i, item := range userCart.Items {
		items[i] = CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
			AddedAt:   item.CreatedAt,
		}
		total += item.LineTotal()
	}

	// Attach product details for display. Missing products are skipped, the
	// line itself still counts toward the total.
	for i := range items {
		var prod product.Product
		if err := s.db.Preload("Category").Where("id = ?", items[i].ProductID).First(&prod).Error; err != nil {
			continue
		}
		items[i].Product = &prod
	}

	return &CartResponse{
		CartID:    userCart.ID,
		UserID:    userCart.UserID,
		Items:     items,
		ItemCount: len(items),
		Total:     total,
		UpdatedAt: userCart.UpdatedAt,
	}, nil
}
