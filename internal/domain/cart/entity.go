// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// MaxLineQuantity is the upper bound for a single cart line. Requests that
// would push a line past it are rejected; a quantity of zero deletes the
// line instead of storing it.
const MaxLineQuantity = 100

// Cart represents a user's cart. One row per user, created lazily on the
// first add and reused across checkouts; only its line items come and go.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Last time any line item changed

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem represents a single product line inside a cart. The unit price is
// snapshotted when the line is first inserted; increments keep it, explicit
// quantity updates refresh it. Lines delete hard; the unique (cart, product)
// constraint would collide with soft-deleted rows on re-add.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"unit_price"` // Price in cents at time of add
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// LineTotal returns quantity * unit price for this line
func (i *CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
