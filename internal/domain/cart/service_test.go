// internal/domain/cart/service_test.go
package cart

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/inventory"
	"github.com/your-org/tienda-backend/internal/domain/product"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Category{}, &product.Product{}, &Cart{}, &CartItem{},
	))

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	return NewService(db, cfg), db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price int64, stock int, active bool) *product.Product {
	t.Helper()
	prod := &product.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          strings.ToLower(sku),
		Price:         price,
		CategoryID:    1,
		IsActive:      active,
		StockQuantity: stock,
	}
	require.NoError(t, db.Create(prod).Error)
	return prod
}

func TestGetCartWithoutCartRow(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GetCart(42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), resp.UserID)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
}

func TestAddItemCreatesCartAndLine(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1500, 10, true)

	resp, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, int64(1500), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(3000), resp.Total)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
	assert.Equal(t, int64(5000), resp.Total)
}

func TestAddItemKeepsSnapshotPriceOnIncrement(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 1})
	require.NoError(t, err)

	// Price changes after the line is in the cart
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", prod.ID).
		Update("price", 2000).Error)

	resp, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(1000), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), resp.Total)
}

func TestAddItemRejectsInsufficientStock(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 5, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 3})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 3, insufficient.Held)
	assert.Equal(t, 3, insufficient.Requested)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 5, false)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 1})

	var inactive *inventory.InactiveProductError
	require.ErrorAs(t, err, &inactive)
	assert.Equal(t, prod.ID, inactive.ProductID)
}

func TestAddItemRejectsUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: 999, Quantity: 1})

	var notFound *inventory.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAddItemRejectsQuantityOverLineMax(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 500, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: MaxLineQuantity + 1})
	require.ErrorIs(t, err, ErrQuantityRange)

	// Incrementing past the cap is rejected too
	_, err = svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: MaxLineQuantity})
	require.NoError(t, err)
	_, err = svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 1})
	require.ErrorIs(t, err, ErrQuantityRange)
}

func TestUpdateItemRefreshesUnitPrice(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", prod.ID).
		Update("price", 1250).Error)

	resp, removed, err := svc.UpdateItem(1, prod.ID, &UpdateCartItemRequest{Quantity: 3})
	require.NoError(t, err)
	assert.False(t, removed)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.Equal(t, int64(1250), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(3750), resp.Total)
}

func TestUpdateItemZeroDeletesLine(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 2})
	require.NoError(t, err)

	resp, removed, err := svc.UpdateItem(1, prod.ID, &UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, resp.Items)

	// Repeating the zero-update succeeds but reports nothing removed
	resp, removed, err = svc.UpdateItem(1, prod.ID, &UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, resp.Items)
}

func TestUpdateItemWithoutCart(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.UpdateItem(1, 5, &UpdateCartItemRequest{Quantity: 0})
	require.ErrorIs(t, err, ErrCartNotFound)
}

func TestUpdateItemRejectsInsufficientStock(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 4, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 2})
	require.NoError(t, err)

	_, _, err = svc.UpdateItem(1, prod.ID, &UpdateCartItemRequest{Quantity: 6})

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 4, insufficient.Available)
	assert.Equal(t, 2, insufficient.Held)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: prod.ID, Quantity: 1})
	require.NoError(t, err)

	removed, err := svc.RemoveItem(1, prod.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RemoveItem(1, prod.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	// A user without a cart gets the same soft no-op
	removed, err = svc.RemoveItem(99, prod.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClearCartKeepsCartRow(t *testing.T) {
	svc, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 1000, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2000, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(1, &AddToCartRequest{ProductID: p2.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(1))

	resp, err := svc.GetCart(1)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
	assert.NotZero(t, resp.CartID)

	// Clearing an empty or missing cart is a no-op
	require.NoError(t, svc.ClearCart(1))
	require.NoError(t, svc.ClearCart(99))
}

func TestCartTotalsAcrossMultipleLines(t *testing.T) {
	svc, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 999, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2500, 10, true)

	_, err := svc.AddItem(1, &AddToCartRequest{ProductID: p1.ID, Quantity: 3})
	require.NoError(t, err)
	resp, err := svc.AddItem(1, &AddToCartRequest{ProductID: p2.ID, Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.ItemCount)
	assert.Equal(t, int64(3*999+2*2500), resp.Total)
}
