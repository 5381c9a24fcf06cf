// internal/domain/order/service_test.go
package order

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
	"github.com/your-org/tienda-backend/internal/domain/cart"
	"github.com/your-org/tienda-backend/internal/domain/inventory"
	"github.com/your-org/tienda-backend/internal/domain/product"
)

func newTestService(t *testing.T) (*Service, *cart.Service, *gorm.DB) {
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
		&product.Category{}, &product.Product{},
		&cart.Cart{}, &cart.CartItem{},
		&Order{}, &OrderItem{},
	))

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	cfg.Payment.GatewayMethods = []string{"card", "upi"}

	cartService := cart.NewService(db, cfg)
	return NewService(db, cfg, cartService), cartService, db
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

func stockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var prod product.Product
	require.NoError(t, db.First(&prod, productID).Error)
	return prod.StockQuantity
}

func checkoutRequest(method string) *CreateOrderRequest {
	req := &CreateOrderRequest{PaymentMethod: method}
	req.ShippingAddress.FirstName = "Ana"
	req.ShippingAddress.LastName = "Lopez"
	req.ShippingAddress.AddressLine1 = "Calle Mayor 1"
	req.ShippingAddress.City = "Madrid"
	req.ShippingAddress.PostalCode = "28001"
	req.ShippingAddress.Country = "ES"
	return req
}

func TestCreateOrderDeductsStockAndSnapshots(t *testing.T) {
	svc, _, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 1000, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2500, 5, true)

	o, err := svc.CreateOrder(1, []ItemRequest{
		{ProductID: p1.ID, Quantity: 3},
		{ProductID: p2.ID, Quantity: 2},
	}, checkoutRequest("cod"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, OrderStatusProcessing, o.Status)
	assert.Equal(t, int64(3*1000+2*2500), o.Total)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Product SKU-1", o.Items[0].Name)
	assert.Equal(t, int64(1000), o.Items[0].UnitPrice)
	assert.Equal(t, int64(3000), o.Items[0].Subtotal)

	assert.Equal(t, 7, stockOf(t, db, p1.ID))
	assert.Equal(t, 3, stockOf(t, db, p2.ID))
}

func TestCreateOrderMergesDuplicateLines(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{
		{ProductID: prod.ID, Quantity: 2},
		{ProductID: prod.ID, Quantity: 3},
	}, checkoutRequest("cod"))
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 5, o.Items[0].Quantity)
	assert.Equal(t, 5, stockOf(t, db, prod.ID))
}

func TestCreateOrderIsAtomicWhenOneLineFails(t *testing.T) {
	svc, _, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 1000, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2000, 10, true)
	p3 := seedProduct(t, db, "SKU-3", 3000, 1, true)

	_, err := svc.CreateOrder(1, []ItemRequest{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 2},
		{ProductID: p3.ID, Quantity: 5},
	}, checkoutRequest("cod"))

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, p3.ID, insufficient.ProductID)

	// Nothing was deducted and no order row exists
	assert.Equal(t, 10, stockOf(t, db, p1.ID))
	assert.Equal(t, 10, stockOf(t, db, p2.ID))
	assert.Equal(t, 1, stockOf(t, db, p3.ID))

	var count int64
	require.NoError(t, db.Model(&Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderRejectsInactiveAndUnknownProducts(t *testing.T) {
	svc, _, db := newTestService(t)
	inactiveProd := seedProduct(t, db, "SKU-1", 1000, 10, false)

	_, err := svc.CreateOrder(1, []ItemRequest{{ProductID: inactiveProd.ID, Quantity: 1}},
		checkoutRequest("cod"))
	var inactive *inventory.InactiveProductError
	require.ErrorAs(t, err, &inactive)

	_, err = svc.CreateOrder(1, []ItemRequest{{ProductID: 999, Quantity: 1}},
		checkoutRequest("cod"))
	var notFound *inventory.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateOrderWithNoLines(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder(1, nil, checkoutRequest("cod"))
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderGatewayMethodStartsPendingPayment(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("card"))
	require.NoError(t, err)

	assert.Equal(t, OrderStatusPendingPayment, o.Status)
	// Stock is still reserved at checkout time
	assert.Equal(t, 9, stockOf(t, db, prod.ID))
}

func TestConfirmOrderPromotesPendingPayment(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("card"))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmOrder(o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, confirmed.Status)

	// Confirming twice violates the transition table
	_, err = svc.ConfirmOrder(o.OrderNumber)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, OrderStatusProcessing, invalid.From)
}

func TestConfirmOrderUnknownNumber(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ConfirmOrder("ORD-19700101-00000")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, _, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 1000, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2000, 8, true)

	o, err := svc.CreateOrder(1, []ItemRequest{
		{ProductID: p1.ID, Quantity: 4},
		{ProductID: p2.ID, Quantity: 3},
	}, checkoutRequest("cod"))
	require.NoError(t, err)
	assert.Equal(t, 6, stockOf(t, db, p1.ID))
	assert.Equal(t, 5, stockOf(t, db, p2.ID))

	cancelled, err := svc.CancelOrder(o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, 10, stockOf(t, db, p1.ID))
	assert.Equal(t, 8, stockOf(t, db, p2.ID))
}

func TestCancelOrderScopedToOwner(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	// Another user cannot cancel it
	_, err = svc.CancelOrder(o.ID, 2)
	require.ErrorIs(t, err, ErrOrderNotFound)

	// Admin path (userID 0) can
	cancelled, err := svc.CancelOrder(o.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
}

func TestCancelOrderRejectsTerminalStates(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 2}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	_, err = svc.CancelOrder(o.ID, 1)
	require.NoError(t, err)

	// Cancelling again fails and stock is not restored twice
	_, err = svc.CancelOrder(o.ID, 1)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 10, stockOf(t, db, prod.ID))
}

func TestUpdateStatusStampsLifecycleTimestamps(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	shipped, err := svc.UpdateStatus(o.ID, OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	completed, err := svc.UpdateStatus(o.ID, OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(o.ID, OrderStatusCompleted)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, OrderStatusProcessing, invalid.From)
	assert.Equal(t, OrderStatusCompleted, invalid.To)

	_, err = svc.UpdateStatus(o.ID, OrderStatus("refunded"))
	require.ErrorAs(t, err, &invalid)
}

func TestUpdateStatusCancellationRestocks(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 3}},
		checkoutRequest("cod"))
	require.NoError(t, err)
	assert.Equal(t, 7, stockOf(t, db, prod.ID))

	cancelled, err := svc.UpdateStatus(o.ID, OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, stockOf(t, db, prod.ID))
}

func TestOrderItemsSnapshotSurvivesProductChanges(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 2}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	// Catalog moves on after checkout
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", prod.ID).
		Updates(map[string]interface{}{"price": 9999, "name": "Renamed"}).Error)

	fetched, err := svc.GetOrder(o.ID, 1)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "Product SKU-1", fetched.Items[0].Name)
	assert.Equal(t, int64(1000), fetched.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), fetched.Total)
}

func TestCreateOrderFromCartClearsCart(t *testing.T) {
	svc, cartService, db := newTestService(t)
	p1 := seedProduct(t, db, "SKU-1", 1000, 10, true)
	p2 := seedProduct(t, db, "SKU-2", 2000, 10, true)

	_, err := cartService.AddItem(1, &cart.AddToCartRequest{ProductID: p1.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = cartService.AddItem(1, &cart.AddToCartRequest{ProductID: p2.ID, Quantity: 1})
	require.NoError(t, err)

	o, err := svc.CreateOrderFromCart(1, checkoutRequest("cod"))
	require.NoError(t, err)
	assert.Equal(t, int64(2*1000+2000), o.Total)
	require.Len(t, o.Items, 2)

	resp, err := cartService.GetCart(1)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestCreateOrderFromCartEmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrderFromCart(1, checkoutRequest("cod"))
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderFromCartLeavesCartOnFailure(t *testing.T) {
	svc, cartService, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 5, true)

	_, err := cartService.AddItem(1, &cart.AddToCartRequest{ProductID: prod.ID, Quantity: 4})
	require.NoError(t, err)

	// Someone else buys most of the stock before checkout
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", prod.ID).
		Update("stock_quantity", 2).Error)

	_, err = svc.CreateOrderFromCart(1, checkoutRequest("cod"))
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// The cart is untouched so the user can adjust it
	resp, err := cartService.GetCart(1)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 4, resp.Items[0].Quantity)
}

func TestListOrdersPaginationAndStatusFilter(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 100, true)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateOrder(1, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
			checkoutRequest("cod"))
		require.NoError(t, err)
	}
	other, err := svc.CreateOrder(2, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("cod"))
	require.NoError(t, err)
	_, err = svc.CancelOrder(other.ID, 2)
	require.NoError(t, err)

	page, err := svc.GetUserOrders(1, &OrderListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(5), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	all, err := svc.GetOrders(&OrderListRequest{Status: OrderStatusCancelled})
	require.NoError(t, err)
	require.Len(t, all.Orders, 1)
	assert.Equal(t, other.ID, all.Orders[0].ID)
}

func TestGetOrderScopedToOwner(t *testing.T) {
	svc, _, db := newTestService(t)
	prod := seedProduct(t, db, "SKU-1", 1000, 10, true)

	o, err := svc.CreateOrder(7, []ItemRequest{{ProductID: prod.ID, Quantity: 1}},
		checkoutRequest("cod"))
	require.NoError(t, err)

	_, err = svc.GetOrder(o.ID, 8)
	require.ErrorIs(t, err, ErrOrderNotFound)

	fetched, err := svc.GetOrder(o.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, fetched.OrderNumber)

	byNumber, err := svc.GetOrderByNumber(o.OrderNumber, 7)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)
}
