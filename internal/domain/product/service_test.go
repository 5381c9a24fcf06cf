// internal/domain/product/service_test.go
package product

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

	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}))

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	return NewService(db, cfg), db
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *Category {
	t.Helper()
	category := &Category{Name: name, Slug: strings.ToLower(name), IsActive: true}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedProduct(t *testing.T, db *gorm.DB, categoryID uint, sku string, price int64, stock int, active bool) *Product {
	t.Helper()
	prod := &Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          strings.ToLower(sku),
		Price:         price,
		CategoryID:    categoryID,
		IsActive:      active,
		StockQuantity: stock,
	}
	require.NoError(t, db.Create(prod).Error)
	return prod
}

func TestGetProductsHidesInactive(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)
	seedProduct(t, db, category.ID, "SKU-2", 2000, 5, false)

	resp, err := svc.GetProducts(&ProductListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "SKU-1", resp.Products[0].SKU)

	adminResp, err := svc.AdminGetProducts(&ProductListRequest{})
	require.NoError(t, err)
	assert.Len(t, adminResp.Products, 2)
}

func TestGetProductsSearchAndCategoryFilter(t *testing.T) {
	svc, db := newTestService(t)
	electronics := seedCategory(t, db, "Electronics")
	clothing := seedCategory(t, db, "Clothing")

	laptop := seedProduct(t, db, electronics.ID, "LAP-1", 99900, 3, true)
	require.NoError(t, db.Model(laptop).Update("name", "Gaming Laptop").Error)
	seedProduct(t, db, clothing.ID, "SHIRT-1", 1999, 10, true)

	resp, err := svc.GetProducts(&ProductListRequest{Search: "laptop"})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "LAP-1", resp.Products[0].SKU)

	resp, err = svc.GetProducts(&ProductListRequest{CategoryID: clothing.ID})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "SHIRT-1", resp.Products[0].SKU)
}

func TestGetProductsPagination(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	for i := 0; i < 5; i++ {
		seedProduct(t, db, category.ID, fmt.Sprintf("SKU-%d", i), 1000, 5, true)
	}

	resp, err := svc.GetProducts(&ProductListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Products, 2)
	assert.Equal(t, int64(5), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	assert.False(t, resp.Pagination.HasPrev)
}

func TestGetProductByIDAndSlug(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	prod := seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)
	hidden := seedProduct(t, db, category.ID, "SKU-2", 2000, 5, false)

	got, err := svc.GetProduct(prod.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", got.SKU)
	assert.Equal(t, "Electronics", got.Category.Name)

	bySlug, err := svc.GetProductBySlug("sku-1")
	require.NoError(t, err)
	assert.Equal(t, prod.ID, bySlug.ID)

	// Inactive products are invisible on the public paths
	_, err = svc.GetProduct(hidden.ID)
	require.Error(t, err)
	_, err = svc.GetProductBySlug("sku-2")
	require.Error(t, err)

	// But visible to admins
	adminGot, err := svc.AdminGetProduct(hidden.ID)
	require.NoError(t, err)
	assert.False(t, adminGot.IsActive)
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)

	_, err := svc.CreateProduct(&CreateProductRequest{
		SKU:        "SKU-1",
		Name:       "Duplicate",
		Slug:       "duplicate",
		Price:      1000,
		CategoryID: category.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateProductRequiresCategory(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(&CreateProductRequest{
		SKU:        "SKU-1",
		Name:       "Thing",
		Slug:       "thing",
		Price:      1000,
		CategoryID: 999,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category not found")
}

func TestUpdateProductPartialFields(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	prod := seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)

	newPrice := int64(1500)
	updated, err := svc.UpdateProduct(prod.ID, &UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), updated.Price)
	assert.Equal(t, "Product SKU-1", updated.Name)

	badPrice := int64(0)
	_, err = svc.UpdateProduct(prod.ID, &UpdateProductRequest{Price: &badPrice})
	require.Error(t, err)
}

func TestDeactivateProduct(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	prod := seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)

	require.NoError(t, svc.DeactivateProduct(prod.ID))

	var after Product
	require.NoError(t, db.First(&after, prod.ID).Error)
	assert.False(t, after.IsActive)

	require.Error(t, svc.DeactivateProduct(999))
}

func TestSetStock(t *testing.T) {
	svc, db := newTestService(t)
	category := seedCategory(t, db, "Electronics")
	prod := seedProduct(t, db, category.ID, "SKU-1", 1000, 5, true)

	updated, err := svc.SetStock(prod.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, updated.StockQuantity)

	_, err = svc.SetStock(prod.ID, -1)
	require.Error(t, err)

	_, err = svc.SetStock(999, 10)
	require.Error(t, err)
}
