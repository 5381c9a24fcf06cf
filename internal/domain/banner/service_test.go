// internal/domain/banner/service_test.go
package banner

import (
	"fmt"
	"strings"
	"testing"
	"time"

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

	require.NoError(t, db.AutoMigrate(&Banner{}))

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	return NewService(db, cfg), db
}

func TestGetActiveBannersFiltersByWindow(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	live := &Banner{Title: "Live", ImageURL: "https://cdn/x.png", IsActive: true, SortOrder: 2}
	windowed := &Banner{Title: "Windowed", ImageURL: "https://cdn/y.png", IsActive: true,
		StartsAt: &past, EndsAt: &future, SortOrder: 1}
	expired := &Banner{Title: "Expired", ImageURL: "https://cdn/z.png", IsActive: true,
		EndsAt: &past}
	upcoming := &Banner{Title: "Upcoming", ImageURL: "https://cdn/w.png", IsActive: true,
		StartsAt: &future}
	disabled := &Banner{Title: "Disabled", ImageURL: "https://cdn/v.png", IsActive: false}
	for _, b := range []*Banner{live, windowed, expired, upcoming, disabled} {
		require.NoError(t, db.Create(b).Error)
	}

	banners, err := svc.GetActiveBanners()
	require.NoError(t, err)
	require.Len(t, banners, 2)
	// Ordered by sort_order
	assert.Equal(t, "Windowed", banners[0].Title)
	assert.Equal(t, "Live", banners[1].Title)

	all, err := svc.GetBanners()
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCreateAndUpdateBanner(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateBanner(&CreateBannerRequest{
		Title:    "Summer Sale",
		ImageURL: "https://cdn/summer.png",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	inactive := false
	newTitle := "Winter Sale"
	updated, err := svc.UpdateBanner(created.ID, &UpdateBannerRequest{
		Title:    &newTitle,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	fetched, err := svc.GetBanner(updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winter Sale", fetched.Title)
	assert.False(t, fetched.IsActive)
}

func TestDeleteBanner(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateBanner(&CreateBannerRequest{
		Title:    "Gone Soon",
		ImageURL: "https://cdn/gone.png",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBanner(created.ID))
	require.ErrorIs(t, svc.DeleteBanner(created.ID), ErrBannerNotFound)

	_, err = svc.GetBanner(created.ID)
	require.ErrorIs(t, err, ErrBannerNotFound)
}

func TestBannerIsLive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Banner{IsActive: true}).IsLive(now))
	assert.True(t, (&Banner{IsActive: true, StartsAt: &past, EndsAt: &future}).IsLive(now))
	assert.False(t, (&Banner{IsActive: false}).IsLive(now))
	assert.False(t, (&Banner{IsActive: true, StartsAt: &future}).IsLive(now))
	assert.False(t, (&Banner{IsActive: true, EndsAt: &past}).IsLive(now))
}
