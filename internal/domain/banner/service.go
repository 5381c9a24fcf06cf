// internal/domain/banner/service.go
package banner

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
)

// ErrBannerNotFound is returned when a banner does not exist
var ErrBannerNotFound = errors.New("banner not found")

// Service handles banner business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new banner service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateBannerRequest represents banner creation data
type CreateBannerRequest struct {
	Title     string     `json:"title" binding:"required"`
	Subtitle  string     `json:"subtitle"`
	ImageURL  string     `json:"image_url" binding:"required,url"`
	LinkURL   string     `json:"link_url"`
	SortOrder int        `json:"sort_order"`
	IsActive  *bool      `json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
}

// UpdateBannerRequest represents banner update data
type UpdateBannerRequest struct {
	Title     *string    `json:"title"`
	Subtitle  *string    `json:"subtitle"`
	ImageURL  *string    `json:"image_url"`
	LinkURL   *string    `json:"link_url"`
	SortOrder *int       `json:"sort_order"`
	IsActive  *bool      `json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
}

// GetActiveBanners retrieves banners that should currently be shown,
// ordered for display.
func (s *Service) GetActiveBanners() ([]Banner, error) {
	now := time.Now()
	var banners []Banner
	err := s.db.Where("is_active = ?", true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now).
		Order("sort_order ASC, created_at DESC").
		Find(&banners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get banners: %w", err)
	}
	return banners, nil
}

// GetBanners retrieves all banners (admin)
func (s *Service) GetBanners() ([]Banner, error) {
	var banners []Banner
	if err := s.db.Order("sort_order ASC, created_at DESC").Find(&banners).Error; err != nil {
		return nil, fmt.Errorf("failed to get banners: %w", err)
	}
	return banners, nil
}

// GetBanner retrieves a banner by ID
func (s *Service) GetBanner(id uint) (*Banner, error) {
	var banner Banner
	if err := s.db.First(&banner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to get banner: %w", err)
	}
	return &banner, nil
}

// CreateBanner creates a new banner
func (s *Service) CreateBanner(req *CreateBannerRequest) (*Banner, error) {
	banner := Banner{
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		ImageURL:  req.ImageURL,
		LinkURL:   req.LinkURL,
		SortOrder: req.SortOrder,
		IsActive:  true,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	}
	if req.IsActive != nil {
		banner.IsActive = *req.IsActive
	}

	if err := s.db.Create(&banner).Error; err != nil {
		return nil, fmt.Errorf("failed to create banner: %w", err)
	}
	return &banner, nil
}

// UpdateBanner updates banner fields that were provided
func (s *Service) UpdateBanner(id uint, req *UpdateBannerRequest) (*Banner, error) {
	banner, err := s.GetBanner(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Subtitle != nil {
		updates["subtitle"] = *req.Subtitle
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.LinkURL != nil {
		updates["link_url"] = *req.LinkURL
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.EndsAt != nil {
		updates["ends_at"] = *req.EndsAt
	}

	if len(updates) > 0 {
		if err := s.db.Model(banner).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update banner: %w", err)
		}
	}
	return banner, nil
}

// DeleteBanner removes a banner
func (s *Service) DeleteBanner(id uint) error {
	result := s.db.Delete(&Banner{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete banner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBannerNotFound
	}
	return nil
}
