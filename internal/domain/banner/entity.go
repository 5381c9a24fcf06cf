// internal/domain/banner/entity.go
package banner

import (
	"time"

	"gorm.io/gorm"
)

// Banner represents a storefront promotional banner
type Banner struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null;size:255" json:"title"`
	Subtitle  string         `gorm:"size:255" json:"subtitle"`
	ImageURL  string         `gorm:"not null;size:500" json:"image_url"`
	LinkURL   string         `gorm:"size:500" json:"link_url"`
	SortOrder int            `gorm:"default:0" json:"sort_order"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	StartsAt  *time.Time     `json:"starts_at"`
	EndsAt    *time.Time     `json:"ends_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for Banner
func (Banner) TableName() string {
	return "banners"
}

// IsLive reports whether the banner should currently be shown
func (b *Banner) IsLive(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && now.After(*b.EndsAt) {
		return false
	}
	return true
}
