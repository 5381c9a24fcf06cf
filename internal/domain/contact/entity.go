// internal/domain/contact/entity.go
package contact

import (
	"time"

	"gorm.io/gorm"
)

// Message status values
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusReplied  = "replied"
	StatusArchived = "archived"
)

// Message represents a contact form submission
type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Email     string         `gorm:"not null;size:255;index" json:"email"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Subject   string         `gorm:"size:255" json:"subject"`
	Body      string         `gorm:"not null;type:text" json:"body"`
	Status    string         `gorm:"not null;default:'new';size:20" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for Message
func (Message) TableName() string {
	return "contact_messages"
}
