// internal/domain/contact/service.go
package contact

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/pkg/email"
)

// ErrMessageNotFound is returned when a contact message does not exist
var ErrMessageNotFound = errors.New("contact message not found")

// Service handles contact form business logic
type Service struct {
	db           *gorm.DB
	config       *config.Config
	emailService *email.EmailService
}

// NewService creates a new contact service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:           db,
		config:       cfg,
		emailService: email.NewEmailService(cfg),
	}
}

// SubmitRequest represents a contact form submission
type SubmitRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"max=20"`
	Subject string `json:"subject" binding:"max=255"`
	Body    string `json:"body" binding:"required,max=5000"`
}

// MessageListRequest represents message listing parameters
type MessageListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Status string `form:"status"`
}

// MessageListResponse represents a paginated message listing
type MessageListResponse struct {
	Messages   []Message `json:"messages"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// Submit stores a contact form submission and notifies the store inbox
func (s *Service) Submit(req *SubmitRequest) (*Message, error) {
	msg := Message{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  StatusNew,
	}

	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	// Notification is best effort
	if err := s.emailService.SendContactNotification(msg.Name, msg.Email, msg.Subject, msg.Body); err != nil {
		logrus.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"error":      err.Error(),
		}).Warn("Failed to send contact notification email")
	}

	return &msg, nil
}

// GetMessages retrieves contact messages with pagination (admin)
func (s *Service) GetMessages(req *MessageListRequest) (*MessageListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Message{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []Message
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &MessageListResponse{
		Messages:   messages,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetMessage retrieves a message by ID and marks it read
func (s *Service) GetMessage(id uint) (*Message, error) {
	var msg Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if msg.Status == StatusNew {
		if err := s.db.Model(&msg).Update("status", StatusRead).Error; err != nil {
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
		msg.Status = StatusRead
	}
	return &msg, nil
}

// UpdateStatus sets the handling status of a message
func (s *Service) UpdateStatus(id uint, status string) (*Message, error) {
	switch status {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
	default:
		return nil, fmt.Errorf("invalid message status: %s", status)
	}

	var msg Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if err := s.db.Model(&msg).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	msg.Status = status
	return &msg, nil
}
