// internal/interfaces/http/handlers/contact.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/contact"
)

// ContactHandler handles contact form endpoints
type ContactHandler struct {
	contactService *contact.Service
	config         *config.Config
}

// NewContactHandler creates a new contact handler
func NewContactHandler(db *gorm.DB, cfg *config.Config) *ContactHandler {
	return &ContactHandler{
		contactService: contact.NewService(db, cfg),
		config:         cfg,
	}
}

// Submit handles POST /contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contact.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	msg, err := h.contactService.Submit(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to submit message",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message submitted successfully",
		"data":    gin.H{"id": msg.ID},
	})
}

// AdminGetMessages handles GET /admin/contact-messages
func (h *ContactHandler) AdminGetMessages(c *gin.Context) {
	var req contact.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.contactService.GetMessages(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve messages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Messages retrieved successfully",
		"data":    response,
	})
}

// AdminGetMessage handles GET /admin/contact-messages/:id
func (h *ContactHandler) AdminGetMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	msg, err := h.contactService.GetMessage(uint(id))
	if err != nil {
		respondContactError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Message retrieved successfully",
		"data":    msg,
	})
}

// MessageStatusRequest represents a message status change
type MessageStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateMessageStatus handles PUT /admin/contact-messages/:id/status
func (h *ContactHandler) AdminUpdateMessageStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	var req MessageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	msg, err := h.contactService.UpdateStatus(uint(id), req.Status)
	if err != nil {
		respondContactError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Message status updated successfully",
		"data":    msg,
	})
}

func respondContactError(c *gin.Context, err error) {
	if errors.Is(err, contact.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
