// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/cart"
	"github.com/your-org/tienda-backend/internal/domain/order"
)

// PaymentHandler handles payment gateway callbacks
type PaymentHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(db *gorm.DB, cfg *config.Config) *PaymentHandler {
	cartService := cart.NewService(db, cfg)
	return &PaymentHandler{
		orderService: order.NewService(db, cfg, cartService),
		config:       cfg,
	}
}

// webhookEvent is the payload the payment gateway posts to us
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		OrderNumber string `json:"order_number"`
		PaymentID   string `json:"payment_id"`
	} `json:"data"`
}

// Webhook handles POST /webhooks/payment
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("X-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing signature header",
		})
		return
	}

	if !h.verifyWebhookSignature(string(body), signature) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
		})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON payload",
		})
		return
	}

	if event.Data.OrderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing order number",
		})
		return
	}

	switch event.Event {
	case "payment.captured":
		h.handlePaymentCaptured(event)
	case "payment.failed":
		h.handlePaymentFailed(event)
	default:
		logrus.WithField("event", event.Event).Warn("Unknown webhook event")
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "received",
	})
}

func (h *PaymentHandler) handlePaymentCaptured(event webhookEvent) {
	if _, err := h.orderService.ConfirmOrder(event.Data.OrderNumber); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": event.Data.OrderNumber,
			"payment_id":   event.Data.PaymentID,
			"error":        err.Error(),
		}).Warn("Failed to confirm order from webhook")
	}
}

func (h *PaymentHandler) handlePaymentFailed(event webhookEvent) {
	o, err := h.orderService.GetOrderByNumber(event.Data.OrderNumber, 0)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": event.Data.OrderNumber,
			"error":        err.Error(),
		}).Warn("Order not found for failed payment")
		return
	}

	if _, err := h.orderService.CancelOrder(o.ID, 0); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": event.Data.OrderNumber,
			"error":        err.Error(),
		}).Warn("Failed to cancel order after failed payment")
	}
}

// verifyWebhookSignature verifies the gateway's HMAC-SHA256 signature
func (h *PaymentHandler) verifyWebhookSignature(body, signature string) bool {
	if h.config.Payment.WebhookSecret == "" {
		// If webhook secret not configured, skip verification in development
		return h.config.IsDevelopment()
	}

	mac := hmac.New(sha256.New, []byte(h.config.Payment.WebhookSecret))
	mac.Write([]byte(body))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}
