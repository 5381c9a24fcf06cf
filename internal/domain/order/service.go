// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/tienda-backend/internal/config"
	"github.com/your-org/tienda-backend/internal/domain/cart"
	"github.com/your-org/tienda-backend/internal/domain/inventory"
	"github.com/your-org/tienda-backend/internal/pkg/email"
)

var (
	// ErrOrderNotFound is returned when an order does not exist or does not
	// belong to the requesting user.
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmptyCart is returned when checkout is attempted with no cart lines
	ErrEmptyCart = errors.New("cart is empty")
)

// Service handles order business logic
type Service struct {
	db           *gorm.DB
	config       *config.Config
	cartService  *cart.Service
	guard        *inventory.Guard
	emailService *email.EmailService
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service) *Service {
	return &Service{
		db:           db,
		config:       cfg,
		cartService:  cartService,
		guard:        inventory.NewGuard(),
		emailService: email.NewEmailService(cfg),
	}
}

// ItemRequest is a single line of a checkout request
type ItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=100"`
}

// CreateOrderRequest represents a checkout request
type CreateOrderRequest struct {
	PaymentMethod   string `json:"payment_method" binding:"required"`
	ShippingAddress struct {
		FirstName    string `json:"first_name" binding:"required"`
		LastName     string `json:"last_name" binding:"required"`
		AddressLine1 string `json:"address_line1" binding:"required"`
		AddressLine2 string `json:"address_line2"`
		City         string `json:"city" binding:"required"`
		State        string `json:"state"`
		PostalCode   string `json:"postal_code" binding:"required"`
		Country      string `json:"country" binding:"required,len=2"`
		Phone        string `json:"phone"`
	} `json:"shipping_address" binding:"required"`
}

// UpdateStatusRequest represents an admin status change request
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

// OrderListRequest represents order listing parameters
type OrderListRequest struct {
	Page   int         `form:"page"`
	Limit  int         `form:"limit"`
	Status OrderStatus `form:"status"`
}

// OrderListResponse represents a paginated order listing
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination info
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// CreateOrder places an order for the given lines. The stock check and
// decrement for every line happen inside one transaction with the product
// rows locked, so concurrent checkouts cannot oversell. Either every line
// is deducted and the order is created, or nothing changes.
func (s *Service) CreateOrder(userID uint, items []ItemRequest, req *CreateOrderRequest) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	status := OrderStatusProcessing
	if s.config.IsGatewayPaymentMethod(req.PaymentMethod) {
		status = OrderStatusPendingPayment
	}

	var order *Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Lock every product up front, in ascending id order, so two
		// overlapping checkouts cannot deadlock each other.
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := s.guard.LockProducts(tx, ids)
		if err != nil {
			return err
		}

		// Merge duplicate lines for the same product
		quantities := make(map[uint]int, len(items))
		order = &Order{
			UserID:        userID,
			Status:        status,
			PaymentMethod: req.PaymentMethod,
			ShippingAddress: Address{
				FirstName:    req.ShippingAddress.FirstName,
				LastName:     req.ShippingAddress.LastName,
				AddressLine1: req.ShippingAddress.AddressLine1,
				AddressLine2: req.ShippingAddress.AddressLine2,
				City:         req.ShippingAddress.City,
				State:        req.ShippingAddress.State,
				PostalCode:   req.ShippingAddress.PostalCode,
				Country:      req.ShippingAddress.Country,
				Phone:        req.ShippingAddress.Phone,
			},
		}
		for _, item := range items {
			quantities[item.ProductID] += item.Quantity
		}

		var total int64
		for _, id := range sortedKeys(quantities) {
			prod, ok := products[id]
			if !ok {
				return &inventory.ProductNotFoundError{ProductID: id}
			}
			qty := quantities[id]
			if !prod.IsActive {
				return &inventory.InactiveProductError{ProductID: prod.ID}
			}
			if prod.StockQuantity < qty {
				return &inventory.InsufficientStockError{
					ProductID: prod.ID,
					Available: prod.StockQuantity,
					Requested: qty,
				}
			}
			order.Items = append(order.Items, OrderItem{
				ProductID: prod.ID,
				Name:      prod.Name,
				Quantity:  qty,
				UnitPrice: prod.Price,
				Subtotal:  prod.Price * int64(qty),
			})
			total += prod.Price * int64(qty)
		}
		order.Total = total

		for _, id := range sortedKeys(quantities) {
			if err := s.guard.Deduct(tx, id, quantities[id]); err != nil {
				return err
			}
		}

		order.OrderNumber, err = s.generateOrderNumber(tx)
		if err != nil {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order.Status == OrderStatusProcessing {
		s.sendConfirmationEmail(order)
	}
	return order, nil
}

// CreateOrderFromCart places an order for the entire contents of the
// user's cart, then clears the cart. The cart clear runs after the order
// transaction commits; if it fails the order still stands and the
// leftover lines are logged for cleanup.
func (s *Service) CreateOrderFromCart(userID uint, req *CreateOrderRequest) (*Order, error) {
	cartResp, err := s.cartService.GetCart(userID)
	if err != nil {
		return nil, err
	}
	if len(cartResp.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]ItemRequest, 0, len(cartResp.Items))
	for _, line := range cartResp.Items {
		items = append(items, ItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, err := s.CreateOrder(userID, items, req)
	if err != nil {
		return nil, err
	}

	if err := s.cartService.ClearCart(userID); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":      userID,
			"order_number": order.OrderNumber,
			"error":        err.Error(),
		}).Warn("Order placed but cart could not be cleared")
	}

	return order, nil
}

// ConfirmOrder moves an order from pending_payment to processing. It is
// called by the payment webhook once the gateway reports success.
func (s *Service) ConfirmOrder(orderNumber string) (*Order, error) {
	var order Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to get order: %w", err)
		}
		if !order.Status.CanTransitionTo(OrderStatusProcessing) {
			return &InvalidTransitionError{From: order.Status, To: OrderStatusProcessing}
		}
		order.Status = OrderStatusProcessing
		if err := tx.Model(&order).Update("status", OrderStatusProcessing).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendConfirmationEmail(&order)
	return &order, nil
}

// CancelOrder cancels an order and returns its stock to inventory. The
// status change and every restock happen in one transaction.
func (s *Service) CancelOrder(orderID, userID uint) (*Order, error) {
	var order Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Items").Where("id = ?", orderID)
		if userID != 0 {
			query = query.Where("user_id = ?", userID)
		}
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to get order: %w", err)
		}
		if !order.Status.CanTransitionTo(OrderStatusCancelled) {
			return &InvalidTransitionError{From: order.Status, To: OrderStatusCancelled}
		}

		for _, item := range order.Items {
			if err := s.guard.Restock(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		now := time.Now()
		order.Status = OrderStatusCancelled
		order.CancelledAt = &now
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":       OrderStatusCancelled,
			"cancelled_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies an admin status change. Transitions are validated
// against the state machine; cancellation goes through CancelOrder so the
// stock comes back.
func (s *Service) UpdateStatus(orderID uint, next OrderStatus) (*Order, error) {
	if !next.IsValid() {
		return nil, &InvalidTransitionError{To: next}
	}
	if next == OrderStatusCancelled {
		return s.CancelOrder(orderID, 0)
	}

	var order Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to get order: %w", err)
		}
		if !order.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: order.Status, To: next}
		}

		now := time.Now()
		updates := map[string]interface{}{"status": next}
		switch next {
		case OrderStatusShipped:
			order.ShippedAt = &now
			updates["shipped_at"] = now
		case OrderStatusCompleted:
			order.CompletedAt = &now
			updates["completed_at"] = now
		}
		order.Status = next
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendStatusUpdateEmail(&order)
	return &order, nil
}

// GetOrder retrieves an order by ID. A non-zero userID restricts the
// lookup to that user's orders.
func (s *Service) GetOrder(orderID, userID uint) (*Order, error) {
	var order Order
	query := s.db.Preload("Items").Where("id = ?", orderID)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *Service) GetOrderByNumber(orderNumber string, userID uint) (*Order, error) {
	var order Order
	query := s.db.Preload("Items").Where("order_number = ?", orderNumber)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetUserOrders retrieves a user's orders with pagination
func (s *Service) GetUserOrders(userID uint, req *OrderListRequest) (*OrderListResponse, error) {
	return s.listOrders(s.db.Where("user_id = ?", userID), req)
}

// GetOrders retrieves all orders with pagination (admin)
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	return s.listOrders(s.db, req)
}

func (s *Service) listOrders(query *gorm.DB, req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	query = query.Model(&Order{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").Order("created_at DESC").
		Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// generateOrderNumber produces a unique order number of the form
// ORD-YYYYMMDD-XXXXX, retrying on the unlikely collision.
func (s *Service) generateOrderNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number := fmt.Sprintf("ORD-%s-%05d", time.Now().Format("20060102"), rand.Intn(100000))
		var count int64
		if err := tx.Model(&Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique order number")
}

// sendConfirmationEmail notifies the buyer that their order is being
// processed. Failures are logged, never surfaced to the caller.
func (s *Service) sendConfirmationEmail(o *Order) {
	recipient, err := s.lookupRecipient(o.UserID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Could not resolve order confirmation recipient")
		return
	}

	data := email.OrderConfirmationData{
		EmailTemplateData: email.GetBaseTemplateData(
			s.config.App.Name, s.config.Email.BaseURL, recipient.name, recipient.email),
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		OrderTotal:    o.GetFormattedTotal(),
		PaymentMethod: o.PaymentMethod,
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, email.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    float64(item.UnitPrice) / 100,
			Total:    float64(item.Subtotal) / 100,
		})
	}

	if err := s.emailService.SendOrderConfirmationEmail(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Failed to send order confirmation email")
	}
}

var statusMessages = map[OrderStatus]string{
	OrderStatusShipped:   "Your order is on its way.",
	OrderStatusCompleted: "Your order has been delivered. Thank you for shopping with us.",
}

// sendStatusUpdateEmail notifies the buyer of a status change
func (s *Service) sendStatusUpdateEmail(o *Order) {
	message, ok := statusMessages[o.Status]
	if !ok {
		return
	}

	recipient, err := s.lookupRecipient(o.UserID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Could not resolve status update recipient")
		return
	}

	data := email.OrderStatusUpdateData{
		EmailTemplateData: email.GetBaseTemplateData(
			s.config.App.Name, s.config.Email.BaseURL, recipient.name, recipient.email),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		StatusMessage: message,
	}

	if err := s.emailService.SendOrderStatusUpdateEmail(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_number": o.OrderNumber,
			"error":        err.Error(),
		}).Warn("Failed to send order status update email")
	}
}

type orderRecipient struct {
	name  string
	email string
}

func (s *Service) lookupRecipient(userID uint) (*orderRecipient, error) {
	var row struct {
		Email     string
		FirstName string
		LastName  string
	}
	if err := s.db.Table("users").
		Select("email", "first_name", "last_name").
		Where("id = ?", userID).
		Take(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}
	return &orderRecipient{
		name:  strings.TrimSpace(row.FirstName + " " + row.LastName),
		email: row.Email,
	}, nil
}

func sortedKeys(m map[uint]int) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
