// internal/pkg/email/service.go
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/your-org/tienda-backend/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{
		config:    cfg,
		templates: make(map[string]*template.Template),
	}

	if err := service.loadTemplates(); err != nil {
		logrus.WithError(err).Warn("Failed to load email templates")
	}

	return service
}

// SendEmail sends an email over SMTP
func (s *EmailService) SendEmail(email *Email) error {
	return s.sendSMTPEmail(email)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(userEmail, userName string) error {
	data := GetBaseTemplateData(
		s.config.Email.FromName,
		s.config.Email.BaseURL,
		userName,
		userEmail,
	)

	htmlContent, err := s.renderTemplate("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome email template: %w", err)
	}

	email := &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("Welcome to %s!", s.config.Email.FromName),
		HTMLContent: htmlContent,
		Type:        EmailTypeWelcome,
	}

	return s.SendEmail(email)
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(data OrderConfirmationData) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.Email.FromName,
		s.config.Email.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	}

	return s.SendEmail(email)
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(data OrderStatusUpdateData) error {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.Email.FromName,
		s.config.Email.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate("order_status_update", data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	email := &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Update - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
	}

	return s.SendEmail(email)
}

// SendContactNotification forwards a contact form submission to the
// store inbox
func (s *EmailService) SendContactNotification(senderName, senderEmail, subject, body string) error {
	data := ContactNotificationData{
		EmailTemplateData: GetBaseTemplateData(
			s.config.Email.FromName,
			s.config.Email.BaseURL,
			senderName,
			senderEmail,
		),
		SenderName:  senderName,
		SenderEmail: senderEmail,
		Subject:     subject,
		Body:        body,
	}

	htmlContent, err := s.renderTemplate("contact_received", data)
	if err != nil {
		return fmt.Errorf("failed to render contact notification template: %w", err)
	}

	email := &Email{
		To:          []string{s.config.Email.AdminEmail},
		Subject:     fmt.Sprintf("New contact message: %s", subject),
		HTMLContent: htmlContent,
		Type:        EmailTypeContactReceived,
	}

	return s.SendEmail(email)
}

// loadTemplates loads all email templates
func (s *EmailService) loadTemplates() error {
	templateDir := s.config.Email.TemplateDir
	if templateDir == "" {
		templateDir = "./templates/emails"
	}

	templates := []string{
		"welcome",
		"order_confirmation",
		"order_status_update",
		"contact_received",
	}

	for _, name := range templates {
		templatePath := filepath.Join(templateDir, name+".html")
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"template": name,
				"error":    err.Error(),
			}).Warn("Could not load email template, using fallback")
			s.templates[name] = s.createFallbackTemplate(name)
		} else {
			s.templates[name] = tmpl
		}
	}

	return nil
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// createFallbackTemplate creates a basic HTML template as fallback
func (s *EmailService) createFallbackTemplate(name string) *template.Template {
	basicTemplate := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        <p>This is a notification from {{.SiteName}}.</p>
        <p>Best regards,<br>{{.SiteName}} Team</p>
    </div>
</body>
</html>`

	tmpl, _ := template.New(name).Parse(basicTemplate)
	return tmpl
}
