// internal/domain/user/service_test.go
package user

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

	require.NoError(t, db.AutoMigrate(&User{}))

	cfg := &config.Config{}
	cfg.App.Environment = "test"
	cfg.App.Name = "Tienda"
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.JWT.Secret = "test-secret-key-at-least-32-chars-long"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = 24 * time.Hour
	return NewService(db, cfg), db
}

func registerRequest(email string) *RegisterRequest {
	return &RegisterRequest{
		Email:           email,
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		FirstName:       "Ana",
		LastName:        "Lopez",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(registerRequest("Ana@Example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Empty(t, resp.User.Password)
	// Emails are stored lowercased
	assert.Equal(t, "ana@example.com", resp.User.Email)

	login, err := svc.Login(&LoginRequest{Email: "ana@example.com", Password: "Sup3rSecret"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
	require.NotNil(t, login.User.LastLoginAt)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(registerRequest("ana@example.com"))
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	svc, _ := newTestService(t)

	req := registerRequest("ana@example.com")
	req.ConfirmPassword = "Different1"
	_, err := svc.Register(req)
	require.Error(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "Sup3rSecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(&LoginRequest{Email: "ana@example.com", Password: "WrongPass1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Deactivated accounts cannot log in either
	require.NoError(t, db.Model(&User{}).Where("email = ?", "ana@example.com").
		Update("is_active", false).Error)
	_, err = svc.Login(&LoginRequest{Email: "ana@example.com", Password: "Sup3rSecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshTokenIssuesNewAccessToken(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// Access tokens are not usable as refresh tokens
	_, err = svc.RefreshToken(resp.AccessToken)
	require.Error(t, err)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.JWT.RefreshTokenRotation = true

	resp, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.RefreshToken)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	err = svc.ChangePassword(resp.User.ID, "WrongPass1", "NewSecret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(resp.User.ID, "Sup3rSecret", "NewSecret1"))

	_, err = svc.Login(&LoginRequest{Email: "ana@example.com", Password: "Sup3rSecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(&LoginRequest{Email: "ana@example.com", Password: "NewSecret1"})
	require.NoError(t, err)
}

func TestUpdateProfilePartialFields(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(registerRequest("ana@example.com"))
	require.NoError(t, err)

	phone := "+34600000000"
	updated, err := svc.UpdateProfile(resp.User.ID, &UpdateProfileRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "+34600000000", updated.Phone)
	assert.Equal(t, "Ana", updated.FirstName)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetProfile(999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
