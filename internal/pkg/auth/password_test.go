// internal/pkg/auth/password_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/tienda-backend/internal/config"
)

func newPasswordManager() *PasswordManager {
	cfg := &config.Config{}
	cfg.Security.BcryptCost = bcrypt.MinCost
	return NewPasswordManager(cfg)
}

func TestHashAndVerifyPassword(t *testing.T) {
	pm := newPasswordManager()

	hash, err := pm.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	require.NoError(t, pm.VerifyPassword("Sup3rSecret", hash))
	require.Error(t, pm.VerifyPassword("WrongPass1", hash))
}

func TestHashPasswordRejectsWeakPasswords(t *testing.T) {
	pm := newPasswordManager()

	cases := []string{
		"Ab1",            // too short
		"alllowercase1",  // no uppercase
		"ALLUPPERCASE1",  // no lowercase
		"NoNumbersHere",  // no digit
	}
	for _, password := range cases {
		_, err := pm.HashPassword(password)
		assert.Errorf(t, err, "expected rejection for %q", password)
	}
}

func TestValidatePasswordLengthBounds(t *testing.T) {
	pm := newPasswordManager()

	require.NoError(t, pm.ValidatePassword("Abcdefg1"))

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	long[0] = 'A'
	long[1] = '1'
	require.Error(t, pm.ValidatePassword(string(long)))
}
