package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaddi6894/commerce/internal/domain"
)

func setupUserTest(t *testing.T) (UserUseCase, *mockUserRepository, *mockSessionRepository) {
	t.Helper()
	userRepo := newMockUserRepository()
	sessionRepo := newMockSessionRepository()
	uc := NewUserUseCase(userRepo, sessionRepo, time.Hour, testLogger())
	return uc, userRepo, sessionRepo
}

func TestRegisterUser(t *testing.T) {
	uc, _, _ := setupUserTest(t)

	result, err := uc.RegisterUser("John Doe", "John@Example.com", "Password123")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "john@example.com", result.User.Email, "email is normalized to lower case")
	assert.Equal(t, domain.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.Token)
	assert.NotEqual(t, "Password123", result.User.PasswordHash)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	uc, _, _ := setupUserTest(t)

	_, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	_, err = uc.RegisterUser("Jane", "john@example.com", "Password456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegisterUser_Validation(t *testing.T) {
	uc, _, _ := setupUserTest(t)

	t.Run("empty name", func(t *testing.T) {
		_, err := uc.RegisterUser("  ", "a@b.com", "Password123")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := uc.RegisterUser("John", "not-an-email", "Password123")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email")
	})

	t.Run("short password", func(t *testing.T) {
		_, err := uc.RegisterUser("John", "a@b.com", "123")
		require.Error(t, err)
	})
}

func TestAuthenticateUser(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	_, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		result, err := uc.AuthenticateUser("john@example.com", "Password123")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := uc.AuthenticateUser("john@example.com", "wrongpass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email reported identically", func(t *testing.T) {
		_, err := uc.AuthenticateUser("nobody@example.com", "Password123")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthorize(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	result, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	t.Run("valid token resolves session", func(t *testing.T) {
		session, err := uc.Authorize(result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, session.UserID)
		assert.Equal(t, domain.RoleUser, session.Role)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := uc.Authorize("deadbeef")
		assert.Error(t, err)
	})

	t.Run("empty token rejected", func(t *testing.T) {
		_, err := uc.Authorize("")
		assert.Error(t, err)
	})
}

func TestLogout(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	result, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	_, err = uc.Authorize(result.Token)
	require.NoError(t, err)

	require.NoError(t, uc.Logout(result.Token))

	_, err = uc.Authorize(result.Token)
	assert.Error(t, err, "a revoked token must not authorize")

	t.Run("empty token rejected", func(t *testing.T) {
		assert.Error(t, uc.Logout(""))
	})
}

func TestUpdateProfile_ReissuesToken(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	registered, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	updated, err := uc.UpdateProfile(registered.User.ID, "Johnny", "", "")

	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.User.Name)
	assert.Equal(t, "john@example.com", updated.User.Email, "blank email keeps the current one")
	assert.NotEmpty(t, updated.Token)
	assert.NotEqual(t, registered.Token, updated.Token)
}

func TestAddresses(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	registered, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)
	userID := registered.User.ID

	home := domain.Address{Name: "Home", Street: "1 Main St", City: "Springfield", Country: "US", PostalCode: "12345"}
	office := domain.Address{Name: "Office", Street: "9 Work Ave", City: "Springfield", Country: "US", PostalCode: "12399"}

	addresses, err := uc.AddAddress(userID, home)
	require.NoError(t, err)
	require.Len(t, addresses, 1)

	addresses, err = uc.AddAddress(userID, office)
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	t.Run("update in place", func(t *testing.T) {
		home.Street = "2 Main St"
		addresses, err := uc.UpdateAddress(userID, 0, home)
		require.NoError(t, err)
		assert.Equal(t, "2 Main St", addresses[0].Street)
	})

	t.Run("out of range index rejected", func(t *testing.T) {
		_, err := uc.UpdateAddress(userID, 5, home)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid address index")
	})

	t.Run("delete collapses the list", func(t *testing.T) {
		addresses, err := uc.DeleteAddress(userID, 0)
		require.NoError(t, err)
		require.Len(t, addresses, 1)
		assert.Equal(t, "Office", addresses[0].Name)
	})
}

func TestSettings(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	registered, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	updated, err := uc.UpdateSettings(registered.User.ID, domain.Settings{
		EmailNotifications: true,
		OrderUpdates:       true,
		Theme:              "dark",
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Theme)

	settings, err := uc.GetSettings(registered.User.ID)
	require.NoError(t, err)
	assert.True(t, settings.OrderUpdates)
}

func TestUpdateUserRole(t *testing.T) {
	uc, _, _ := setupUserTest(t)
	registered, err := uc.RegisterUser("John", "john@example.com", "Password123")
	require.NoError(t, err)

	user, err := uc.UpdateUserRole(registered.User.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := uc.UpdateUserRole(registered.User.ID, "superuser")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid")
	})
}
