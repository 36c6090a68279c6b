// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licensehub/license-backend/internal/apperrors"
	"github.com/licensehub/license-backend/internal/config"
	"github.com/licensehub/license-backend/internal/models"
	"github.com/licensehub/license-backend/internal/utils"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(setupTestDB(t), config.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenTTL: 1,
	})
}

func TestRegisterIssuesToken(t *testing.T) {
	auth := newAuthService(t)

	resp, err := auth.Register(&RegisterRequest{
		Username: "newuser",
		Email:    "newuser@example.com",
		Password: "TestPass123!",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, models.RoleMember, resp.User.Role)
	assert.Equal(t, models.UserStatusActive, resp.User.Status)
	assert.NotEmpty(t, resp.Token)

	claims, err := utils.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "newuser", claims.Username)
	assert.Equal(t, string(models.RoleMember), claims.Role)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	auth := newAuthService(t)

	req := &RegisterRequest{
		Username: "taken",
		Email:    "taken@example.com",
		Password: "TestPass123!",
	}
	_, err := auth.Register(req)
	require.NoError(t, err)

	_, err = auth.Register(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Same email under a different username is still a duplicate.
	_, err = auth.Register(&RegisterRequest{
		Username: "someoneelse",
		Email:    "taken@example.com",
		Password: "TestPass123!",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRegisterValidatesInput(t *testing.T) {
	auth := newAuthService(t)

	_, err := auth.Register(&RegisterRequest{
		Username: "ok",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	auth := newAuthService(t)
	user := createMember(t, auth.db, "member")

	resp, err := auth.Login(&LoginRequest{Username: "member", Password: "TestPass123!"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

// Wrong password and unknown username produce the same message so a
// caller cannot probe which usernames exist.
func TestLoginInvalidCredentials(t *testing.T) {
	auth := newAuthService(t)
	createMember(t, auth.db, "member")

	_, err := auth.Login(&LoginRequest{Username: "member", Password: "WrongPass123!"})
	require.Error(t, err)
	assert.EqualError(t, err, "invalid credentials")

	_, err = auth.Login(&LoginRequest{Username: "nobody", Password: "TestPass123!"})
	require.Error(t, err)
	assert.EqualError(t, err, "invalid credentials")
}

func TestLoginSuspendedAccount(t *testing.T) {
	auth := newAuthService(t)
	user := createMember(t, auth.db, "member")
	require.NoError(t, auth.db.Model(user).Update("status", models.UserStatusSuspended).Error)

	_, err := auth.Login(&LoginRequest{Username: "member", Password: "TestPass123!"})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestGetUser(t *testing.T) {
	auth := newAuthService(t)
	user := createOwner(t, auth.db, "owner")

	found, err := auth.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)

	_, err = auth.GetUser(uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
