package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-secret-123", "boarding-house", time.Hour)

	token, err := svc.GenerateToken("frontdesk", RoleStaff)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "frontdesk", claims.Subject)
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, "boarding-house", claims.Issuer)
}

func TestGenerateToken_Rejects(t *testing.T) {
	svc := New("secret", "", time.Hour)

	_, err := svc.GenerateToken("", RoleAdmin)
	assert.Error(t, err)

	_, err = svc.GenerateToken("alice", "landlord")
	assert.Error(t, err)
}

func TestValidateToken_Invalid(t *testing.T) {
	svc := New("secret", "boarding-house", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		token, err := New("other-secret", "boarding-house", time.Hour).GenerateToken("alice", RoleAdmin)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := New("secret", "boarding-house", -time.Minute).GenerateToken("alice", RoleAdmin)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := New("secret", "elsewhere", time.Hour).GenerateToken("alice", RoleAdmin)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{Role: "landlord", RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "boarding-house",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-jwt-here")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
