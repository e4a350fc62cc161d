package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fieldops/internal/model"
)

func TestAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("s3cret", 42, model.RoleManager, 5)
	require.NoError(t, err)

	tok, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "manager", claims["role"])
	assert.Equal(t, "access", claims["typ"])
	assert.Equal(t, at.Exp.Unix(), int64(claims["exp"].(float64)))
}

func TestAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken("a", 1, model.RoleStaff, 5)
	require.NoError(t, err)
	_, err = jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) { return []byte("b"), nil })
	assert.Error(t, err)
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)

	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, other.Raw)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "hunter22"))
	assert.False(t, VerifyPassword(h, "hunter23"))
}
