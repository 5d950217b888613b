package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "entitlement-test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestGenerateToken_ParseRoundTrip(t *testing.T) {
	for _, userID := range []int64{1, 42, 9223372036854775807} {
		token, err := GenerateToken(userID, testSecret, 24)
		require.NoError(t, err)

		claims, err := ParseToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	}
}

func TestGenerateToken_Expiry(t *testing.T) {
	before := time.Now().Truncate(time.Second)
	token, err := GenerateToken(7, testSecret, 2)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	expires := claims.ExpiresAt.Time
	assert.False(t, expires.Before(before.Add(2*time.Hour)))
	assert.True(t, expires.Before(time.Now().Add(2*time.Hour+time.Second)))
	assert.False(t, claims.IssuedAt.After(time.Now()))
}

func TestParseToken_Rejections(t *testing.T) {
	valid, err := GenerateToken(7, testSecret, 24)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	expired := signed(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(past),
		},
	})
	unsigned := signed(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	hs512 := signed(t, jwt.SigningMethodHS512, []byte(testSecret), Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	tests := []struct {
		name   string
		token  string
		secret string
		want   error
	}{
		{"wrong secret", valid, "other-secret", ErrInvalidToken},
		{"garbage", "not-a-jwt", testSecret, ErrInvalidToken},
		{"empty", "", testSecret, ErrInvalidToken},
		{"expired", expired, testSecret, ErrExpiredToken},
		{"alg none", unsigned, testSecret, ErrInvalidToken},
		{"unexpected hmac variant", hs512, testSecret, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}
}
