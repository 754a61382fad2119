package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(secret string, lifetime time.Duration, at time.Time) *hmacJWTService {
	return newHMACJWTService([]byte(secret), lifetime, func() time.Time { return at })
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tokenLifetime := 60 * time.Minute
	userID := uuid.New()
	svc := newTestService(testSecret, tokenLifetime, fixedTime)

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "access", claims.TokenType)
	// Compare Unix timestamps to avoid timezone issues
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(tokenLifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	tokenLifetime := 60 * time.Minute
	userID := uuid.New()

	signed := func(t *testing.T, claims jwtCustomClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	registered := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(fixedTime),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(tokenLifetime)),
	}

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(testSecret, tokenLifetime, fixedTime)
				token, err := svc.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "within clock skew after expiry",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(testSecret, tokenLifetime, fixedTime).GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return newTestService(testSecret, tokenLifetime, fixedTime.Add(tokenLifetime+time.Minute)), token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(testSecret, tokenLifetime, fixedTime).GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return newTestService(testSecret, tokenLifetime, fixedTime.Add(tokenLifetime+time.Hour)), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			setupFunc: func(t *testing.T) (JWTService, string) {
				claims := jwtCustomClaims{UserID: userID, TokenType: "access", RegisteredClaims: registered}
				claims.NotBefore = jwt.NewNumericDate(fixedTime.Add(time.Hour))
				return newTestService(testSecret, tokenLifetime, fixedTime), signed(t, claims, testSecret)
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(testSecret, tokenLifetime, fixedTime).GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return newTestService(wrongSecret, tokenLifetime, fixedTime), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(*testing.T) (JWTService, string) {
				return newTestService(testSecret, tokenLifetime, fixedTime), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token type",
			setupFunc: func(t *testing.T) (JWTService, string) {
				claims := jwtCustomClaims{UserID: userID, TokenType: "refresh", RegisteredClaims: registered}
				return newTestService(testSecret, tokenLifetime, fixedTime), signed(t, claims, testSecret)
			},
			wantErr: ErrWrongTokenType,
		},
		{
			name: "missing user",
			setupFunc: func(t *testing.T) (JWTService, string) {
				claims := jwtCustomClaims{TokenType: "access", RegisteredClaims: registered}
				return newTestService(testSecret, tokenLifetime, fixedTime), signed(t, claims, testSecret)
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)
			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}
