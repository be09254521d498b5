package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsFor(aud, iss string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": int64(42),
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
		"nbf": time.Now().Unix(),
		"iss": iss,
		"aud": aud,
	}
}

func TestJWTAuthenticatorRoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("secret", "mail-wizard", "mail-wizard")

	token, err := a.GenerateToken(claimsFor("mail-wizard", "mail-wizard", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	parsed, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
}

func TestJWTAuthenticatorRejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", "mail-wizard", "mail-wizard")
	other := NewJWTAuthenticator("other-secret", "mail-wizard", "mail-wizard")

	tests := []struct {
		name   string
		issuer *JWTAuthenticator
		claims jwt.MapClaims
	}{
		{"expired", a, claimsFor("mail-wizard", "mail-wizard", time.Now().Add(-time.Hour))},
		{"wrong audience", a, claimsFor("someone-else", "mail-wizard", time.Now().Add(time.Hour))},
		{"wrong issuer", a, claimsFor("mail-wizard", "someone-else", time.Now().Add(time.Hour))},
		{"wrong secret", other, claimsFor("mail-wizard", "mail-wizard", time.Now().Add(time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issuer.GenerateToken(tt.claims)
			require.NoError(t, err)

			_, err = a.ValidateToken(token)
			assert.Error(t, err)
		})
	}
}
