package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by every access token. ImpersonatorID is set only on tokens
// minted through the impersonation endpoint and names the superadmin acting
// behind the token.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	GlobalRole     string `json:"global_role,omitempty"`
	ImpersonatorID string `json:"impersonator_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates access tokens
type TokenManager struct {
	secret string
	issuer string
}

// NewTokenManager creates a token manager
func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "staffdesk"
	}
	return &TokenManager{secret: secret, issuer: issuer}
}

// GenerateToken mints an access token for a user
func (tm *TokenManager) GenerateToken(userID, email, globalRole string, expiresIn time.Duration) (string, error) {
	return tm.generate(userID, email, globalRole, "", expiresIn)
}

// GenerateImpersonationToken mints a short-lived token acting as the target
// user while recording who is really behind it.
func (tm *TokenManager) GenerateImpersonationToken(targetID, targetEmail, targetRole, impersonatorID string, expiresIn time.Duration) (string, error) {
	if impersonatorID == "" {
		return "", fmt.Errorf("impersonator id required")
	}
	return tm.generate(targetID, targetEmail, targetRole, impersonatorID, expiresIn)
}

func (tm *TokenManager) generate(userID, email, globalRole, impersonatorID string, expiresIn time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id required")
	}
	now := time.Now()
	claims := Claims{
		UserID:         userID,
		Email:          email,
		GlobalRole:     globalRole,
		ImpersonatorID: impersonatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

// ValidateToken parses and verifies an access token
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractToken pulls the bearer token out of an Authorization header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
