package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every token this service signs
const Issuer = "gdg-support"

// User represents an authenticated user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ExtractToken extracts the JWT token from an Authorization header value.
// Supports "Bearer <token>" format.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("empty authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}

	return token, nil
}

// LocalJWTAuth verifies HMAC-signed access tokens issued by the community portal
type LocalJWTAuth struct {
	SecretKey         []byte
	AccessTokenExpiry time.Duration // Default: 15 minutes
}

// NewLocalJWTAuth creates a new local JWT auth instance
func NewLocalJWTAuth(secretKey string, accessExpiry time.Duration) (*LocalJWTAuth, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}

	if accessExpiry == 0 {
		accessExpiry = 15 * time.Minute
	}

	return &LocalJWTAuth{
		SecretKey:         []byte(secretKey),
		AccessTokenExpiry: accessExpiry,
	}, nil
}

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived access token. Used by the admin CLI and tests.
func (a *LocalJWTAuth) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.SecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// VerifyAccessToken verifies an access token and returns the user
func (a *LocalJWTAuth) VerifyAccessToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.SecretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		if claims.UserID == "" {
			return nil, errors.New("token has no subject")
		}
		return &User{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		}, nil
	}

	return nil, errors.New("invalid token")
}
