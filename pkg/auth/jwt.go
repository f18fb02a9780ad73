package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token used for the wrong purpose")
)

type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	SecretKey       []byte
	Duration        time.Duration
	RefreshDuration time.Duration
}

func NewJWTManager(secretKey string, duration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		SecretKey:       []byte(secretKey),
		Duration:        duration,
		RefreshDuration: refreshDuration,
	}
}

func (j *JWTManager) GenerateToken(userID, username, role string) (string, error) {
	return j.sign(userID, username, role, TokenTypeAccess, j.Duration)
}

func (j *JWTManager) GenerateRefreshToken(userID, username, role string) (string, error) {
	return j.sign(userID, username, role, TokenTypeRefresh, j.RefreshDuration)
}

func (j *JWTManager) sign(userID, username, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.SecretKey)
}

// ValidateToken checks an access token.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken checks a refresh token.
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh)
}

func (j *JWTManager) validate(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.SecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}

// PeekClaims decodes a token without verifying its signature. The console
// uses it to learn the expiry of the token it holds; it never authorizes
// anything on the result.
func PeekClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of an unverified token, if it has one.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, err := PeekClaims(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
