// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/models"
)

// Issuer is the iss claim of every gateway token.
const Issuer = "gathermap"

// ErrTokenRevoked is returned for tokens invalidated by logout.
var ErrTokenRevoked = errors.New("token revoked")

// Claims represents JWT claims
type Claims struct {
	MtIdx models.Idx `json:"mt_idx"`
	MtID  string     `json:"mt_id"`
	Name  string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration

	// revoked holds the jti of logged-out tokens until they would have expired.
	revoked *cache.Cache[struct{}]
}

// NewJWTManager creates a new JWT token manager with the configured secret and timeout.
//
// The manager signs with HMAC-SHA256. The secret is kept as []byte.
//
// Returns an error if JWT_SECRET is empty; length is checked by config validation.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &JWTManager{
		secret:  []byte(secret),
		timeout: cfg.SessionTimeout,
		revoked: cache.New[struct{}](cfg.SessionTimeout),
	}, nil
}

// Timeout returns the token lifetime.
func (m *JWTManager) Timeout() time.Duration {
	return m.timeout
}

// GenerateToken creates a signed token for a member the backend has
// authenticated, and returns it with its expiry.
//
// Token Claims:
//   - mt_idx, mt_id, name: member identity
//   - sub: mt_idx as a string
//   - iss: "gathermap"
//   - jti: random UUID, used for revocation
//   - exp/iat/nbf: now + session timeout, now, now
func (m *JWTManager) GenerateToken(member *models.Member) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.timeout)

	claims := &Claims{
		MtIdx: member.MtIdx,
		MtID:  member.MtID,
		Name:  member.DisplayName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   member.MtIdx.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// ValidateToken validates a JWT token and extracts the member claims.
//
// Validation Steps:
//  1. Parse token structure and extract claims
//  2. Verify the signing algorithm is HMAC (prevents algorithm confusion attacks)
//  3. Verify signature, exp and nbf
//  4. Verify issuer and a non-zero mt_idx
//  5. Reject revoked jti values
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.MtIdx <= 0 {
		return nil, fmt.Errorf("invalid token claims: missing mt_idx")
	}
	if claims.ID != "" {
		if _, revoked := m.revoked.Get(claims.ID); revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke rejects the token's jti for the rest of its lifetime.
func (m *JWTManager) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	m.revoked.SetWithTTL(claims.ID, struct{}{}, ttl)
}

// Close stops the revocation list sweeper.
func (m *JWTManager) Close() {
	m.revoked.Close()
}

func isExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
