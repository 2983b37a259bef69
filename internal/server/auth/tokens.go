// Package auth issues and verifies the signed access and refresh tokens and
// generates numeric recovery codes.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/common"
	"github.com/dmitrijs2005/paydesk/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Verification failures. All of them match common.ErrInvalidToken.
var (
	ErrTokenMalformed        = fmt.Errorf("%w: malformed", common.ErrInvalidToken)
	ErrTokenExpired          = fmt.Errorf("%w: expired", common.ErrInvalidToken)
	ErrTokenSignatureInvalid = fmt.Errorf("%w: signature invalid", common.ErrInvalidToken)
	ErrTokenWrongType        = fmt.Errorf("%w: wrong token type", common.ErrInvalidToken)
)

// Claims are the application claims embedded in both token kinds.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService signs and verifies HS256 tokens with a server-held secret.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      timex.Clock
}

// NewTokenService returns a TokenService. A nil clock means the wall clock.
func NewTokenService(secret []byte, accessTTL, refreshTTL time.Duration, clock timex.Clock) *TokenService {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &TokenService{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, clock: clock}
}

// RefreshTTL is the lifetime of refresh tokens, also used for their stored expiry.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateTokens issues an access/refresh pair for the given identity.
func (s *TokenService) GenerateTokens(userID, email, role string) (*TokenPair, error) {
	access, err := s.sign(userID, email, role, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, email, role, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken parses an access token and returns its claims.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, TypeAccess)
}

// VerifyRefreshToken parses a refresh token and returns its claims.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, TypeRefresh)
}

func (s *TokenService) sign(userID, email, role, typ string, ttl time.Duration) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *TokenService) verify(tokenString, typ string) (*Claims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Type != typ {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

// classify maps jwt errors onto the package's verification errors.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

// GenerateResetCode returns a uniformly drawn 6-digit code in [100000, 999999].
func GenerateResetCode() (string, error) {
	var b strings.Builder
	b.Grow(6)

	for i := 0; i < 6; i++ {
		lo, span := int64(0), int64(10)
		if i == 0 {
			lo, span = 1, 9
		}
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + lo + n.Int64()))
	}

	return b.String(), nil
}
