package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenIDSuffixLen is the number of hex characters taken from a random UUID (36 bits)
const tokenIDSuffixLen = 9

// TokenManager signs and validates department access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for issuance and expiry checks
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// TTL returns the configured token lifetime
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// NewTokenID builds "<departmentId>_<unixMillis>_<random hex>"
func NewTokenID(departmentID int64, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:tokenIDSuffixLen]
	return fmt.Sprintf("%d_%d_%s", departmentID, at.UnixMilli(), suffix)
}

// GenerateDepartmentToken creates a signed token for a department with a fresh token id
func (tm *TokenManager) GenerateDepartmentToken(departmentID int64, departmentName string) (string, models.TokenPayload, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)

	payload := models.TokenPayload{
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		TokenID:        NewTokenID(departmentID, now),
		GeneratedAt:    now.UnixMilli(),
		ExpiresAt:      expiresAt.UnixMilli(),
		IsUsed:         false,
	}

	claims := &models.DepartmentTokenClaims{
		TokenPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        payload.TokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", models.TokenPayload{}, fmt.Errorf("failed to sign department token: %w", err)
	}

	return tokenString, payload, nil
}

// ValidateToken verifies signature and expiry and returns the embedded payload.
// Errors are models.ErrTokenExpired or models.ErrInvalidToken.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenPayload, error) {
	if tokenString == "" {
		return nil, models.ErrInvalidToken
	}

	claims := &models.DepartmentTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	payload := claims.TokenPayload
	if payload.TokenID == "" || payload.DepartmentID <= 0 || claims.ID != payload.TokenID {
		return nil, fmt.Errorf("%w: missing department claims", models.ErrInvalidToken)
	}

	// The record expiry carries millisecond precision; exp is truncated to seconds
	if payload.ExpiresAt <= tm.now().UnixMilli() {
		return nil, models.ErrTokenExpired
	}

	return &payload, nil
}
