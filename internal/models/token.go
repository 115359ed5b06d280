package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HiddenToken replaces the signed token in admin listings
const HiddenToken = "***HIDDEN***"

// TokenPayload is the department data embedded in a signed access token
type TokenPayload struct {
	DepartmentID   int64  `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	TokenID        string `json:"tokenId"`
	GeneratedAt    int64  `json:"generatedAt"` // unix milliseconds
	ExpiresAt      int64  `json:"expiresAt"`   // unix milliseconds
	IsUsed         bool   `json:"isUsed"`
}

// ExpiresAtTime returns ExpiresAt as a time.Time
func (p TokenPayload) ExpiresAtTime() time.Time {
	return time.UnixMilli(p.ExpiresAt)
}

// DepartmentTokenClaims are the JWT claims of a department access token.
// RegisteredClaims.ID carries the token id and ExpiresAt mirrors the payload expiry.
type DepartmentTokenClaims struct {
	TokenPayload
	jwt.RegisteredClaims
}

// TokenRecord is the server-side state of one issued token
type TokenRecord struct {
	DepartmentID   int64      `json:"departmentId"`
	DepartmentName string     `json:"departmentName"`
	TokenID        string     `json:"tokenId"`
	GeneratedAt    int64      `json:"generatedAt"`
	ExpiresAt      int64      `json:"expiresAt"`
	IsUsed         bool       `json:"isUsed"`
	Token          string     `json:"token"`
	CreatedAt      time.Time  `json:"createdAt"`
	UsedAt         *time.Time `json:"usedAt"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
}

// IsConsumed reports whether the record can no longer be used
func (r *TokenRecord) IsConsumed() bool {
	return r.IsUsed || r.UsedAt != nil
}

// IsExpiredAt reports whether the stored expiry is strictly before now
func (r *TokenRecord) IsExpiredAt(now time.Time) bool {
	return r.ExpiresAt < now.UnixMilli()
}

// TTL returns the remaining store lifetime of the record
func (r *TokenRecord) TTL(now time.Time) time.Duration {
	ttl := time.UnixMilli(r.ExpiresAt).Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Payload returns the department payload stored with the record
func (r *TokenRecord) Payload() TokenPayload {
	return TokenPayload{
		DepartmentID:   r.DepartmentID,
		DepartmentName: r.DepartmentName,
		TokenID:        r.TokenID,
		GeneratedAt:    r.GeneratedAt,
		ExpiresAt:      r.ExpiresAt,
		IsUsed:         r.IsUsed,
	}
}

// TokenData is returned on issuance
type TokenData struct {
	Token    string
	Payload  TokenPayload
	StoreKey string
}

// ActiveToken is a stored record as shown to administrators
type ActiveToken struct {
	Key string `json:"key"`
	TokenRecord
}

// Reason discriminates negative verification outcomes
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonInvalidFormat Reason = "invalid_format"
	ReasonExpired       Reason = "expired"
	ReasonNotFound      Reason = "not_found"
	ReasonAlreadyUsed   Reason = "already_used"
)

// Human-readable messages surfaced to callers
const (
	MsgInvalidFormat = "Invalid token format"
	MsgExpired       = "Token has expired"
	MsgNotFound      = "Token not found or expired"
	MsgAlreadyUsed   = "Token has already been used"
)

// Message returns the caller-facing message for the reason
func (r Reason) Message() string {
	switch r {
	case ReasonInvalidFormat:
		return MsgInvalidFormat
	case ReasonExpired:
		return MsgExpired
	case ReasonNotFound:
		return MsgNotFound
	case ReasonAlreadyUsed:
		return MsgAlreadyUsed
	default:
		return ""
	}
}

// VerifyResult is the outcome of VerifyAndConsume
type VerifyResult struct {
	Valid   bool
	Payload *TokenPayload
	Reason  Reason
	Error   string
}

// StatusResult is the outcome of CheckStatus
type StatusResult struct {
	Valid   bool
	IsUsed  bool
	Payload *TokenPayload
	Reason  Reason
	Error   string
}

// RejectedVerify builds a negative VerifyResult
func RejectedVerify(reason Reason) VerifyResult {
	return VerifyResult{Valid: false, Reason: reason, Error: reason.Message()}
}

// RejectedStatus builds a negative StatusResult
func RejectedStatus(reason Reason) StatusResult {
	return StatusResult{Valid: false, Reason: reason, Error: reason.Message()}
}
