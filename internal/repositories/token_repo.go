package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
)

// TokenRepository persists token records in a shared expiring store.
//
// Records are invisible once their expiresAt has passed. MarkUsed and Revoke
// are atomic conditional transitions: exactly one caller observes success and
// the rest get models.ErrTokenUsed. Absent records yield models.ErrTokenNotFound.
// Backend faults are wrapped in models.ErrStoreUnavailable.
type TokenRepository interface {
	Create(ctx context.Context, record *models.TokenRecord) (string, error)
	GetByTokenID(ctx context.Context, tokenID string) (*models.TokenRecord, error)
	MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error
	Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	List(ctx context.Context) ([]models.ActiveToken, error)
	Key(tokenID string) string
	Ping(ctx context.Context) error
}
