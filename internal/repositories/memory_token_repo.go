package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
)

// MemoryTokenRepository keeps records in process memory. It is only suitable
// for a single instance and for tests.
type MemoryTokenRepository struct {
	mu      sync.Mutex
	records map[string]models.TokenRecord
	prefix  string
	now     func() time.Time
}

func NewMemoryTokenRepository(prefix string) *MemoryTokenRepository {
	return &MemoryTokenRepository{
		records: make(map[string]models.TokenRecord),
		prefix:  prefix,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry
func (r *MemoryTokenRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *MemoryTokenRepository) Key(tokenID string) string {
	return r.prefix + tokenID
}

func (r *MemoryTokenRepository) Create(ctx context.Context, record *models.TokenRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if record.TTL(now) <= 0 {
		return "", fmt.Errorf("%w: record already expired", models.ErrBadRequest)
	}

	key := r.Key(record.TokenID)
	if existing, ok := r.records[key]; ok && r.live(existing, now) {
		return "", models.ErrConflict
	}

	r.records[key] = *record
	return key, nil
}

func (r *MemoryTokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[r.Key(tokenID)]
	if !ok || !r.live(record, r.now()) {
		return nil, models.ErrTokenNotFound
	}

	return &record, nil
}

func (r *MemoryTokenRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	return r.transition(tokenID, func(record *models.TokenRecord) {
		record.IsUsed = true
		record.UsedAt = &usedAt
	})
}

func (r *MemoryTokenRepository) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	return r.transition(tokenID, func(record *models.TokenRecord) {
		record.IsUsed = true
		record.RevokedAt = &revokedAt
	})
}

func (r *MemoryTokenRepository) transition(tokenID string, mutate func(*models.TokenRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.Key(tokenID)
	record, ok := r.records[key]
	if !ok || !r.live(record, r.now()) {
		return models.ErrTokenNotFound
	}
	if record.IsConsumed() {
		return models.ErrTokenUsed
	}

	mutate(&record)
	r.records[key] = record
	return nil
}

func (r *MemoryTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for key, record := range r.records {
		if record.IsExpiredAt(now) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryTokenRepository) List(ctx context.Context) ([]models.ActiveToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	tokens := make([]models.ActiveToken, 0, len(r.records))
	for key, record := range r.records {
		if r.live(record, now) {
			tokens = append(tokens, models.ActiveToken{Key: key, TokenRecord: record})
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].GeneratedAt < tokens[j].GeneratedAt
	})
	return tokens, nil
}

func (r *MemoryTokenRepository) Ping(ctx context.Context) error {
	return nil
}

// live mirrors key expiry in a TTL store: a record disappears at expiresAt
func (r *MemoryTokenRepository) live(record models.TokenRecord, now time.Time) bool {
	return record.ExpiresAt > now.UnixMilli()
}
