package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

type RedisTokenRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisTokenRepository(client redis.UniversalClient, prefix string) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, prefix: prefix, now: time.Now}
}

// SetClock replaces the time source used to compute record TTLs
func (r *RedisTokenRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *RedisTokenRepository) Key(tokenID string) string {
	return r.prefix + tokenID
}

// Create stores the record with a TTL equal to the time left until expiresAt
func (r *RedisTokenRepository) Create(ctx context.Context, record *models.TokenRecord) (string, error) {
	key := r.Key(record.TokenID)

	ttl := record.TTL(r.now())
	if ttl <= 0 {
		return "", fmt.Errorf("%w: record already expired", models.ErrBadRequest)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode token record: %w", err)
	}

	created, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return "", mapRedisError(err)
	}
	if !created {
		return "", models.ErrConflict
	}

	return key, nil
}

func (r *RedisTokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.TokenRecord, error) {
	raw, err := r.client.Get(ctx, r.Key(tokenID)).Bytes()
	if err != nil {
		return nil, mapRedisError(err)
	}

	record, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	if record.TokenID != tokenID {
		return nil, models.ErrTokenNotFound
	}

	return record, nil
}

// MarkUsed flips isUsed under WATCH/MULTI/EXEC, keeping the key's TTL
func (r *RedisTokenRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	return r.transition(ctx, tokenID, func(record *models.TokenRecord) {
		record.IsUsed = true
		record.UsedAt = &usedAt
	})
}

// Revoke consumes an unused record without recording a use
func (r *RedisTokenRepository) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	return r.transition(ctx, tokenID, func(record *models.TokenRecord) {
		record.IsUsed = true
		record.RevokedAt = &revokedAt
	})
}

// transition applies mutate to an unconsumed record. A concurrent write to the
// watched key aborts EXEC; the competing writer can only have consumed it.
func (r *RedisTokenRepository) transition(ctx context.Context, tokenID string, mutate func(*models.TokenRecord)) error {
	key := r.Key(tokenID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}

		record, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		if record.TokenID != tokenID {
			return models.ErrTokenNotFound
		}
		if record.IsConsumed() {
			return models.ErrTokenUsed
		}

		mutate(record)

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode token record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return models.ErrTokenUsed
	case errors.Is(err, models.ErrTokenUsed),
		errors.Is(err, models.ErrTokenNotFound),
		errors.Is(err, models.ErrStoreUnavailable):
		return err
	default:
		return mapRedisError(err)
	}
}

// DeleteExpired walks the prefix with SCAN and removes records whose expiresAt is before now.
// Undecodable entries are left for the TTL to reclaim.
func (r *RedisTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	deleted := 0
	nowMs := now.UnixMilli()

	err := r.scan(ctx, func(key string, record *models.TokenRecord) error {
		if record == nil || record.ExpiresAt >= nowMs {
			return nil
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return mapRedisError(err)
		}
		deleted += int(n)
		return nil
	})

	return deleted, err
}

func (r *RedisTokenRepository) List(ctx context.Context) ([]models.ActiveToken, error) {
	tokens := make([]models.ActiveToken, 0)

	err := r.scan(ctx, func(key string, record *models.TokenRecord) error {
		if record != nil {
			tokens = append(tokens, models.ActiveToken{Key: key, TokenRecord: *record})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

func (r *RedisTokenRepository) Ping(ctx context.Context) error {
	return mapRedisError(r.client.Ping(ctx).Err())
}

// scan visits every key under the prefix in SCAN batches, fetching values with one pipeline per batch
func (r *RedisTokenRepository) scan(ctx context.Context, visit func(key string, record *models.TokenRecord) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, escapeGlob(r.prefix)+"*", scanBatchSize).Result()
		if err != nil {
			return mapRedisError(err)
		}

		if len(keys) > 0 {
			cmds, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, key := range keys {
					pipe.Get(ctx, key)
				}
				return nil
			})
			if err != nil && !errors.Is(err, redis.Nil) {
				return mapRedisError(err)
			}

			for i, cmd := range cmds {
				raw, err := cmd.(*redis.StringCmd).Bytes()
				if err != nil {
					// expired between SCAN and GET
					continue
				}
				record, err := decodeRecord(raw)
				if err != nil {
					record = nil
				}
				if err := visit(keys[i], record); err != nil {
					return err
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func decodeRecord(raw []byte) (*models.TokenRecord, error) {
	var record models.TokenRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: undecodable token record: %w", models.ErrStoreUnavailable, err)
	}
	return &record, nil
}

func mapRedisError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return models.ErrTokenNotFound
	}
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
