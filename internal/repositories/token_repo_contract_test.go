package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "dept_token:"

func newTestRecord(tokenID string, now time.Time, ttl time.Duration) *models.TokenRecord {
	created := time.UnixMilli(now.UnixMilli()).UTC()
	return &models.TokenRecord{
		DepartmentID:   3,
		DepartmentName: "Procurement",
		TokenID:        tokenID,
		GeneratedAt:    now.UnixMilli(),
		ExpiresAt:      now.Add(ttl).UnixMilli(),
		Token:          "signed." + tokenID,
		CreatedAt:      created,
	}
}

// testTokenRepositoryContract runs the behaviour every backend must share
func testTokenRepositoryContract(t *testing.T, newRepo func(t *testing.T) TokenRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_aaaaaaaaa", time.Now(), time.Hour)

		key, err := repo.Create(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, testPrefix+record.TokenID, key)
		assert.Equal(t, key, repo.Key(record.TokenID))

		got, err := repo.GetByTokenID(ctx, record.TokenID)
		require.NoError(t, err)
		assert.Equal(t, record.DepartmentID, got.DepartmentID)
		assert.Equal(t, record.DepartmentName, got.DepartmentName)
		assert.Equal(t, record.ExpiresAt, got.ExpiresAt)
		assert.Equal(t, record.Token, got.Token)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
		assert.False(t, got.IsUsed)
		assert.Nil(t, got.UsedAt)
		assert.Nil(t, got.RevokedAt)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_bbbbbbbbb", time.Now(), time.Hour)

		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		_, err = repo.Create(ctx, record)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByTokenID(ctx, "3_1_missing00")
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
	})

	t.Run("mark used succeeds once", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_ccccccccc", time.Now(), time.Hour)
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		usedAt := time.UnixMilli(time.Now().UnixMilli()).UTC()
		require.NoError(t, repo.MarkUsed(ctx, record.TokenID, usedAt))
		assert.ErrorIs(t, repo.MarkUsed(ctx, record.TokenID, usedAt), models.ErrTokenUsed)

		got, err := repo.GetByTokenID(ctx, record.TokenID)
		require.NoError(t, err)
		assert.True(t, got.IsUsed)
		require.NotNil(t, got.UsedAt)
		assert.True(t, usedAt.Equal(*got.UsedAt))
		assert.Nil(t, got.RevokedAt)
	})

	t.Run("mark used on missing record", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.MarkUsed(ctx, "3_1_missing00", time.Now())
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
	})

	t.Run("revoke unused record", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_ddddddddd", time.Now(), time.Hour)
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		require.NoError(t, repo.Revoke(ctx, record.TokenID, time.Now()))
		assert.ErrorIs(t, repo.Revoke(ctx, record.TokenID, time.Now()), models.ErrTokenUsed)
		assert.ErrorIs(t, repo.MarkUsed(ctx, record.TokenID, time.Now()), models.ErrTokenUsed)

		got, err := repo.GetByTokenID(ctx, record.TokenID)
		require.NoError(t, err)
		assert.True(t, got.IsUsed)
		assert.NotNil(t, got.RevokedAt)
		assert.Nil(t, got.UsedAt)
	})

	t.Run("revoke consumed record keeps usedAt", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_eeeeeeeee", time.Now(), time.Hour)
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		usedAt := time.UnixMilli(time.Now().UnixMilli()).UTC()
		require.NoError(t, repo.MarkUsed(ctx, record.TokenID, usedAt))
		assert.ErrorIs(t, repo.Revoke(ctx, record.TokenID, time.Now()), models.ErrTokenUsed)

		got, err := repo.GetByTokenID(ctx, record.TokenID)
		require.NoError(t, err)
		require.NotNil(t, got.UsedAt)
		assert.True(t, usedAt.Equal(*got.UsedAt))
		assert.Nil(t, got.RevokedAt)
	})

	t.Run("concurrent mark used has a single winner", func(t *testing.T) {
		repo := newRepo(t)
		record := newTestRecord("3_1_fffffffff", time.Now(), time.Hour)
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		const workers = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  int
			lost     int
			failures []error
		)
		start := make(chan struct{})

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := repo.MarkUsed(ctx, record.TokenID, time.Now())

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners++
				case errors.Is(err, models.ErrTokenUsed):
					lost++
				default:
					failures = append(failures, err)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Empty(t, failures)
		assert.Equal(t, 1, winners)
		assert.Equal(t, workers-1, lost)
	})

	t.Run("list returns every live record with its key", func(t *testing.T) {
		repo := newRepo(t)
		now := time.Now()
		for i := 0; i < 3; i++ {
			_, err := repo.Create(ctx, newTestRecord(fmt.Sprintf("3_%d_list00000", i), now.Add(time.Duration(i)*time.Millisecond), time.Hour))
			require.NoError(t, err)
		}

		tokens, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tokens, 3)
		for _, token := range tokens {
			assert.Equal(t, repo.Key(token.TokenID), token.Key)
			assert.NotEmpty(t, token.Token)
		}
	})

	t.Run("delete expired removes only records past expiresAt", func(t *testing.T) {
		repo := newRepo(t)
		now := time.Now()

		_, err := repo.Create(ctx, newTestRecord("3_1_short0000", now, time.Minute))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newTestRecord("3_1_long00000", now, 3*time.Hour))
		require.NoError(t, err)

		deleted, err := repo.DeleteExpired(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)

		_, err = repo.GetByTokenID(ctx, "3_1_long00000")
		assert.NoError(t, err)

		deleted, err = repo.DeleteExpired(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}
