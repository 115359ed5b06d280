package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/deptaccess/internal/database/dbtest"
	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTokenRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	tdb, err := dbtest.SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tdb.Teardown(context.Background()) })

	newRepo := func(t *testing.T) *PostgresTokenRepository {
		require.NoError(t, tdb.CleanupTables(ctx))
		return NewPostgresTokenRepository(tdb.DB, testPrefix)
	}

	testTokenRepositoryContract(t, func(t *testing.T) TokenRepository {
		return newRepo(t)
	})

	t.Run("expired rows are invisible before cleanup", func(t *testing.T) {
		repo := newRepo(t)
		now := time.Now()
		repo.SetClock(func() time.Time { return now })

		record := newTestRecord("3_1_pgexpire0", now, time.Minute)
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)

		repo.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

		_, err = repo.GetByTokenID(ctx, record.TokenID)
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
		assert.ErrorIs(t, repo.MarkUsed(ctx, record.TokenID, now), models.ErrTokenNotFound)
		assert.ErrorIs(t, repo.Revoke(ctx, record.TokenID, now), models.ErrTokenNotFound)

		deleted, err := repo.DeleteExpired(ctx, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})
}
