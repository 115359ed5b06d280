package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/BradenHooton/deptaccess/internal/database"
	"github.com/BradenHooton/deptaccess/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTokenRepository stores records in the dept_tokens table. Rows past
// expires_at_ms are filtered on read and removed by DeleteExpired.
type PostgresTokenRepository struct {
	pool   *pgxpool.Pool
	prefix string
	now    func() time.Time
}

func NewPostgresTokenRepository(db *database.DB, prefix string) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: db.Pool, prefix: prefix, now: time.Now}
}

// SetClock replaces the time source used for expiry filtering
func (r *PostgresTokenRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *PostgresTokenRepository) Key(tokenID string) string {
	return r.prefix + tokenID
}

func (r *PostgresTokenRepository) Create(ctx context.Context, record *models.TokenRecord) (string, error) {
	query := `
		INSERT INTO dept_tokens (token_id, store_key, department_id, department_name,
			generated_at_ms, expires_at_ms, is_used, token, created_at, used_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	key := r.Key(record.TokenID)
	_, err := r.pool.Exec(ctx, query,
		record.TokenID,
		key,
		record.DepartmentID,
		record.DepartmentName,
		record.GeneratedAt,
		record.ExpiresAt,
		record.IsUsed,
		record.Token,
		record.CreatedAt,
		record.UsedAt,
		record.RevokedAt,
	)
	if err != nil {
		return "", database.MapPostgresError(err)
	}

	return key, nil
}

func (r *PostgresTokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.TokenRecord, error) {
	query := `
		SELECT department_id, department_name, token_id, generated_at_ms, expires_at_ms,
			is_used, token, created_at, used_at, revoked_at
		FROM dept_tokens
		WHERE token_id = $1 AND expires_at_ms > $2
	`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, tokenID, r.now().UnixMilli()))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return record, nil
}

// MarkUsed is a single conditional UPDATE; only one concurrent caller matches is_used = FALSE
func (r *PostgresTokenRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	query := `
		UPDATE dept_tokens SET is_used = TRUE, used_at = $2
		WHERE token_id = $1 AND is_used = FALSE AND expires_at_ms > $3
		RETURNING token_id
	`
	return r.transition(ctx, query, tokenID, usedAt)
}

func (r *PostgresTokenRepository) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	query := `
		UPDATE dept_tokens SET is_used = TRUE, revoked_at = $2
		WHERE token_id = $1 AND is_used = FALSE AND expires_at_ms > $3
		RETURNING token_id
	`
	return r.transition(ctx, query, tokenID, revokedAt)
}

func (r *PostgresTokenRepository) transition(ctx context.Context, query, tokenID string, at time.Time) error {
	nowMs := r.now().UnixMilli()

	var updated string
	err := r.pool.QueryRow(ctx, query, tokenID, at, nowMs).Scan(&updated)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.MapPostgresError(err)
	}

	// Nothing matched: tell an absent record from a consumed one
	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM dept_tokens WHERE token_id = $1 AND expires_at_ms > $2)`,
		tokenID, nowMs,
	).Scan(&exists)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if exists {
		return models.ErrTokenUsed
	}
	return models.ErrTokenNotFound
}

func (r *PostgresTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM dept_tokens WHERE expires_at_ms < $1`, now.UnixMilli())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return int(result.RowsAffected()), nil
}

func (r *PostgresTokenRepository) List(ctx context.Context) ([]models.ActiveToken, error) {
	query := `
		SELECT department_id, department_name, token_id, generated_at_ms, expires_at_ms,
			is_used, token, created_at, used_at, revoked_at
		FROM dept_tokens
		WHERE expires_at_ms > $1
		ORDER BY generated_at_ms
	`

	rows, err := r.pool.Query(ctx, query, r.now().UnixMilli())
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	tokens := make([]models.ActiveToken, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		tokens = append(tokens, models.ActiveToken{Key: r.Key(record.TokenID), TokenRecord: *record})
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return tokens, nil
}

func (r *PostgresTokenRepository) Ping(ctx context.Context) error {
	return database.MapPostgresError(r.pool.Ping(ctx))
}

func scanRecord(row pgx.Row) (*models.TokenRecord, error) {
	var record models.TokenRecord
	err := row.Scan(
		&record.DepartmentID,
		&record.DepartmentName,
		&record.TokenID,
		&record.GeneratedAt,
		&record.ExpiresAt,
		&record.IsUsed,
		&record.Token,
		&record.CreatedAt,
		&record.UsedAt,
		&record.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
