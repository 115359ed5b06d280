package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/deptaccess/internal/models"
	pkgauth "github.com/BradenHooton/deptaccess/pkg/auth"
	pkglogger "github.com/BradenHooton/deptaccess/pkg/logger"
)

type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) CleanupExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockTokenService) ListActive(ctx context.Context) ([]models.ActiveToken, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]models.ActiveToken)
	return tokens, args.Error(1)
}

func (m *mockTokenService) Revoke(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTokenService) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCleanup(t *testing.T) {
	ctx := context.Background()
	auditLogger := pkglogger.NewAuditLogger(discardLogger())

	t.Run("text-output", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("CleanupExpired", ctx).Return(4, nil)

		var out bytes.Buffer
		err := RunCleanup(ctx, svc, auditLogger, &out, FormatText)

		require.NoError(t, err)
		require.Equal(t, "Cleaned up 4 expired tokens\n", out.String())
		svc.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("CleanupExpired", ctx).Return(2, nil)

		var out bytes.Buffer
		err := RunCleanup(ctx, svc, auditLogger, &out, FormatJSON)

		require.NoError(t, err)
		require.Contains(t, out.String(), `"cleanedCount": 2`)
		svc.AssertExpectations(t)
	})

	t.Run("store-error", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("CleanupExpired", ctx).Return(0, models.ErrStoreUnavailable)

		err := RunCleanup(ctx, svc, auditLogger, &bytes.Buffer{}, FormatText)

		require.ErrorIs(t, err, models.ErrStoreUnavailable)
	})

	t.Run("invalid-format", func(t *testing.T) {
		svc := &mockTokenService{}
		err := RunCleanup(ctx, svc, auditLogger, &bytes.Buffer{}, "yaml")

		require.ErrorContains(t, err, "invalid format")
		svc.AssertNotCalled(t, "CleanupExpired", mock.Anything)
	})
}

func TestRunList(t *testing.T) {
	ctx := context.Background()
	usedAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tokens := []models.ActiveToken{
		{
			Key: "dept_token:42_1_aaaaaaaaa",
			TokenRecord: models.TokenRecord{
				DepartmentID:   42,
				DepartmentName: "Finance",
				TokenID:        "42_1_aaaaaaaaa",
				ExpiresAt:      usedAt.Add(time.Hour).UnixMilli(),
				Token:          models.HiddenToken,
			},
		},
		{
			Key: "dept_token:9_2_bbbbbbbbb",
			TokenRecord: models.TokenRecord{
				DepartmentID:   9,
				DepartmentName: "Legal",
				TokenID:        "9_2_bbbbbbbbb",
				ExpiresAt:      usedAt.Add(time.Hour).UnixMilli(),
				IsUsed:         true,
				UsedAt:         &usedAt,
				Token:          models.HiddenToken,
			},
		},
	}

	t.Run("text-output", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("ListActive", ctx).Return(tokens, nil)

		var out bytes.Buffer
		require.NoError(t, RunList(ctx, svc, &out, FormatText))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Contains(t, lines[0], "TOKEN ID")
		require.Contains(t, lines[1], "42_1_aaaaaaaaa")
		require.Contains(t, lines[1], "unused")
		require.Contains(t, lines[2], "used")
		require.Contains(t, out.String(), "2 token(s)")
		require.NotContains(t, out.String(), models.HiddenToken)
	})

	t.Run("json-output", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("ListActive", ctx).Return(tokens, nil)

		var out bytes.Buffer
		require.NoError(t, RunList(ctx, svc, &out, FormatJSON))

		var resp struct {
			Count  int                      `json:"count"`
			Tokens []map[string]interface{} `json:"tokens"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		require.Equal(t, models.HiddenToken, resp.Tokens[0]["token"])
		require.Equal(t, "dept_token:9_2_bbbbbbbbb", resp.Tokens[1]["key"])
	})

	t.Run("empty", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("ListActive", ctx).Return(nil, nil)

		var out bytes.Buffer
		require.NoError(t, RunList(ctx, svc, &out, FormatJSON))
		require.Contains(t, out.String(), `"tokens": []`)
	})
}

func TestTokenState(t *testing.T) {
	now := time.Now()

	require.Equal(t, "unused", tokenState(models.TokenRecord{}))
	require.Equal(t, "used", tokenState(models.TokenRecord{IsUsed: true, UsedAt: &now}))
	require.Equal(t, "revoked", tokenState(models.TokenRecord{IsUsed: true, RevokedAt: &now}))
}

func TestRunRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("Revoke", ctx, "42_1_aaaaaaaaa").Return(true, nil)

		var out bytes.Buffer
		require.NoError(t, RunRevoke(ctx, svc, &out, " 42_1_aaaaaaaaa ", FormatText))
		require.Equal(t, "Token 42_1_aaaaaaaaa has been revoked\n", out.String())
		svc.AssertExpectations(t)
	})

	t.Run("not-revoked", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("Revoke", ctx, "missing").Return(false, nil)

		err := RunRevoke(ctx, svc, &bytes.Buffer{}, "missing", FormatText)
		require.ErrorIs(t, err, ErrNotRevoked)
	})

	t.Run("missing-id", func(t *testing.T) {
		svc := &mockTokenService{}
		err := RunRevoke(ctx, svc, &bytes.Buffer{}, "  ", FormatText)

		require.ErrorContains(t, err, "token id is required")
		svc.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})

	t.Run("store-error", func(t *testing.T) {
		svc := &mockTokenService{}
		svc.On("Revoke", ctx, "t1").Return(false, models.ErrStoreUnavailable)

		err := RunRevoke(ctx, svc, &bytes.Buffer{}, "t1", FormatJSON)
		require.ErrorIs(t, err, models.ErrStoreUnavailable)
	})
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		m := &mockTokenService{}
		m.On("Migrate", ctx).Return(nil)

		require.NoError(t, RunMigrations(ctx, m, discardLogger()))
		m.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		m := &mockTokenService{}
		m.On("Migrate", ctx).Return(errors.New("relation already exists"))

		require.ErrorContains(t, RunMigrations(ctx, m, discardLogger()), "failed to run migrations")
	})
}

func TestRunGenSecret(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunGenSecret(&out, FormatJSON))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp["jwtSecret"], 43)
	require.NotEqual(t, resp["jwtSecret"], resp["adminApiKey"])
	require.NoError(t, pkgauth.CompareAdminKey(resp["adminApiKeyHash"], resp["adminApiKey"]))

	out.Reset()
	require.NoError(t, RunGenSecret(&out, FormatText))
	require.Contains(t, out.String(), "JWT_SECRET=")
	require.Contains(t, out.String(), "ADMIN_API_KEY_HASH='$2a$12$")
}
