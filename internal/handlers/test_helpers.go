package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/deptaccess/internal/models"
	pkghttp "github.com/BradenHooton/deptaccess/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockTokenService implements services.TokenOperations for testing
type MockTokenService struct {
	IssueFunc            func(ctx context.Context, departmentID int64, departmentName string) (*models.TokenData, error)
	VerifyAndConsumeFunc func(ctx context.Context, signedToken string) (models.VerifyResult, error)
	CheckStatusFunc      func(ctx context.Context, signedToken string) (models.StatusResult, error)
	RevokeFunc           func(ctx context.Context, tokenID string) (bool, error)
	CleanupExpiredFunc   func(ctx context.Context) (int, error)
	ListActiveFunc       func(ctx context.Context) ([]models.ActiveToken, error)
	HealthCheckFunc      func(ctx context.Context) error
}

func (m *MockTokenService) Issue(ctx context.Context, departmentID int64, departmentName string) (*models.TokenData, error) {
	if m.IssueFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.IssueFunc(ctx, departmentID, departmentName)
}

func (m *MockTokenService) VerifyAndConsume(ctx context.Context, signedToken string) (models.VerifyResult, error) {
	if m.VerifyAndConsumeFunc == nil {
		return models.RejectedVerify(models.ReasonInvalidFormat), nil
	}
	return m.VerifyAndConsumeFunc(ctx, signedToken)
}

func (m *MockTokenService) CheckStatus(ctx context.Context, signedToken string) (models.StatusResult, error) {
	if m.CheckStatusFunc == nil {
		return models.RejectedStatus(models.ReasonInvalidFormat), nil
	}
	return m.CheckStatusFunc(ctx, signedToken)
}

func (m *MockTokenService) Revoke(ctx context.Context, tokenID string) (bool, error) {
	if m.RevokeFunc == nil {
		return false, nil
	}
	return m.RevokeFunc(ctx, tokenID)
}

func (m *MockTokenService) CleanupExpired(ctx context.Context) (int, error) {
	if m.CleanupExpiredFunc == nil {
		return 0, nil
	}
	return m.CleanupExpiredFunc(ctx)
}

func (m *MockTokenService) ListActive(ctx context.Context) ([]models.ActiveToken, error) {
	if m.ListActiveFunc == nil {
		return []models.ActiveToken{}, nil
	}
	return m.ListActiveFunc(ctx)
}

func (m *MockTokenService) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}
