package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*types.User, string, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*types.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*types.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) VerifyToken(tokenString string) (uuid.UUID, error) {
	args := m.Called(tokenString)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func TestAuthenticate(t *testing.T) {
	logger := testLogger()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := PrincipalFromContext(r.Context())
		assert.True(t, ok)
		assert.NotNil(t, user)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := Authenticate(mockService, logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Access token required")
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := Authenticate(mockService, logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Token abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Access token required")
	})

	t.Run("InvalidToken", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("VerifyToken", "bad-token").Return(uuid.Nil, api.ErrUnauthenticated).Once()
		handler := Authenticate(mockService, logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token")
		mockService.AssertExpectations(t)
	})

	t.Run("DeletedUser", func(t *testing.T) {
		userID := uuid.New()
		mockService := new(MockAuthService)
		mockService.On("VerifyToken", "orphan-token").Return(userID, nil).Once()
		mockService.On("GetUserByID", mock.Anything, userID).Return(nil, api.ErrNotFound).Once()
		handler := Authenticate(mockService, logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Bearer orphan-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token")
		mockService.AssertExpectations(t)
	})

	t.Run("ValidToken", func(t *testing.T) {
		user := &types.User{ID: uuid.New(), Email: "test@example.com", Role: types.RoleUser}
		mockService := new(MockAuthService)
		mockService.On("VerifyToken", "good-token").Return(user.ID, nil).Once()
		mockService.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		handler := Authenticate(mockService, logger)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestRequireAdmin(t *testing.T) {
	logger := testLogger()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAdmin(logger)(next)

	t.Run("NoPrincipal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/designs", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("NonAdmin", func(t *testing.T) {
		user := &types.User{ID: uuid.New(), Role: types.RoleUser}
		req := httptest.NewRequest(http.MethodPost, "/api/admin/designs", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), user))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Admin access required")
	})

	t.Run("Admin", func(t *testing.T) {
		admin := &types.User{ID: uuid.New(), Role: types.RoleAdmin}
		req := httptest.NewRequest(http.MethodPost, "/api/admin/designs", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), admin))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
