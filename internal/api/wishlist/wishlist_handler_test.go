package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/types"
)

// MockWishlistService is a mock implementation of the Service interface
type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) Add(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error) {
	args := m.Called(ctx, userID, designID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WishlistItem), args.Error(1)
}

func (m *MockWishlistService) Remove(ctx context.Context, userID, designID uuid.UUID) error {
	args := m.Called(ctx, userID, designID)
	return args.Error(0)
}

func (m *MockWishlistService) List(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WishlistItem), args.Error(1)
}

func (m *MockWishlistService) Contains(ctx context.Context, userID, designID uuid.UUID) bool {
	args := m.Called(ctx, userID, designID)
	return args.Bool(0)
}

func userRequest(method, path string, user *types.User, designID string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	ctx := auth.ContextWithPrincipal(req.Context(), user)
	if designID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("designId", designID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func TestAddHandler(t *testing.T) {
	logger := testLogger()
	user := &types.User{ID: uuid.New(), Role: types.RoleUser}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		item := &types.WishlistItem{UserID: user.ID, DesignID: designID, Design: &types.Design{ID: designID, Title: "Suit"}}
		mockService.On("Add", mock.Anything, user.ID, designID).Return(item, nil).Once()

		rec := httptest.NewRecorder()
		handler.Add(rec, userRequest(http.MethodPost, "/api/wishlist/"+designID.String(), user, designID.String()))

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp types.WishlistItemResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Design added to wishlist", resp.Message)
		assert.Equal(t, designID, resp.WishlistItem.DesignID)
		mockService.AssertExpectations(t)
	})

	t.Run("Duplicate", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Add", mock.Anything, user.ID, designID).Return(nil, api.ErrConflict).Once()

		rec := httptest.NewRecorder()
		handler.Add(rec, userRequest(http.MethodPost, "/api/wishlist/"+designID.String(), user, designID.String()))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Design already in wishlist")
	})

	t.Run("DesignMissing", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Add", mock.Anything, user.ID, designID).Return(nil, api.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		handler.Add(rec, userRequest(http.MethodPost, "/api/wishlist/"+designID.String(), user, designID.String()))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Design not found")
	})

	t.Run("BadID", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		rec := httptest.NewRecorder()
		handler.Add(rec, userRequest(http.MethodPost, "/api/wishlist/nope", user, "nope"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Add")
	})
}

func TestRemoveHandler(t *testing.T) {
	logger := testLogger()
	user := &types.User{ID: uuid.New(), Role: types.RoleUser}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Remove", mock.Anything, user.ID, designID).Return(nil).Once()

		rec := httptest.NewRecorder()
		handler.Remove(rec, userRequest(http.MethodDelete, "/api/wishlist/"+designID.String(), user, designID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Design removed from wishlist")
	})

	t.Run("NotInWishlist", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Remove", mock.Anything, user.ID, designID).Return(api.ErrNotFound).Once()

		rec := httptest.NewRecorder()
		handler.Remove(rec, userRequest(http.MethodDelete, "/api/wishlist/"+designID.String(), user, designID.String()))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Design not found in wishlist")
	})
}

func TestListHandler(t *testing.T) {
	logger := testLogger()
	user := &types.User{ID: uuid.New(), Role: types.RoleUser}

	mockService := new(MockWishlistService)
	handler := NewHandler(mockService, logger)

	items := []types.WishlistItem{
		{UserID: user.ID, DesignID: uuid.New(), Design: &types.Design{Title: "Suit"}},
		{UserID: user.ID, DesignID: uuid.New(), Design: &types.Design{Title: "Blazer"}},
	}
	mockService.On("List", mock.Anything, user.ID).Return(items, nil).Once()

	rec := httptest.NewRecorder()
	handler.List(rec, userRequest(http.MethodGet, "/api/wishlist", user, ""))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp types.WishlistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Wishlist, 2)
}

func TestCheckHandler(t *testing.T) {
	logger := testLogger()
	user := &types.User{ID: uuid.New(), Role: types.RoleUser}

	t.Run("Present", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Contains", mock.Anything, user.ID, designID).Return(true).Once()

		rec := httptest.NewRecorder()
		handler.Check(rec, userRequest(http.MethodGet, "/api/wishlist/"+designID.String()+"/status", user, designID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp types.WishlistStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsInWishlist)
	})

	t.Run("Absent", func(t *testing.T) {
		mockService := new(MockWishlistService)
		handler := NewHandler(mockService, logger)

		designID := uuid.New()
		mockService.On("Contains", mock.Anything, user.ID, designID).Return(false).Once()

		rec := httptest.NewRecorder()
		handler.Check(rec, userRequest(http.MethodGet, "/api/wishlist/"+designID.String()+"/status", user, designID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp types.WishlistStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.IsInWishlist)
	})
}
