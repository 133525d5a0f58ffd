package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/api/design"
	"github.com/atelier-studio/atelier-api/internal/api/wishlist"
	"github.com/atelier-studio/atelier-api/internal/types"
)

// stubAuthService rejects every token; enough for routing tests.
type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, email, password, name string) (*types.User, string, error) {
	return nil, "", api.ErrConflict
}

func (stubAuthService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	return nil, "", api.ErrUnauthenticated
}

func (stubAuthService) VerifyToken(tokenString string) (uuid.UUID, error) {
	return uuid.Nil, api.ErrUnauthenticated
}

func (stubAuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return nil, api.ErrNotFound
}

func (stubAuthService) HashPassword(password string) (string, error) {
	return "", nil
}

func testDeps(maxRequests int) *Deps {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Mode: "test",
		Server: config.ServerConfig{
			Port:    "8080",
			Timeout: 60 * time.Second,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: "http://localhost:3000",
		},
		RateLimit: config.RateLimitConfig{
			WindowMs:    60000,
			MaxRequests: maxRequests,
		},
		Upload: config.UploadConfig{
			MaxFileSize:      5 * 1024 * 1024,
			AllowedMimeTypes: "image/jpeg,image/png,image/webp",
		},
	}

	service := stubAuthService{}
	return &Deps{
		Config:          cfg,
		Logger:          logger,
		AuthService:     service,
		AuthHandler:     auth.NewHandler(service, logger),
		DesignHandler:   design.NewHandler(nil, cfg.Upload, cfg.AllowedMimeTypes(), logger),
		WishlistHandler: wishlist.NewHandler(nil, logger),
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := Setup(testDeps(100))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, body["version"])
}

func TestNotFoundShape(t *testing.T) {
	router := Setup(testDeps(100))

	req := httptest.NewRequest(http.MethodGet, "/api/no-such-route", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Route not found", body["error"])
	assert.Equal(t, http.MethodGet, body["method"])
	assert.Equal(t, "/api/no-such-route", body["path"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := Setup(testDeps(100))

	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodGet, "/api/wishlist"},
		{http.MethodPost, "/api/wishlist/" + uuid.NewString()},
		{http.MethodPost, "/api/admin/designs"},
		{http.MethodDelete, "/api/admin/designs/" + uuid.NewString()},
	}

	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
		assert.Contains(t, rec.Body.String(), "Access token required")
	}
}

func TestRejectedToken(t *testing.T) {
	router := Setup(testDeps(100))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}

func TestRateLimit(t *testing.T) {
	router := Setup(testDeps(3))

	var lastCode int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestSecurityHeaders(t *testing.T) {
	router := Setup(testDeps(100))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
