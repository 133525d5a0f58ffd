package wishlist

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/types"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Add(ctx context.Context, userID, designID uuid.UUID) error {
	args := m.Called(ctx, userID, designID)
	return args.Error(0)
}

func (m *MockRepository) GetItem(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error) {
	args := m.Called(ctx, userID, designID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WishlistItem), args.Error(1)
}

func (m *MockRepository) Remove(ctx context.Context, userID, designID uuid.UUID) error {
	args := m.Called(ctx, userID, designID)
	return args.Error(0)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WishlistItem), args.Error(1)
}

func (m *MockRepository) Exists(ctx context.Context, userID, designID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, designID)
	return args.Bool(0), args.Error(1)
}

// MockDesignRepo is a mock implementation of the design.Repository interface
type MockDesignRepo struct {
	mock.Mock
}

func (m *MockDesignRepo) Insert(ctx context.Context, title string, description *string, tags []string, imageURL, externalImageID string) (*types.Design, error) {
	args := m.Called(ctx, title, description, tags, imageURL, externalImageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Design), args.Error(1)
}

func (m *MockDesignRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Design, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Design), args.Error(1)
}

func (m *MockDesignRepo) List(ctx context.Context, query types.DesignQuery) ([]types.Design, int, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]types.Design), args.Int(1), args.Error(2)
}

func (m *MockDesignRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdateDesignParams) (*types.Design, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Design), args.Error(1)
}

func (m *MockDesignRepo) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, title string) error {
	args := m.Called(ctx, id, actorID, title)
	return args.Error(0)
}

// MockRecorder is a mock implementation of the audit.Recorder interface
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, entry types.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRecorder) RecordTx(ctx context.Context, tx pgx.Tx, entry types.AuditEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*ServiceImpl, *MockRepository, *MockDesignRepo, *MockRecorder) {
	t.Helper()
	mockRepo := new(MockRepository)
	mockDesigns := new(MockDesignRepo)
	mockAudit := new(MockRecorder)
	return NewService(mockRepo, mockDesigns, mockAudit, testLogger()), mockRepo, mockDesigns, mockAudit
}

func TestAdd(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service, mockRepo, mockDesigns, mockAudit := newTestService(t)
		userID := uuid.New()
		design := &types.Design{ID: uuid.New(), Title: "Suit"}
		item := &types.WishlistItem{UserID: userID, DesignID: design.ID, AddedAt: time.Now(), Design: design}

		mockDesigns.On("GetByID", mock.Anything, design.ID).Return(design, nil).Once()
		mockRepo.On("Add", mock.Anything, userID, design.ID).Return(nil).Once()
		mockRepo.On("GetItem", mock.Anything, userID, design.ID).Return(item, nil).Once()
		mockAudit.On("Record", mock.Anything, mock.MatchedBy(func(e types.AuditEntry) bool {
			return e.Action == types.AuditWishlistAdded && e.Details["designTitle"] == "Suit"
		})).Return(nil).Once()

		got, err := service.Add(context.Background(), userID, design.ID)

		require.NoError(t, err)
		assert.Equal(t, item, got)
		mockRepo.AssertExpectations(t)
		mockDesigns.AssertExpectations(t)
		mockAudit.AssertExpectations(t)
	})

	t.Run("DesignMissing", func(t *testing.T) {
		service, mockRepo, mockDesigns, _ := newTestService(t)
		designID := uuid.New()

		mockDesigns.On("GetByID", mock.Anything, designID).Return(nil, api.ErrNotFound).Once()

		_, err := service.Add(context.Background(), uuid.New(), designID)

		assert.ErrorIs(t, err, api.ErrNotFound)
		mockRepo.AssertNotCalled(t, "Add")
	})

	t.Run("Duplicate", func(t *testing.T) {
		service, mockRepo, mockDesigns, mockAudit := newTestService(t)
		userID := uuid.New()
		design := &types.Design{ID: uuid.New(), Title: "Suit"}

		mockDesigns.On("GetByID", mock.Anything, design.ID).Return(design, nil).Once()
		mockRepo.On("Add", mock.Anything, userID, design.ID).Return(api.ErrConflict).Once()

		_, err := service.Add(context.Background(), userID, design.ID)

		assert.ErrorIs(t, err, api.ErrConflict)
		mockAudit.AssertNotCalled(t, "Record")
	})
}

func TestRemove(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service, mockRepo, _, mockAudit := newTestService(t)
		userID := uuid.New()
		design := &types.Design{ID: uuid.New(), Title: "Suit"}
		item := &types.WishlistItem{UserID: userID, DesignID: design.ID, Design: design}

		mockRepo.On("GetItem", mock.Anything, userID, design.ID).Return(item, nil).Once()
		mockRepo.On("Remove", mock.Anything, userID, design.ID).Return(nil).Once()
		mockAudit.On("Record", mock.Anything, mock.MatchedBy(func(e types.AuditEntry) bool {
			return e.Action == types.AuditWishlistRemoved && e.Details["designTitle"] == "Suit"
		})).Return(nil).Once()

		err := service.Remove(context.Background(), userID, design.ID)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockAudit.AssertExpectations(t)
	})

	t.Run("NotInWishlist", func(t *testing.T) {
		service, mockRepo, _, mockAudit := newTestService(t)
		userID := uuid.New()
		designID := uuid.New()

		mockRepo.On("GetItem", mock.Anything, userID, designID).Return(nil, api.ErrNotFound).Once()

		err := service.Remove(context.Background(), userID, designID)

		assert.ErrorIs(t, err, api.ErrNotFound)
		mockRepo.AssertNotCalled(t, "Remove")
		mockAudit.AssertNotCalled(t, "Record")
	})
}

func TestContains(t *testing.T) {
	t.Run("Present", func(t *testing.T) {
		service, mockRepo, _, _ := newTestService(t)
		userID, designID := uuid.New(), uuid.New()

		mockRepo.On("Exists", mock.Anything, userID, designID).Return(true, nil).Once()

		assert.True(t, service.Contains(context.Background(), userID, designID))
	})

	t.Run("LookupErrorReadsAsAbsent", func(t *testing.T) {
		service, mockRepo, _, _ := newTestService(t)
		userID, designID := uuid.New(), uuid.New()

		mockRepo.On("Exists", mock.Anything, userID, designID).Return(false, assert.AnError).Once()

		assert.False(t, service.Contains(context.Background(), userID, designID))
	})
}
