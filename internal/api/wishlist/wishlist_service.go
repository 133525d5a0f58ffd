package wishlist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/audit"
	"github.com/atelier-studio/atelier-api/internal/api/design"
	"github.com/atelier-studio/atelier-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Add(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error)
	Remove(ctx context.Context, userID, designID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error)
	// Contains never fails the caller; a lookup error reads as "not in
	// wishlist" and is logged.
	Contains(ctx context.Context, userID, designID uuid.UUID) bool
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	designs design.Repository
	audit   audit.Recorder
}

func NewService(repo Repository, designs design.Repository, recorder audit.Recorder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		repo:    repo,
		designs: designs,
		audit:   recorder,
	}
}

// Add verifies the design exists, inserts the pair and returns the item
// with the design joined in.
func (s *ServiceImpl) Add(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "Add")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("design.id", designID.String()),
	)

	target, err := s.designs.GetByID(ctx, designID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Design lookup failed")
		return nil, err
	}

	if err := s.repo.Add(ctx, userID, designID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Add failed")
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, userID, designID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Item fetch failed")
		return nil, err
	}

	s.recordAudit(ctx, types.AuditEntry{
		Action:   types.AuditWishlistAdded,
		UserID:   userID,
		DesignID: &designID,
		Details:  map[string]any{"designTitle": target.Title},
	})

	span.SetStatus(codes.Ok, "Wishlist item added")
	return item, nil
}

func (s *ServiceImpl) Remove(ctx context.Context, userID, designID uuid.UUID) error {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "Remove")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("design.id", designID.String()),
	)

	item, err := s.repo.GetItem(ctx, userID, designID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Item lookup failed")
		return err
	}

	if err := s.repo.Remove(ctx, userID, designID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remove failed")
		return err
	}

	s.recordAudit(ctx, types.AuditEntry{
		Action:   types.AuditWishlistRemoved,
		UserID:   userID,
		DesignID: &designID,
		Details:  map[string]any{"designTitle": item.Design.Title},
	})

	span.SetStatus(codes.Ok, "Wishlist item removed")
	return nil
}

func (s *ServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "List")
	defer span.End()
	return s.repo.ListByUser(ctx, userID)
}

func (s *ServiceImpl) Contains(ctx context.Context, userID, designID uuid.UUID) bool {
	ctx, span := otel.Tracer("WishlistService").Start(ctx, "Contains")
	defer span.End()

	exists, err := s.repo.Exists(ctx, userID, designID)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		s.logger.WarnContext(ctx, "Wishlist membership check failed",
			slog.String("design_id", designID.String()), slog.Any("error", err))
		span.RecordError(err)
		return false
	}
	return exists
}

func (s *ServiceImpl) recordAudit(ctx context.Context, entry types.AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "Failed to append audit entry",
			slog.String("action", string(entry.Action)), slog.Any("error", err))
	}
}
