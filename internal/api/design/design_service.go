package design

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api/audit"
	"github.com/atelier-studio/atelier-api/internal/imagestore"
	"github.com/atelier-studio/atelier-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, req types.CreateDesignRequest, image []byte, imageName string) (*types.Design, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Design, error)
	List(ctx context.Context, query types.DesignQuery) (*types.DesignListResponse, error)
	Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req types.UpdateDesignRequest, image []byte, imageName string) (*types.Design, error)
	Delete(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	images imagestore.Store
	audit  audit.Recorder
}

func NewService(repo Repository, images imagestore.Store, recorder audit.Recorder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		images: images,
		audit:  recorder,
	}
}

// Create uploads the image first, then inserts the row. If the insert
// fails the fresh upload is removed so the store does not accumulate
// orphans.
func (s *ServiceImpl) Create(ctx context.Context, actorID uuid.UUID, req types.CreateDesignRequest, image []byte, imageName string) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignService").Start(ctx, "Create")
	defer span.End()
	l := s.logger.With(slog.String("method", "Create"))

	upload, err := s.images.Upload(ctx, image, imageName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Image upload failed")
		return nil, err
	}

	design, err := s.repo.Insert(ctx, req.Title, req.Description, req.Tags, upload.URL, upload.ExternalID)
	if err != nil {
		if _, delErr := s.images.Delete(ctx, upload.ExternalID); delErr != nil {
			l.WarnContext(ctx, "Failed to clean up orphaned image after insert failure",
				slog.String("external_id", upload.ExternalID), slog.Any("error", delErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, err
	}

	s.recordAudit(ctx, types.AuditEntry{
		Action:   types.AuditDesignCreated,
		UserID:   actorID,
		DesignID: &design.ID,
		Details:  map[string]any{"title": design.Title, "tags": design.Tags},
	})

	span.SetAttributes(attribute.String("design.id", design.ID.String()))
	span.SetStatus(codes.Ok, "Design created")
	return design, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignService").Start(ctx, "Get")
	defer span.End()
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context, query types.DesignQuery) (*types.DesignListResponse, error) {
	ctx, span := otel.Tracer("DesignService").Start(ctx, "List")
	defer span.End()

	designs, total, err := s.repo.List(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}

	span.SetStatus(codes.Ok, "Designs listed")
	return &types.DesignListResponse{
		Designs:    designs,
		Total:      total,
		Page:       query.Page,
		TotalPages: totalPages,
	}, nil
}

// Update uploads a replacement image before touching the row, writes the
// row with both image fields together, and deletes the previous image
// only after the row update succeeded. A failure in between leaves the
// old image referenced and reachable.
func (s *ServiceImpl) Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req types.UpdateDesignRequest, image []byte, imageName string) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignService").Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(attribute.String("design.id", id.String()))
	l := s.logger.With(slog.String("method", "Update"), slog.String("design_id", id.String()))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Design not found")
		return nil, err
	}

	params := types.UpdateDesignParams{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}

	oldExternalID := ""
	if len(image) > 0 {
		upload, err := s.images.Upload(ctx, image, imageName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Image upload failed")
			return nil, err
		}
		params.ImageURL = &upload.URL
		params.ExternalImageID = &upload.ExternalID
		oldExternalID = current.ExternalImageID
	}

	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if params.ExternalImageID != nil {
			if _, delErr := s.images.Delete(ctx, *params.ExternalImageID); delErr != nil {
				l.WarnContext(ctx, "Failed to clean up replacement image after update failure",
					slog.String("external_id", *params.ExternalImageID), slog.Any("error", delErr))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}

	if oldExternalID != "" {
		if _, err := s.images.Delete(ctx, oldExternalID); err != nil {
			l.WarnContext(ctx, "Failed to delete replaced image",
				slog.String("external_id", oldExternalID), slog.Any("error", err))
		}
	}

	// An empty update touched nothing, so it leaves no audit trace.
	if !params.IsEmpty() {
		s.recordAudit(ctx, types.AuditEntry{
			Action:   types.AuditDesignUpdated,
			UserID:   actorID,
			DesignID: &updated.ID,
			Details:  map[string]any{"title": updated.Title, "updatedFields": params.Fields()},
		})
	}

	span.SetStatus(codes.Ok, "Design updated")
	return updated, nil
}

// Delete commits the database cascade first; the stored image is removed
// afterwards, and a failure there is logged, not surfaced.
func (s *ServiceImpl) Delete(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error {
	ctx, span := otel.Tracer("DesignService").Start(ctx, "Delete")
	defer span.End()
	span.SetAttributes(attribute.String("design.id", id.String()))
	l := s.logger.With(slog.String("method", "Delete"), slog.String("design_id", id.String()))

	design, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Design not found")
		return err
	}

	if err := s.repo.Delete(ctx, id, actorID, design.Title); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}

	if _, err := s.images.Delete(ctx, design.ExternalImageID); err != nil {
		l.WarnContext(ctx, "Failed to delete stored image for removed design",
			slog.String("external_id", design.ExternalImageID), slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "Design deleted")
	return nil
}

// recordAudit appends best-effort; accountability records never fail the
// user-facing operation here.
func (s *ServiceImpl) recordAudit(ctx context.Context, entry types.AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "Failed to append audit entry",
			slog.String("action", string(entry.Action)), slog.Any("error", err))
	}
}
