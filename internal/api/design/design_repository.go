package design

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/audit"
	"github.com/atelier-studio/atelier-api/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	Insert(ctx context.Context, title string, description *string, tags []string, imageURL, externalImageID string) (*types.Design, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Design, error)
	List(ctx context.Context, query types.DesignQuery) ([]types.Design, int, error)
	Update(ctx context.Context, id uuid.UUID, params types.UpdateDesignParams) (*types.Design, error)
	// Delete removes the design, its wishlist references and appends the
	// audit entry in one transaction.
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, title string) error
}

type PostgresRepository struct {
	logger *slog.Logger
	db     api.DB
	audit  audit.Recorder
}

func NewPostgresRepository(db api.DB, recorder audit.Recorder, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		db:     db,
		audit:  recorder,
	}
}

const designColumns = `id, title, description, tags, image_url, external_image_id, created_at, updated_at`

func scanDesign(row pgx.Row) (*types.Design, error) {
	var d types.Design
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Tags, &d.ImageURL, &d.ExternalImageID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, title string, description *string, tags []string, imageURL, externalImageID string) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignRepository").Start(ctx, "Insert")
	defer span.End()

	if tags == nil {
		tags = []string{}
	}
	query := fmt.Sprintf(`
        INSERT INTO designs (title, description, tags, image_url, external_image_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, designColumns)

	design, err := scanDesign(r.db.QueryRow(ctx, query, title, description, tags, imageURL, externalImageID))
	if err != nil {
		span.RecordError(err)
		if api.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "Duplicate external image id")
			return nil, fmt.Errorf("design with this image already exists: %w", api.ErrConflict)
		}
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to insert design: %w", err)
	}

	span.SetAttributes(attribute.String("design.id", design.ID.String()))
	span.SetStatus(codes.Ok, "Design inserted")
	return design, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignRepository").Start(ctx, "GetByID")
	defer span.End()
	span.SetAttributes(attribute.String("design.id", id.String()))

	query := fmt.Sprintf(`SELECT %s FROM designs WHERE id = $1`, designColumns)
	design, err := scanDesign(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			span.SetStatus(codes.Error, "Design not found")
			return nil, fmt.Errorf("design %s: %w", id, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("failed to fetch design: %w", err)
	}
	span.SetStatus(codes.Ok, "Design fetched")
	return design, nil
}

// likeEscaper neutralizes LIKE/ILIKE metacharacters so user search
// input matches as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// List returns one page of designs plus the total count under the same
// filter. Newest first, id breaks created_at ties so pages are stable.
func (r *PostgresRepository) List(ctx context.Context, query types.DesignQuery) ([]types.Design, int, error) {
	ctx, span := otel.Tracer("DesignRepository").Start(ctx, "List")
	defer span.End()

	var conditions []string
	var args []any

	if query.Tag != "" {
		args = append(args, query.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if query.Search != "" {
		args = append(args, "%"+escapeLikePattern(query.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT count(*) FROM designs" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB COUNT failed")
		return nil, 0, fmt.Errorf("failed to count designs: %w", err)
	}

	args = append(args, query.Limit, query.Offset())
	listQuery := fmt.Sprintf(`SELECT %s FROM designs%s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		designColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, 0, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	designs := []types.Design{}
	for rows.Next() {
		design, err := scanDesign(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, 0, fmt.Errorf("failed to scan design row: %w", err)
		}
		designs = append(designs, *design)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rows iteration failed")
		return nil, 0, fmt.Errorf("failed to iterate design rows: %w", err)
	}

	span.SetAttributes(attribute.Int("design.count", len(designs)), attribute.Int("design.total", total))
	span.SetStatus(codes.Ok, "Designs listed")
	return designs, total, nil
}

// Update applies only the fields set in params; image_url and
// external_image_id are always provided together by the service.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, params types.UpdateDesignParams) (*types.Design, error) {
	ctx, span := otel.Tracer("DesignRepository").Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(attribute.String("design.id", id.String()))

	var setClauses []string
	var args []any

	appendSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title != nil {
		appendSet("title", *params.Title)
	}
	if params.Description != nil {
		appendSet("description", *params.Description)
	}
	if params.Tags != nil {
		appendSet("tags", *params.Tags)
	}
	if params.ImageURL != nil {
		appendSet("image_url", *params.ImageURL)
	}
	if params.ExternalImageID != nil {
		appendSet("external_image_id", *params.ExternalImageID)
	}
	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE designs SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), len(args), designColumns)

	design, err := scanDesign(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			span.SetStatus(codes.Error, "Design not found")
			return nil, fmt.Errorf("design %s: %w", id, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("failed to update design: %w", err)
	}
	span.SetStatus(codes.Ok, "Design updated")
	return design, nil
}

// Delete removes wishlist references, the design row and the audit entry
// atomically. The caller deletes the stored image only after this commits.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, title string) error {
	ctx, span := otel.Tracer("DesignRepository").Start(ctx, "Delete")
	defer span.End()
	span.SetAttributes(attribute.String("design.id", id.String()))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Begin failed")
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM wishlist_items WHERE design_id = $1`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Wishlist cascade failed")
		return fmt.Errorf("failed to remove wishlist references: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Design not found")
		return fmt.Errorf("design %s: %w", id, api.ErrNotFound)
	}

	entry := types.AuditEntry{
		Action:   types.AuditDesignDeleted,
		UserID:   actorID,
		DesignID: &id,
		Details:  map[string]any{"title": title},
	}
	if err := r.audit.RecordTx(ctx, tx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Audit append failed")
		return fmt.Errorf("failed to record design deletion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Commit failed")
		return fmt.Errorf("failed to commit delete transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "Design deleted")
	return nil
}
