package wishlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	Add(ctx context.Context, userID, designID uuid.UUID) error
	GetItem(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error)
	Remove(ctx context.Context, userID, designID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error)
	Exists(ctx context.Context, userID, designID uuid.UUID) (bool, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	db     api.DB
}

func NewPostgresRepository(db api.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		db:     db,
	}
}

// Add inserts the pair; the composite primary key turns a double-add
// into a unique violation and the FK turns a vanished design into
// ErrNotFound.
func (r *PostgresRepository) Add(ctx context.Context, userID, designID uuid.UUID) error {
	ctx, span := otel.Tracer("WishlistRepository").Start(ctx, "Add")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("design.id", designID.String()),
	)

	query := `INSERT INTO wishlist_items (user_id, design_id) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, userID, designID); err != nil {
		span.RecordError(err)
		if api.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "Already in wishlist")
			return fmt.Errorf("design %s already in wishlist: %w", designID, api.ErrConflict)
		}
		if api.IsForeignKeyViolation(err) {
			span.SetStatus(codes.Error, "Design not found")
			return fmt.Errorf("design %s: %w", designID, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}

	span.SetStatus(codes.Ok, "Wishlist item added")
	return nil
}

const itemColumns = `
        w.user_id, w.design_id, w.added_at,
        d.id, d.title, d.description, d.tags, d.image_url, d.external_image_id, d.created_at, d.updated_at`

func scanItem(row pgx.Row) (*types.WishlistItem, error) {
	var item types.WishlistItem
	var design types.Design
	err := row.Scan(
		&item.UserID, &item.DesignID, &item.AddedAt,
		&design.ID, &design.Title, &design.Description, &design.Tags,
		&design.ImageURL, &design.ExternalImageID, &design.CreatedAt, &design.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if design.Tags == nil {
		design.Tags = []string{}
	}
	item.Design = &design
	return &item, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, userID, designID uuid.UUID) (*types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistRepository").Start(ctx, "GetItem")
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s
        FROM wishlist_items w
        JOIN designs d ON d.id = w.design_id
        WHERE w.user_id = $1 AND w.design_id = $2`, itemColumns)

	item, err := scanItem(r.db.QueryRow(ctx, query, userID, designID))
	if err != nil {
		if err == pgx.ErrNoRows {
			span.SetStatus(codes.Error, "Wishlist item not found")
			return nil, fmt.Errorf("wishlist item for design %s: %w", designID, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("failed to fetch wishlist item: %w", err)
	}

	span.SetStatus(codes.Ok, "Wishlist item fetched")
	return item, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, designID uuid.UUID) error {
	ctx, span := otel.Tracer("WishlistRepository").Start(ctx, "Remove")
	defer span.End()

	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND design_id = $2`
	tag, err := r.db.Exec(ctx, query, userID, designID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Wishlist item not found")
		return fmt.Errorf("wishlist item for design %s: %w", designID, api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Wishlist item removed")
	return nil
}

// ListByUser returns the user's wishlist with each design joined in,
// newest addition first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.WishlistItem, error) {
	ctx, span := otel.Tracer("WishlistRepository").Start(ctx, "ListByUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	query := fmt.Sprintf(`
        SELECT %s
        FROM wishlist_items w
        JOIN designs d ON d.id = w.design_id
        WHERE w.user_id = $1
        ORDER BY w.added_at DESC, w.design_id ASC`, itemColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	items := []types.WishlistItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("failed to scan wishlist row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rows iteration failed")
		return nil, fmt.Errorf("failed to iterate wishlist rows: %w", err)
	}

	span.SetAttributes(attribute.Int("wishlist.count", len(items)))
	span.SetStatus(codes.Ok, "Wishlist listed")
	return items, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, designID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("WishlistRepository").Start(ctx, "Exists")
	defer span.End()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND design_id = $2)`
	if err := r.db.QueryRow(ctx, query, userID, designID).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return false, fmt.Errorf("failed to check wishlist membership: %w", err)
	}

	span.SetStatus(codes.Ok, "Wishlist membership checked")
	return exists, nil
}
