package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/types"
)

var _ Recorder = (*PostgresRecorder)(nil)

// Recorder appends accountability records. There is deliberately no
// update or delete: the log is append-only from application code.
type Recorder interface {
	Record(ctx context.Context, entry types.AuditEntry) error
	RecordTx(ctx context.Context, tx pgx.Tx, entry types.AuditEntry) error
}

type PostgresRecorder struct {
	logger *slog.Logger
	db     api.DB
}

func NewPostgresRecorder(db api.DB, logger *slog.Logger) *PostgresRecorder {
	return &PostgresRecorder{
		logger: logger,
		db:     db,
	}
}

const insertQuery = `
        INSERT INTO audit_log (action, user_id, design_id, details)
        VALUES ($1, $2, $3, $4)`

// Record appends an entry using the pool.
func (r *PostgresRecorder) Record(ctx context.Context, entry types.AuditEntry) error {
	ctx, span := otel.Tracer("AuditRecorder").Start(ctx, "Record")
	defer span.End()

	details, err := marshalDetails(entry.Details)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Details marshal failed")
		return err
	}

	if _, err := r.db.Exec(ctx, insertQuery, entry.Action, entry.UserID, entry.DesignID, details); err != nil {
		r.logger.ErrorContext(ctx, "Failed to append audit entry",
			slog.String("action", string(entry.Action)), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	span.SetStatus(codes.Ok, "Audit entry appended")
	return nil
}

// RecordTx appends an entry inside a caller-owned transaction, so the
// entry commits or rolls back with the mutation it describes.
func (r *PostgresRecorder) RecordTx(ctx context.Context, tx pgx.Tx, entry types.AuditEntry) error {
	details, err := marshalDetails(entry.Details)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertQuery, entry.Action, entry.UserID, entry.DesignID, details); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		details = map[string]any{}
	}
	out, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit details: %w", err)
	}
	return out, nil
}
