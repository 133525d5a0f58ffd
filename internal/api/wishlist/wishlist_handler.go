package wishlist

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// List handles GET /api/wishlist.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("WishlistHandler").Start(r.Context(), "List")
	defer span.End()

	user, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	items, err := h.service.List(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch wishlist", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch wishlist")
		return
	}

	span.SetStatus(codes.Ok, "Wishlist listed")
	api.WriteJSONResponse(w, r, http.StatusOK, types.WishlistResponse{
		Wishlist: items,
		Total:    len(items),
	})
}

// Add handles POST /api/wishlist/{designId}.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("WishlistHandler").Start(r.Context(), "Add")
	defer span.End()

	user, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	designID, err := uuid.Parse(chi.URLParam(r, "designId"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	item, err := h.service.Add(ctx, user.ID, designID)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, api.ErrNotFound):
			span.SetStatus(codes.Error, "Design not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Design not found")
		case errors.Is(err, api.ErrConflict):
			span.SetStatus(codes.Error, "Already in wishlist")
			api.ErrorResponse(w, r, http.StatusBadRequest, "Design already in wishlist")
		default:
			h.logger.ErrorContext(ctx, "Failed to add wishlist item", slog.Any("error", err))
			span.SetStatus(codes.Error, "Add failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to add to wishlist")
		}
		return
	}

	span.SetStatus(codes.Ok, "Wishlist item added")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.WishlistItemResponse{
		Message:      "Design added to wishlist",
		WishlistItem: item,
	})
}

// Remove handles DELETE /api/wishlist/{designId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("WishlistHandler").Start(r.Context(), "Remove")
	defer span.End()

	user, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	designID, err := uuid.Parse(chi.URLParam(r, "designId"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	if err := h.service.Remove(ctx, user.ID, designID); err != nil {
		span.RecordError(err)
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Not in wishlist")
			api.ErrorResponse(w, r, http.StatusNotFound, "Design not found in wishlist")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to remove wishlist item", slog.Any("error", err))
		span.SetStatus(codes.Error, "Remove failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove from wishlist")
		return
	}

	span.SetStatus(codes.Ok, "Wishlist item removed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"message": "Design removed from wishlist",
	})
}

// Check handles GET /api/wishlist/{designId}/status.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("WishlistHandler").Start(r.Context(), "Check")
	defer span.End()

	user, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	designID, err := uuid.Parse(chi.URLParam(r, "designId"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	span.SetStatus(codes.Ok, "Wishlist membership checked")
	api.WriteJSONResponse(w, r, http.StatusOK, types.WishlistStatusResponse{
		IsInWishlist: h.service.Contains(ctx, user.ID, designID),
	})
}
