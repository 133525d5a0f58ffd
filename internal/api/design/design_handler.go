package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
	upload  config.UploadConfig
	mimes   []string
}

func NewHandler(service Service, cfg config.UploadConfig, mimes []string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		upload:  cfg,
		mimes:   mimes,
	}
}

// List handles GET /api/designs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DesignHandler").Start(r.Context(), "List")
	defer span.End()

	query, err := parseListQuery(r)
	if err != nil {
		span.SetStatus(codes.Error, "Bad query")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.List(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list designs", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch designs")
		return
	}

	span.SetAttributes(attribute.Int("design.total", result.Total))
	span.SetStatus(codes.Ok, "Designs listed")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Get handles GET /api/designs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DesignHandler").Start(r.Context(), "Get")
	defer span.End()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	design, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Design not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Design not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to fetch design", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Fetch failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch design")
		return
	}

	span.SetStatus(codes.Ok, "Design fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, types.DesignResponse{Design: design})
}

// Create handles POST /api/admin/designs (multipart).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DesignHandler").Start(r.Context(), "Create")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateDesign"))

	actor, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	form, err := h.parseForm(r)
	if err != nil {
		span.SetStatus(codes.Error, "Bad multipart form")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(form.image) == 0 {
		span.SetStatus(codes.Error, "Missing image")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Image file is required")
		return
	}

	req := types.CreateDesignRequest{
		Title:       form.title,
		Description: form.description,
		Tags:        form.tags,
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if err := api.ValidateStruct(&req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	design, err := h.service.Create(ctx, actor.ID, req, form.image, form.imageName)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create design", slog.Any("error", err))
		span.RecordError(err)
		if errors.Is(err, api.ErrConflict) {
			span.SetStatus(codes.Error, "Duplicate design")
			api.ErrorResponse(w, r, http.StatusBadRequest, "Design with this image already exists")
			return
		}
		span.SetStatus(codes.Error, "Create failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create design")
		return
	}

	span.SetAttributes(attribute.String("design.id", design.ID.String()))
	span.SetStatus(codes.Ok, "Design created")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.DesignResponse{
		Message: "Design created successfully",
		Design:  design,
	})
}

// Update handles PUT /api/admin/designs/{id} (multipart, all fields
// optional).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DesignHandler").Start(r.Context(), "Update")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateDesign"))

	actor, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	form, err := h.parseForm(r)
	if err != nil {
		span.SetStatus(codes.Error, "Bad multipart form")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req := types.UpdateDesignRequest{
		Description: form.description,
	}
	if form.titleSet {
		req.Title = &form.title
	}
	if form.tagsSet {
		tags := form.tags
		if tags == nil {
			tags = []string{}
		}
		req.Tags = &tags
	}
	if err := api.ValidateStruct(&req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	design, err := h.service.Update(ctx, actor.ID, id, req, form.image, form.imageName)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Design not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Design not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update design", slog.Any("error", err))
		span.SetStatus(codes.Error, "Update failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update design")
		return
	}

	span.SetAttributes(attribute.String("design.id", design.ID.String()))
	span.SetStatus(codes.Ok, "Design updated")
	api.WriteJSONResponse(w, r, http.StatusOK, types.DesignResponse{
		Message: "Design updated successfully",
		Design:  design,
	})
}

// Delete handles DELETE /api/admin/designs/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DesignHandler").Start(r.Context(), "Delete")
	defer span.End()
	l := h.logger.With(slog.String("handler", "DeleteDesign"))

	actor, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Access token required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Bad design id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid design id")
		return
	}

	if err := h.service.Delete(ctx, actor.ID, id); err != nil {
		span.RecordError(err)
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Design not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Design not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete design", slog.Any("error", err))
		span.SetStatus(codes.Error, "Delete failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete design")
		return
	}

	span.SetStatus(codes.Ok, "Design deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"message": "Design deleted successfully",
	})
}

// designForm is the parsed multipart payload shared by create and update.
type designForm struct {
	title       string
	titleSet    bool
	description *string
	tags        []string
	tagsSet     bool
	image       []byte
	imageName   string
}

// parseForm reads the multipart body, enforcing the size cap and the
// image MIME allowlist before any side effect happens.
func (h *Handler) parseForm(r *http.Request) (*designForm, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.upload.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(h.upload.MaxFileSize); err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			return nil, fmt.Errorf("file too large, maximum size is %d bytes", h.upload.MaxFileSize)
		}
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}

	form := &designForm{}
	if values, ok := r.MultipartForm.Value["title"]; ok && len(values) > 0 {
		form.title = strings.TrimSpace(values[0])
		form.titleSet = true
	}
	if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
		desc := values[0]
		form.description = &desc
	}

	tags, tagsSet, err := parseTags(r.MultipartForm.Value["tags"])
	if err != nil {
		return nil, err
	}
	form.tags = tags
	form.tagsSet = tagsSet

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		return nil, fmt.Errorf("invalid image upload: %v", err)
	}
	defer file.Close()

	if header.Size > h.upload.MaxFileSize {
		return nil, fmt.Errorf("file too large, maximum size is %d bytes", h.upload.MaxFileSize)
	}
	if err := h.checkMimeType(file, header); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image upload: %v", err)
	}
	if int64(len(data)) > h.upload.MaxFileSize {
		return nil, fmt.Errorf("file too large, maximum size is %d bytes", h.upload.MaxFileSize)
	}

	form.image = data
	form.imageName = header.Filename
	return form, nil
}

// checkMimeType sniffs the first bytes rather than trusting the
// client-declared Content-Type alone.
func (h *Handler) checkMimeType(file multipart.File, header *multipart.FileHeader) error {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read image upload: %v", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to read image upload: %v", err)
	}

	sniffed := http.DetectContentType(head[:n])
	declared := header.Header.Get("Content-Type")
	if mediaType, _, ok := strings.Cut(declared, ";"); ok {
		declared = mediaType
	}
	declared = strings.TrimSpace(declared)

	if slices.Contains(h.mimes, sniffed) {
		return nil
	}
	if declared != "" && slices.Contains(h.mimes, declared) && strings.HasPrefix(sniffed, "image/") {
		return nil
	}
	return fmt.Errorf("unsupported image type, allowed types are %s", strings.Join(h.mimes, ", "))
}

// parseTags accepts either repeated form fields or a single JSON array,
// matching what multipart clients actually send.
func parseTags(values []string) ([]string, bool, error) {
	if values == nil {
		return nil, false, nil
	}
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var tags []string
		if err := json.Unmarshal([]byte(values[0]), &tags); err != nil {
			return nil, true, fmt.Errorf("invalid tags, expected a JSON array of strings")
		}
		return normalizeTags(tags), true, nil
	}
	return normalizeTags(values), true, nil
}

func normalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseListQuery(r *http.Request) (types.DesignQuery, error) {
	query := types.DesignQuery{
		Page:   1,
		Limit:  10,
		Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return query, fmt.Errorf("invalid page, expected a positive integer")
		}
		query.Page = page
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return query, fmt.Errorf("invalid limit, expected a positive integer")
		}
		if limit > 50 {
			limit = 50
		}
		query.Limit = limit
	}
	return query, nil
}
