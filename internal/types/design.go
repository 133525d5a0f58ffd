package types

import (
	"time"

	"github.com/google/uuid"
)

// Design is a catalog entry whose canonical image lives in the external
// image store; ExternalImageID is the opaque handle needed to delete it.
type Design struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Tags            []string  `json:"tags"`
	ImageURL        string    `json:"imageUrl"`
	ExternalImageID string    `json:"externalImageId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreateDesignRequest holds the non-file fields of the multipart create
// form. Tags default to an empty list.
type CreateDesignRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
}

// UpdateDesignRequest is a partial update: nil means "leave unchanged",
// an explicit empty description clears it.
type UpdateDesignRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
}

// DesignQuery is the parsed and defaulted list query.
type DesignQuery struct {
	Page   int    `validate:"min=1"`
	Limit  int    `validate:"min=1,max=50"`
	Tag    string
	Search string
}

// Offset converts page/limit into the SQL offset.
func (q DesignQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// DesignListResponse is one page of the catalog.
type DesignListResponse struct {
	Designs    []Design `json:"designs"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
}

// DesignResponse wraps a single design with an optional message.
type DesignResponse struct {
	Message string  `json:"message,omitempty"`
	Design  *Design `json:"design"`
}

// UpdateDesignParams is the repository-level change set. Image fields
// are set together or not at all, so an image swap stays atomic.
type UpdateDesignParams struct {
	Title           *string
	Description     *string
	Tags            *[]string
	ImageURL        *string
	ExternalImageID *string
}

// Fields lists the column names present in the change set, for audit
// details.
func (p UpdateDesignParams) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.ImageURL != nil {
		fields = append(fields, "imageUrl")
	}
	if p.ExternalImageID != nil {
		fields = append(fields, "externalImageId")
	}
	return fields
}

// IsEmpty reports whether the update would touch nothing.
func (p UpdateDesignParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil &&
		p.ImageURL == nil && p.ExternalImageID == nil
}
