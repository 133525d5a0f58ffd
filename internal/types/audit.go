package types

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the closed set of recordable actions. Adding one is a
// code change, and the migration's CHECK constraint must move with it.
type AuditAction string

const (
	AuditUserRegistered  AuditAction = "USER_REGISTERED"
	AuditUserLogin       AuditAction = "USER_LOGIN"
	AuditDesignCreated   AuditAction = "DESIGN_CREATED"
	AuditDesignUpdated   AuditAction = "DESIGN_UPDATED"
	AuditDesignDeleted   AuditAction = "DESIGN_DELETED"
	AuditWishlistAdded   AuditAction = "WISHLIST_ADDED"
	AuditWishlistRemoved AuditAction = "WISHLIST_REMOVED"
)

// AuditEntry is one append-only accountability record.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    AuditAction    `json:"action"`
	UserID    uuid.UUID      `json:"userId"`
	DesignID  *uuid.UUID     `json:"designId,omitempty"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}
