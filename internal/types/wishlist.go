package types

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is keyed by the (user, design) pair; the pair is unique.
// Design carries the catalog snapshot when the item was read with a join.
type WishlistItem struct {
	UserID   uuid.UUID `json:"userId"`
	DesignID uuid.UUID `json:"designId"`
	AddedAt  time.Time `json:"addedAt"`
	Design   *Design   `json:"design,omitempty"`
}

// WishlistResponse is the authenticated user's full wishlist.
type WishlistResponse struct {
	Wishlist []WishlistItem `json:"wishlist"`
	Total    int            `json:"total"`
}

// WishlistItemResponse wraps a single item with a message.
type WishlistItemResponse struct {
	Message      string        `json:"message"`
	WishlistItem *WishlistItem `json:"wishlistItem"`
}

// WishlistStatusResponse answers the membership probe.
type WishlistStatusResponse struct {
	IsInWishlist bool `json:"isInWishlist"`
}
