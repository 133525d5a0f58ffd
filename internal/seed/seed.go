// Package seed provisions the bootstrap admin account and, outside
// production, a handful of sample catalog entries.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/types"
)

type Seeder struct {
	logger *slog.Logger
	users  auth.UserRepo
	auth   auth.AuthService
	db     api.DB
}

func New(users auth.UserRepo, authService auth.AuthService, db api.DB, logger *slog.Logger) *Seeder {
	return &Seeder{
		logger: logger,
		users:  users,
		auth:   authService,
		db:     db,
	}
}

// EnsureAdmin creates the configured admin account if it does not exist.
// Admins can only come from here; no endpoint mints one.
func (s *Seeder) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		s.logger.InfoContext(ctx, "Admin seed skipped, no credentials configured")
		return nil
	}

	_, err := s.users.GetUserByEmail(ctx, cfg.Email)
	if err == nil {
		s.logger.DebugContext(ctx, "Admin account already present", slog.String("email", cfg.Email))
		return nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("failed to check for admin account: %w", err)
	}

	hashed, err := s.auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	admin, err := s.users.CreateUser(ctx, cfg.Email, hashed, name, types.RoleAdmin)
	if err != nil {
		// Another instance may have won the race.
		if errors.Is(err, api.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	s.logger.InfoContext(ctx, "Admin account created",
		slog.String("email", admin.Email), slog.String("user_id", admin.ID.String()))
	return nil
}

// sampleDesigns keep a fresh development database from looking empty.
// external_image_id doubles as the idempotency key, so reruns are no-ops
// and the placeholder handles never collide with real uploads.
var sampleDesigns = []struct {
	title       string
	description string
	tags        []string
	imageURL    string
	externalID  string
}{
	{
		title:       "Classic Three-Piece Suit",
		description: "Hand-finished wool three-piece in charcoal, fully canvassed.",
		tags:        []string{"suits", "formal", "wool"},
		imageURL:    "https://placehold.co/800x1000?text=Three-Piece+Suit",
		externalID:  "seed/classic-three-piece-suit",
	},
	{
		title:       "Linen Summer Blazer",
		description: "Unstructured linen blazer for warm-weather tailoring.",
		tags:        []string{"blazers", "linen", "summer"},
		imageURL:    "https://placehold.co/800x1000?text=Linen+Blazer",
		externalID:  "seed/linen-summer-blazer",
	},
	{
		title:       "Evening Gown Alteration",
		description: "Silk evening gown retaken at the waist and hem.",
		tags:        []string{"alterations", "evening"},
		imageURL:    "https://placehold.co/800x1000?text=Evening+Gown",
		externalID:  "seed/evening-gown-alteration",
	},
	{
		title:       "Bespoke Wedding Sherwani",
		description: "Ivory sherwani with hand-embroidered collar and cuffs.",
		tags:        []string{"wedding", "bespoke"},
		imageURL:    "https://placehold.co/800x1000?text=Wedding+Sherwani",
		externalID:  "seed/bespoke-wedding-sherwani",
	},
}

// EnsureSampleDesigns inserts placeholder catalog entries, skipping any
// that already exist. Intended for non-production environments only.
func (s *Seeder) EnsureSampleDesigns(ctx context.Context) error {
	const query = `
        INSERT INTO designs (title, description, tags, image_url, external_image_id)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (external_image_id) DO NOTHING`

	inserted := 0
	for _, d := range sampleDesigns {
		tag, err := s.db.Exec(ctx, query, d.title, d.description, d.tags, d.imageURL, d.externalID)
		if err != nil {
			return fmt.Errorf("failed to seed design %q: %w", d.title, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if inserted > 0 {
		s.logger.InfoContext(ctx, "Sample designs seeded", slog.Int("count", inserted))
	}
	return nil
}
