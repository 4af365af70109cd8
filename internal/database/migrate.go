package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"mvp/internal/observability"
)

// SocialPostsView is the read-only view that flattens the author into each
// post with camelCase column names.
const SocialPostsView = "social_posts"

const createSocialPostsView = `CREATE VIEW social_posts AS
SELECT p.id AS "id",
       p.user_id AS "userId",
       p.media_url AS "mediaUrl",
       p.message AS "message",
       p.created_at AS "createdAt",
       pr.username AS "username",
       pr.profile_image AS "profileImage"
FROM posts p
LEFT JOIN profiles pr ON pr.id = p.user_id`

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&Account{},
		&Profile{},
		&Post{},
		&Event{},
		&Comment{},
		&Like{},
		&CommentLike{},
	}
}

// Migrate creates or updates every table and recreates the social_posts view.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.Exec("DROP VIEW IF EXISTS " + SocialPostsView).Error; err != nil {
		return fmt.Errorf("drop %s view: %w", SocialPostsView, err)
	}
	if err := db.Exec(createSocialPostsView).Error; err != nil {
		return fmt.Errorf("create %s view: %w", SocialPostsView, err)
	}
	observability.GlobalLogger.Debug("database migration completed",
		slog.Int("models", len(PersistentModels())),
	)
	return nil
}
