package database

import "time"

// StoredTimeLayout keeps text order equal to time order.
const StoredTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t the way timestamps are stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(StoredTimeLayout)
}

// Row models mirror the hosted schema. Timestamps are stored as ISO-8601
// text in UTC with microsecond precision so that text order is time order on
// every driver. Interests are stored as a JSON array in text.

// Account is an authentication identity.
type Account struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string `gorm:"type:text;not null"`
	Role         string `gorm:"type:text;not null;default:authenticated"`
	Confirmed    bool   `gorm:"not null;default:false"`
	CreatedAt    string `gorm:"type:text;not null"`
}

func (Account) TableName() string { return "accounts" }

type Profile struct {
	ID           string  `gorm:"primaryKey;type:text"`
	Email        string  `gorm:"type:text"`
	Username     string  `gorm:"type:text;not null"`
	Name         *string `gorm:"type:text"`
	ProfileImage *string `gorm:"type:text"`
	Interests    *string `gorm:"type:text"`
	Role         *string `gorm:"type:text"`
	CreatedAt    *string `gorm:"type:text"`
}

func (Profile) TableName() string { return "profiles" }

type Post struct {
	ID        string  `gorm:"primaryKey;type:text"`
	UserID    string  `gorm:"type:text;not null;index"`
	MediaURL  *string `gorm:"type:text"`
	Message   *string `gorm:"type:text"`
	CreatedAt *string `gorm:"type:text;index"`
}

func (Post) TableName() string { return "posts" }

type Event struct {
	ID          string   `gorm:"primaryKey;type:text"`
	CreatorID   *string  `gorm:"type:text;index"`
	Title       string   `gorm:"type:text;not null"`
	Description *string  `gorm:"type:text"`
	Location    *string  `gorm:"type:text"`
	EventDate   *string  `gorm:"type:text"`
	Price       *float64 `gorm:""`
	TicketInfo  *string  `gorm:"type:text"`
	EventImage  *string  `gorm:"type:text"`
	CreatedAt   *string  `gorm:"type:text;index"`
}

func (Event) TableName() string { return "events" }

type Comment struct {
	ID              string  `gorm:"primaryKey;type:text"`
	PostID          string  `gorm:"type:text;not null;index"`
	UserID          string  `gorm:"type:text;not null"`
	Comment         string  `gorm:"type:text;not null"`
	CreatedAt       *string `gorm:"type:text"`
	ParentCommentID *string `gorm:"type:text;index"`
}

func (Comment) TableName() string { return "comments" }

type Like struct {
	ID        string  `gorm:"primaryKey;type:text"`
	PostID    string  `gorm:"type:text;not null;uniqueIndex:idx_likes_post_user"`
	UserID    string  `gorm:"type:text;not null;uniqueIndex:idx_likes_post_user"`
	CreatedAt *string `gorm:"type:text"`
}

func (Like) TableName() string { return "likes" }

type CommentLike struct {
	ID        string  `gorm:"primaryKey;type:text"`
	CommentID string  `gorm:"type:text;not null;uniqueIndex:idx_comment_likes_comment_user"`
	UserID    string  `gorm:"type:text;not null;uniqueIndex:idx_comment_likes_comment_user"`
	CreatedAt *string `gorm:"type:text"`
}

func (CommentLike) TableName() string { return "comment_likes" }
