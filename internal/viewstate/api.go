package viewstate

import (
	"context"
	"errors"

	"mvp/internal/models"
	"mvp/internal/service"
)

// The service surfaces used by controllers. The service package types
// implement them.
type (
	FeedAPI interface {
		ListPosts(ctx context.Context) ([]models.Post, error)
		ListSocialPosts(ctx context.Context) ([]models.Post, error)
		CreatePost(ctx context.Context, in service.NewPost) (*models.Post, error)
		UploadPostImage(ctx context.Context, data []byte) (string, error)
	}

	EventAPI interface {
		ListEvents(ctx context.Context) ([]models.Event, error)
		CreateEvent(ctx context.Context, in service.NewEvent) (*models.Event, error)
		UploadEventImage(ctx context.Context, data []byte) (string, error)
	}

	CommentAPI interface {
		ListComments(ctx context.Context, postID string) ([]models.Comment, error)
		ListReplies(ctx context.Context, parentID string) ([]models.Comment, error)
		CreateComment(ctx context.Context, in service.NewComment) (*models.Comment, error)
	}

	LikeAPI interface {
		LikePost(ctx context.Context, postID, userID string) (models.LikeOutcome, error)
		LikeComment(ctx context.Context, commentID, userID string) (models.LikeOutcome, error)
		CountPostLikes(ctx context.Context, postID string) (int64, error)
		CountCommentLikes(ctx context.Context, commentID string) (int64, error)
	}

	ProfileAPI interface {
		FetchProfile(ctx context.Context, userID string) (*models.Profile, error)
		UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) error
		UploadProfileImage(ctx context.Context, data []byte) (string, error)
	}

	AuthAPI interface {
		SignIn(ctx context.Context, email, password string) (*service.AuthSession, error)
		Register(ctx context.Context, email, password string) (service.RegisterOutcome, error)
		SignOut(ctx context.Context) error
	}

	// TokenStore keeps the access token between process runs.
	TokenStore interface {
		Save(ctx context.Context, token string) error
		Clear(ctx context.Context) error
	}
)

// ErrNotSignedIn is shown when an intent needs a user id and there is none.
var ErrNotSignedIn = models.NewValidationError("No user id found. Please sign in again.")

// message renders err for display. Canceled work is not an error to show.
func message(err error) string {
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return models.UserMessage(err)
}
