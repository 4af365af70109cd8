package service

import (
	"context"

	"mvp/internal/blobstore"
	"mvp/internal/gateway"
	"mvp/internal/models"
)

const postColumns = "*,profiles(username,profile_image)"

type FeedService struct {
	rows     RowGateway
	uploader ImageUploader
	ids      identity
}

// NewPost is the input of CreatePost. ID and CreatedAt are assigned when
// empty.
type NewPost struct {
	ID        string
	UserID    string
	Message   string
	MediaURL  string
	CreatedAt *models.Timestamp
}

func NewFeedService(rows RowGateway, uploader ImageUploader) *FeedService {
	return &FeedService{rows: rows, uploader: uploader, ids: defaultIdentity()}
}

// ListPosts returns every post with its author, newest first.
func (s *FeedService) ListPosts(ctx context.Context) ([]models.Post, error) {
	q := gateway.Select(postColumns).OrderBy("created_at", gateway.Descending)
	rows, err := s.rows.Select(ctx, TablePosts, q)
	if err != nil {
		return nil, observe(ctx, "FeedService", "ListPosts", nil, err)
	}
	posts, err := gateway.DecodeRows[models.Post](rows, "posts")
	if err != nil {
		return nil, observe(ctx, "FeedService", "ListPosts", nil, err)
	}
	_ = observe(ctx, "FeedService", "ListPosts", map[string]interface{}{"count": len(posts)}, nil)
	return posts, nil
}

// ListSocialPosts reads the pre-joined social_posts view, newest first.
func (s *FeedService) ListSocialPosts(ctx context.Context) ([]models.Post, error) {
	q := gateway.Select("*").OrderBy("createdAt", gateway.Descending)
	rows, err := s.rows.Select(ctx, ViewSocialPosts, q)
	if err != nil {
		return nil, observe(ctx, "FeedService", "ListSocialPosts", nil, err)
	}
	social, err := gateway.DecodeRows[models.SocialPost](rows, "social posts")
	if err != nil {
		return nil, observe(ctx, "FeedService", "ListSocialPosts", nil, err)
	}
	posts := make([]models.Post, 0, len(social))
	for _, sp := range social {
		posts = append(posts, sp.Post())
	}
	_ = observe(ctx, "FeedService", "ListSocialPosts", map[string]interface{}{"count": len(posts)}, nil)
	return posts, nil
}

// CreatePost inserts a post and returns the stored row.
func (s *FeedService) CreatePost(ctx context.Context, in NewPost) (*models.Post, error) {
	post := models.Post{
		ID:        in.ID,
		UserID:    in.UserID,
		Message:   models.StringPtr(in.Message),
		MediaURL:  models.StringPtr(in.MediaURL),
		CreatedAt: in.CreatedAt,
	}
	s.ids.fill(&post.ID, &post.CreatedAt)

	rep, err := s.rows.Insert(ctx, TablePosts, post)
	if err != nil {
		return nil, observe(ctx, "FeedService", "CreatePost", nil, err)
	}
	created, err := gateway.DecodeFirst[models.Post](rep, "posts")
	if err != nil {
		return nil, observe(ctx, "FeedService", "CreatePost", nil, err)
	}
	_ = observe(ctx, "FeedService", "CreatePost", map[string]interface{}{
		"post_id":        created.ID,
		"representation": rep.Kind.String(),
	}, nil)
	return &created, nil
}

// UploadPostImage stores a JPEG in the post bucket.
func (s *FeedService) UploadPostImage(ctx context.Context, data []byte) (string, error) {
	url, err := s.uploader.UploadJPEG(ctx, blobstore.BucketPostImages, data)
	return url, observe(ctx, "FeedService", "UploadPostImage", nil, err)
}
