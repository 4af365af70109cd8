package service

import (
	"context"

	"mvp/internal/gateway"
	"mvp/internal/models"
)

type LikeService struct {
	rows RowGateway
}

func NewLikeService(rows RowGateway) *LikeService {
	return &LikeService{rows: rows}
}

// LikePost stores a like. A duplicate like is reported as AlreadyLiked, not
// as an error.
func (s *LikeService) LikePost(ctx context.Context, postID, userID string) (models.LikeOutcome, error) {
	outcome, err := s.insert(ctx, TableLikes, models.Like{PostID: postID, UserID: userID})
	return outcome, observe(ctx, "LikeService", "LikePost", map[string]interface{}{
		"post_id": postID,
		"outcome": outcome.String(),
	}, err)
}

// LikeComment stores a comment like with the same duplicate handling as
// LikePost.
func (s *LikeService) LikeComment(ctx context.Context, commentID, userID string) (models.LikeOutcome, error) {
	outcome, err := s.insert(ctx, TableCommentLikes, models.CommentLike{CommentID: commentID, UserID: userID})
	return outcome, observe(ctx, "LikeService", "LikeComment", map[string]interface{}{
		"comment_id": commentID,
		"outcome":    outcome.String(),
	}, err)
}

func (s *LikeService) CountPostLikes(ctx context.Context, postID string) (int64, error) {
	n, err := s.rows.Count(ctx, TableLikes, gateway.Eq("post_id", postID))
	return n, observe(ctx, "LikeService", "CountPostLikes", map[string]interface{}{"post_id": postID}, err)
}

func (s *LikeService) CountCommentLikes(ctx context.Context, commentID string) (int64, error) {
	n, err := s.rows.Count(ctx, TableCommentLikes, gateway.Eq("comment_id", commentID))
	return n, observe(ctx, "LikeService", "CountCommentLikes", map[string]interface{}{"comment_id": commentID}, err)
}

func (s *LikeService) insert(ctx context.Context, table string, record interface{}) (models.LikeOutcome, error) {
	if _, err := s.rows.Insert(ctx, table, record); err != nil {
		if gateway.IsUniqueViolation(err) {
			return models.AlreadyLiked, nil
		}
		return models.Liked, err
	}
	return models.Liked, nil
}
