package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mvp/internal/gateway"
	"mvp/internal/models"
)

// MaxThreadDepth bounds ListThread recursion.
const MaxThreadDepth = 5

type CommentService struct {
	rows RowGateway
	ids  identity
}

// NewComment is the input of CreateComment. A non-empty ParentCommentID
// creates a reply.
type NewComment struct {
	ID              string
	PostID          string
	UserID          string
	Text            string
	ParentCommentID string
	CreatedAt       *models.Timestamp
}

func NewCommentService(rows RowGateway) *CommentService {
	return &CommentService{rows: rows, ids: defaultIdentity()}
}

// ListComments returns the top-level comments of a post, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	q := gateway.Select("*").
		Where(gateway.Eq("post_id", postID), gateway.IsNull("parent_comment_id")).
		OrderBy("created_at", gateway.Ascending)
	comments, err := s.list(ctx, q)
	return comments, observe(ctx, "CommentService", "ListComments", map[string]interface{}{
		"post_id": postID,
		"count":   len(comments),
	}, err)
}

// ListReplies returns the direct replies to a comment, oldest first.
func (s *CommentService) ListReplies(ctx context.Context, parentID string) ([]models.Comment, error) {
	q := gateway.Select("*").
		Where(gateway.Eq("parent_comment_id", parentID)).
		OrderBy("created_at", gateway.Ascending)
	replies, err := s.list(ctx, q)
	return replies, observe(ctx, "CommentService", "ListReplies", map[string]interface{}{
		"parent_comment_id": parentID,
		"count":             len(replies),
	}, err)
}

// ListThread returns the top-level comments of a post with replies fetched
// down to depth levels. Depth 0 fetches no replies.
func (s *CommentService) ListThread(ctx context.Context, postID string, depth int) ([]models.CommentThread, error) {
	if depth < 0 || depth > MaxThreadDepth {
		return nil, models.NewValidationError(fmt.Sprintf("thread depth must be between 0 and %d", MaxThreadDepth))
	}
	top, err := s.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, top, depth)
}

func (s *CommentService) expand(ctx context.Context, comments []models.Comment, depth int) ([]models.CommentThread, error) {
	threads := make([]models.CommentThread, len(comments))
	for i, c := range comments {
		threads[i].Comment = c
	}
	if depth == 0 {
		return threads, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range threads {
		g.Go(func() error {
			replies, err := s.ListReplies(gctx, threads[i].Comment.ID)
			if err != nil {
				return err
			}
			nested, err := s.expand(gctx, replies, depth-1)
			if err != nil {
				return err
			}
			threads[i].Replies = nested
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return threads, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in NewComment) (*models.Comment, error) {
	comment := models.Comment{
		ID:              in.ID,
		PostID:          in.PostID,
		UserID:          in.UserID,
		Comment:         in.Text,
		ParentCommentID: models.StringPtr(in.ParentCommentID),
		CreatedAt:       in.CreatedAt,
	}
	s.ids.fill(&comment.ID, &comment.CreatedAt)

	rep, err := s.rows.Insert(ctx, TableComments, comment)
	if err != nil {
		return nil, observe(ctx, "CommentService", "CreateComment", nil, err)
	}
	created, err := gateway.DecodeFirst[models.Comment](rep, "comments")
	if err != nil {
		return nil, observe(ctx, "CommentService", "CreateComment", nil, err)
	}
	_ = observe(ctx, "CommentService", "CreateComment", map[string]interface{}{
		"comment_id": created.ID,
		"reply":      created.IsReply(),
	}, nil)
	return &created, nil
}

func (s *CommentService) list(ctx context.Context, q gateway.Query) ([]models.Comment, error) {
	rows, err := s.rows.Select(ctx, TableComments, q)
	if err != nil {
		return nil, err
	}
	return gateway.DecodeRows[models.Comment](rows, "comments")
}
