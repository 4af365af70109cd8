package viewstate

import (
	"context"
	"maps"
	"slices"

	"mvp/internal/models"
	"mvp/internal/service"
	"mvp/internal/session"
	"mvp/internal/validation"
)

// CommentsState is the comment sheet state of one post.
type CommentsState struct {
	PostID     string
	Comments   []models.Comment
	Replies    map[string][]models.Comment
	LikeCounts map[string]int64
	Loading    bool
	Error      string
	Notice     string
}

type CommentsController struct {
	observable[CommentsState]

	comments CommentAPI
	likes    LikeAPI
	session  *session.Store
	dispatch Dispatcher
}

func NewCommentsController(comments CommentAPI, likes LikeAPI, sess *session.Store, d Dispatcher) *CommentsController {
	return &CommentsController{comments: comments, likes: likes, session: sess, dispatch: d}
}

// Load fetches the top-level comments of postID and resets replies.
func (c *CommentsController) Load(ctx context.Context, postID string) {
	c.update(func(s *CommentsState) {
		*s = CommentsState{PostID: postID, Loading: true}
	})
	c.dispatch.Async(func() {
		comments, err := c.comments.ListComments(ctx, postID)
		c.dispatch.Main(func() {
			c.updateFor(postID, func(s *CommentsState) {
				s.Loading = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Comments = comments
			})
		})
	})
}

// LoadReplies fetches the replies to one comment.
func (c *CommentsController) LoadReplies(ctx context.Context, commentID string) {
	postID := c.Snapshot().PostID
	c.dispatch.Async(func() {
		replies, err := c.comments.ListReplies(ctx, commentID)
		c.dispatch.Main(func() {
			c.updateFor(postID, func(s *CommentsState) {
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Replies = maps.Clone(s.Replies)
				if s.Replies == nil {
					s.Replies = make(map[string][]models.Comment)
				}
				s.Replies[commentID] = replies
			})
		})
	})
}

// Add posts a top-level comment on the loaded post.
func (c *CommentsController) Add(ctx context.Context, text string) {
	c.create(ctx, text, "")
}

// Reply answers a comment of the loaded post.
func (c *CommentsController) Reply(ctx context.Context, commentID, text string) {
	c.create(ctx, text, commentID)
}

func (c *CommentsController) create(ctx context.Context, text, parentID string) {
	if err := validation.Struct(validation.CommentForm{Text: text}); err != nil {
		c.fail(err)
		return
	}
	userID := c.session.State().UserID
	postID := c.Snapshot().PostID
	if userID == "" || postID == "" {
		c.fail(ErrNotSignedIn)
		return
	}

	c.dispatch.Async(func() {
		created, err := c.comments.CreateComment(ctx, service.NewComment{
			PostID:          postID,
			UserID:          userID,
			Text:            text,
			ParentCommentID: parentID,
		})
		c.dispatch.Main(func() {
			c.updateFor(postID, func(s *CommentsState) {
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Error = ""
				if parentID == "" {
					s.Comments = append(slices.Clip(s.Comments), *created)
					return
				}
				s.Replies = maps.Clone(s.Replies)
				if s.Replies == nil {
					s.Replies = make(map[string][]models.Comment)
				}
				s.Replies[parentID] = append(slices.Clip(s.Replies[parentID]), *created)
			})
		})
	})
}

// Like likes a comment as the current user.
func (c *CommentsController) Like(ctx context.Context, commentID string) {
	userID := c.session.State().UserID
	if userID == "" {
		c.fail(ErrNotSignedIn)
		return
	}
	postID := c.Snapshot().PostID
	c.dispatch.Async(func() {
		outcome, err := c.likes.LikeComment(ctx, commentID, userID)
		c.dispatch.Main(func() {
			c.updateFor(postID, func(s *CommentsState) {
				switch {
				case err != nil:
					s.Error = message(err)
				case outcome == models.AlreadyLiked:
					s.Notice = "You already liked this comment."
				default:
					s.Notice = ""
					s.LikeCounts = maps.Clone(s.LikeCounts)
					if s.LikeCounts == nil {
						s.LikeCounts = make(map[string]int64)
					}
					s.LikeCounts[commentID]++
				}
			})
		})
	})
}

// RefreshLikeCount fetches the like count of one comment.
func (c *CommentsController) RefreshLikeCount(ctx context.Context, commentID string) {
	postID := c.Snapshot().PostID
	c.dispatch.Async(func() {
		n, err := c.likes.CountCommentLikes(ctx, commentID)
		c.dispatch.Main(func() {
			c.updateFor(postID, func(s *CommentsState) {
				if err != nil {
					s.Error = message(err)
					return
				}
				s.LikeCounts = maps.Clone(s.LikeCounts)
				if s.LikeCounts == nil {
					s.LikeCounts = make(map[string]int64)
				}
				s.LikeCounts[commentID] = n
			})
		})
	})
}

// LikeCount returns the last known like count of a comment.
func (c *CommentsController) LikeCount(commentID string) int64 {
	return c.Snapshot().LikeCounts[commentID]
}

// updateFor applies fn only while postID is still the loaded post. Results
// of work started for an earlier post are dropped.
func (c *CommentsController) updateFor(postID string, fn func(*CommentsState)) {
	c.update(func(s *CommentsState) {
		if s.PostID != postID {
			return
		}
		fn(s)
	})
}

func (c *CommentsController) fail(err error) {
	c.update(func(s *CommentsState) { s.Error = message(err) })
}
