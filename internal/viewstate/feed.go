package viewstate

import (
	"context"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"mvp/internal/media"
	"mvp/internal/models"
	"mvp/internal/observability"
	"mvp/internal/service"
	"mvp/internal/session"
	"mvp/internal/validation"
)

// likeCountConcurrency bounds the count requests in flight per feed.
const likeCountConcurrency = 8

// FeedState is the feed screen state.
type FeedState struct {
	Posts      []models.Post
	LikeCounts map[string]int64
	Loading    bool
	Posting    bool
	Error      string
	// Notice is a non-error message such as a repeated like.
	Notice string
}

type FeedController struct {
	observable[FeedState]

	feed     FeedAPI
	likes    LikeAPI
	session  *session.Store
	dispatch Dispatcher
	social   bool
}

// NewFeedController creates the feed controller. With social set the feed
// reads the pre-joined social_posts view.
func NewFeedController(feed FeedAPI, likes LikeAPI, sess *session.Store, d Dispatcher, social bool) *FeedController {
	return &FeedController{feed: feed, likes: likes, session: sess, dispatch: d, social: social}
}

// Load replaces the post list with a fresh fetch.
func (c *FeedController) Load(ctx context.Context) {
	c.update(func(s *FeedState) {
		s.Loading = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		var (
			posts []models.Post
			err   error
		)
		if c.social {
			posts, err = c.feed.ListSocialPosts(ctx)
		} else {
			posts, err = c.feed.ListPosts(ctx)
		}
		c.dispatch.Main(func() {
			c.update(func(s *FeedState) {
				s.Loading = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Posts = posts
			})
		})
	})
}

// Create uploads the optional image, creates the post and appends it to the
// list without refetching.
func (c *FeedController) Create(ctx context.Context, text string, image []byte) {
	if err := validation.Struct(validation.PostForm{Message: text, HasImage: len(image) > 0}); err != nil {
		c.fail(err)
		return
	}
	userID := c.session.State().UserID
	if userID == "" {
		c.fail(ErrNotSignedIn)
		return
	}

	c.update(func(s *FeedState) {
		s.Posting = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		post, err := c.createPost(ctx, userID, text, image)
		c.dispatch.Main(func() {
			c.update(func(s *FeedState) {
				s.Posting = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Posts = append(slices.Clip(s.Posts), *post)
			})
			if err == nil {
				c.session.Dispatch(ctx, session.ShowCreatePost{Visible: false})
				c.session.Dispatch(ctx, session.SelectEvent{Event: nil})
			}
		})
	})
}

func (c *FeedController) createPost(ctx context.Context, userID, text string, image []byte) (*models.Post, error) {
	var mediaURL string
	if len(image) > 0 {
		jpeg, err := media.NormalizeJPEG(image)
		if err != nil {
			return nil, err
		}
		if mediaURL, err = c.feed.UploadPostImage(ctx, jpeg); err != nil {
			return nil, err
		}
	}
	return c.feed.CreatePost(ctx, service.NewPost{UserID: userID, Message: text, MediaURL: mediaURL})
}

// Sorted returns the posts oldest first.
func (c *FeedController) Sorted() []models.Post {
	return SortPostsChronologically(c.Snapshot().Posts)
}

// Filter returns the sorted posts matching query.
func (c *FeedController) Filter(query string) []models.Post {
	return FilterPosts(c.Sorted(), query)
}

// LikeCount returns the last known like count of a post.
func (c *FeedController) LikeCount(postID string) int64 {
	return c.Snapshot().LikeCounts[postID]
}

// Like likes a post as the current user.
func (c *FeedController) Like(ctx context.Context, postID string) {
	userID := c.session.State().UserID
	if userID == "" {
		c.fail(ErrNotSignedIn)
		return
	}
	c.dispatch.Async(func() {
		outcome, err := c.likes.LikePost(ctx, postID, userID)
		c.dispatch.Main(func() {
			c.update(func(s *FeedState) {
				switch {
				case err != nil:
					s.Error = message(err)
				case outcome == models.AlreadyLiked:
					s.Notice = "You already liked this post."
				default:
					s.Notice = ""
					s.LikeCounts = maps.Clone(s.LikeCounts)
					if s.LikeCounts == nil {
						s.LikeCounts = make(map[string]int64)
					}
					s.LikeCounts[postID]++
				}
			})
		})
	})
}

// LoadLikeCounts fetches the like count of every loaded post concurrently.
// The first failure cancels the remaining requests.
func (c *FeedController) LoadLikeCounts(ctx context.Context) {
	posts := c.Snapshot().Posts
	c.dispatch.Async(func() {
		fields := map[string]interface{}{"posts": len(posts)}
		observability.LogAsyncOperationStart(ctx, "load_like_counts", fields)
		counts := make(map[string]int64, len(posts))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(likeCountConcurrency)
		for _, p := range posts {
			g.Go(func() error {
				n, err := c.likes.CountPostLikes(gctx, p.ID)
				if err != nil {
					return err
				}
				mu.Lock()
				counts[p.ID] = n
				mu.Unlock()
				return nil
			})
		}
		err := g.Wait()
		if err != nil {
			observability.LogAsyncOperationError(ctx, "load_like_counts", err, fields)
		} else {
			observability.LogAsyncOperationEnd(ctx, "load_like_counts", fields)
		}

		c.dispatch.Main(func() {
			c.update(func(s *FeedState) {
				if err != nil {
					s.Error = message(err)
					return
				}
				s.LikeCounts = counts
			})
		})
	})
}

func (c *FeedController) fail(err error) {
	c.update(func(s *FeedState) { s.Error = message(err) })
}
