package models

// Like marks a post as liked by a user. The existence of the row is the like.
type Like struct {
	ID        string     `json:"id,omitempty"`
	PostID    string     `json:"post_id"`
	UserID    string     `json:"user_id"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// CommentLike marks a comment as liked by a user.
type CommentLike struct {
	ID        string     `json:"id,omitempty"`
	CommentID string     `json:"comment_id"`
	UserID    string     `json:"user_id"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// LikeOutcome is the result of a like request.
type LikeOutcome int

const (
	// Liked means a new like row was stored.
	Liked LikeOutcome = iota
	// AlreadyLiked means the backend rejected a duplicate like.
	AlreadyLiked
)

func (o LikeOutcome) String() string {
	if o == AlreadyLiked {
		return "already_liked"
	}
	return "liked"
}
