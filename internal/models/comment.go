package models

// Comment is a row of the comments table. A non-nil ParentCommentID makes
// the comment a reply.
type Comment struct {
	ID              string     `json:"id"`
	PostID          string     `json:"post_id"`
	UserID          string     `json:"user_id"`
	Comment         string     `json:"comment"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
	ParentCommentID *string    `json:"parent_comment_id"`
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentCommentID != nil && *c.ParentCommentID != ""
}

// CommentThread is a comment together with its fetched replies.
type CommentThread struct {
	Comment Comment
	Replies []CommentThread
}
