package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Author is the denormalized author view embedded in a post.
type Author struct {
	Username     string  `json:"username"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// Post is a feed entry: an optional image plus an optional message.
type Post struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	MediaURL  *string    `json:"media_url,omitempty"`
	Message   *string    `json:"message,omitempty"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	// Author is populated from the "profiles" join and never sent back.
	Author *Author `json:"-"`
}

// HasContent reports whether the post carries media or text.
func (p Post) HasContent() bool {
	return Deref(p.MediaURL) != "" || Deref(p.Message) != ""
}

// Username returns the author's username when the join was loaded.
func (p Post) Username() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.Username
}

// UnmarshalJSON decodes a post row. The "profiles" join arrives either as a
// single object or as an array whose first element is used.
func (p *Post) UnmarshalJSON(data []byte) error {
	type postRow Post
	var aux struct {
		postRow
		Profiles json.RawMessage `json:"profiles"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Post(aux.postRow)
	p.Author = nil

	joined := gjson.ParseBytes(aux.Profiles)
	switch {
	case joined.IsObject():
		var author Author
		if err := json.Unmarshal([]byte(joined.Raw), &author); err != nil {
			return fmt.Errorf("decode post author: %w", err)
		}
		p.Author = &author
	case joined.IsArray():
		first := joined.Get("0")
		if !first.Exists() || !first.IsObject() {
			return nil
		}
		var author Author
		if err := json.Unmarshal([]byte(first.Raw), &author); err != nil {
			return fmt.Errorf("decode post author: %w", err)
		}
		p.Author = &author
	}
	return nil
}

// SocialPost is a row of the social_posts view, which flattens the author
// into the post and uses camelCase keys.
type SocialPost struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	MediaURL     *string    `json:"mediaUrl,omitempty"`
	Message      *string    `json:"message,omitempty"`
	CreatedAt    *Timestamp `json:"createdAt,omitempty"`
	Username     *string    `json:"username,omitempty"`
	ProfileImage *string    `json:"profileImage,omitempty"`
}

// Post converts the view row into a Post with its author populated.
func (s SocialPost) Post() Post {
	post := Post{
		ID:        s.ID,
		UserID:    s.UserID,
		MediaURL:  s.MediaURL,
		Message:   s.Message,
		CreatedAt: s.CreatedAt,
	}
	if s.Username != nil || s.ProfileImage != nil {
		post.Author = &Author{Username: Deref(s.Username), ProfileImage: s.ProfileImage}
	}
	return post
}
