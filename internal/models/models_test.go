package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2025-01-05T10:00:00Z"},
		{in: "2025-01-05T10:00:00.123456+00:00"},
		{in: "2025-01-05T10:00:00.1-02:30"},
		{in: "2025-01-05T10:00:00", wantErr: true},
		{in: "2025-01-05 10:00:00Z", wantErr: true},
		{in: "2025-01-05", wantErr: true},
		{in: "2025-13-05T10:00:00Z", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		_, err := ParseTimestamp(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

func TestTimestamp_JSON(t *testing.T) {
	t.Parallel()
	var holder struct {
		At *Timestamp `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2025-01-05T12:00:00.5+02:00"}`), &holder))
	require.NotNil(t, holder.At)
	assert.True(t, holder.At.Equal(time.Date(2025, 1, 5, 10, 0, 0, 500_000_000, time.UTC)))

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2025-01-05T10:00:00.500000Z"}`, string(out))

	holder.At = NewTimestamp(time.Date(2025, 1, 5, 12, 0, 0, 123_456_789, time.FixedZone("CET", 3600)))
	out, err = json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2025-01-05T11:00:00.123456Z"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"at":null}`), &holder))
	assert.Nil(t, holder.At)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"05.01.2025"}`), &holder))
}

func TestTimestamp_TimeOrMin(t *testing.T) {
	t.Parallel()
	var ts *Timestamp
	assert.True(t, ts.TimeOrMin().IsZero())
	now := time.Now()
	assert.Equal(t, now, NewTimestamp(now).TimeOrMin())
}

func TestPost_DecodesAuthorObjectOrArray(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		body       string
		wantAuthor *Author
	}{
		{
			name:       "object",
			body:       `{"id":"p1","user_id":"u1","profiles":{"username":"alice","profile_image":"https://img/a.jpg"}}`,
			wantAuthor: &Author{Username: "alice", ProfileImage: StringPtr("https://img/a.jpg")},
		},
		{
			name:       "array uses first element",
			body:       `{"id":"p1","user_id":"u1","profiles":[{"username":"alice"},{"username":"bob"}]}`,
			wantAuthor: &Author{Username: "alice"},
		},
		{
			name: "empty array",
			body: `{"id":"p1","user_id":"u1","profiles":[]}`,
		},
		{
			name: "null",
			body: `{"id":"p1","user_id":"u1","profiles":null}`,
		},
		{
			name: "missing",
			body: `{"id":"p1","user_id":"u1"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p Post
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, "p1", p.ID)
			assert.Equal(t, "u1", p.UserID)
			assert.Equal(t, tt.wantAuthor, p.Author)
		})
	}
}

func TestPost_EncodeOmitsJoin(t *testing.T) {
	t.Parallel()
	p := Post{
		ID:      "p1",
		UserID:  "u1",
		Message: StringPtr("hi"),
		Author:  &Author{Username: "alice"},
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1","user_id":"u1","message":"hi"}`, string(out))
}

func TestPost_HasContent(t *testing.T) {
	t.Parallel()
	assert.False(t, Post{}.HasContent())
	assert.True(t, Post{Message: StringPtr("x")}.HasContent())
	assert.True(t, Post{MediaURL: StringPtr("https://x")}.HasContent())
	assert.False(t, Post{Message: StringPtr("")}.HasContent())
}

func TestSocialPost_ToPost(t *testing.T) {
	t.Parallel()
	var sp SocialPost
	body := `{"id":"p1","userId":"u1","mediaUrl":"https://m","message":"hey","createdAt":"2025-02-02T08:00:00Z","username":"bob","profileImage":null}`
	require.NoError(t, json.Unmarshal([]byte(body), &sp))

	p := sp.Post()
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "https://m", Deref(p.MediaURL))
	require.NotNil(t, p.Author)
	assert.Equal(t, "bob", p.Author.Username)
	assert.Equal(t, "bob", p.Username())
	assert.Nil(t, p.Author.ProfileImage)
}

func TestProfile_Validate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Profile{ID: "u1", Username: "alice"}.Validate())
	assert.True(t, HasCode(Profile{Username: "alice"}.Validate(), CodeValidation))
	assert.True(t, HasCode(Profile{ID: "u1", Username: " "}.Validate(), CodeValidation))
}

func TestComment_IsReply(t *testing.T) {
	t.Parallel()
	assert.False(t, Comment{}.IsReply())
	assert.True(t, Comment{ParentCommentID: StringPtr("c1")}.IsReply())
}

func TestUserMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Bitte alle Felder ausfüllen", UserMessage(NewValidationError("Bitte alle Felder ausfüllen")))
	assert.Equal(t, "Internal error: boom", UserMessage(NewInternalError(errors.New("boom"))))
	assert.Equal(t, "posts not created: no data received", UserMessage(NewEmptyResponseError("posts")))
}

func TestLikeOutcome_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "liked", Liked.String())
	assert.Equal(t, "already_liked", AlreadyLiked.String())
}
