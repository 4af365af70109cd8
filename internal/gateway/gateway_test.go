package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mvp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", AnonKey: "anon"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	t.Parallel()
	_, err := New(Config{AnonKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestSelect_BuildsFiltersAndOrder(t *testing.T) {
	t.Parallel()
	var gotPath, gotQuery, gotKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"id":"c1","message":"hi"}]`))
	})

	q := Select("*").Where(Eq("post_id", "p1"), IsNull("parent_comment_id")).OrderBy("created_at", Ascending)
	rows, err := c.Select(context.Background(), "comments", q)
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/comments", gotPath)
	assert.Equal(t, "select=%2A&post_id=eq.p1&parent_comment_id=is.null&order=created_at.asc", gotQuery)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "Bearer anon", gotAuth)

	decoded, err := DecodeRows[row](rows, "comments")
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: "c1", Message: "hi"}}, decoded)
}

func TestDecodeRows_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	for _, body := range []string{"", "[]", "  ", "null"} {
		out, err := DecodeRows[row](Rows(body), "posts")
		require.NoError(t, err, "body %q", body)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	}
}

func TestDecodeRows_DecodeError(t *testing.T) {
	t.Parallel()
	_, err := DecodeRows[row](Rows(`{"id":1}`), "posts")
	assert.True(t, models.HasCode(err, models.CodeDecode))
}

func TestParseRepresentation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		body     string
		wantKind RepresentationKind
		wantLen  int
		wantCode string
	}{
		{name: "array", body: `[{"id":"a"},{"id":"b"}]`, wantKind: Many, wantLen: 2},
		{name: "object", body: `{"id":"a"}`, wantKind: One, wantLen: 1},
		{name: "empty array", body: `[]`, wantKind: Many, wantLen: 0},
		{name: "empty body", body: ``, wantCode: models.CodeEmptyResponse},
		{name: "scalar", body: `42`, wantCode: models.CodeDecode},
		{name: "garbage", body: `{"id":`, wantCode: models.CodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rep, err := ParseRepresentation([]byte(tt.body), "posts")
			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, rep.Kind)
			assert.Len(t, rep.Items, tt.wantLen)
		})
	}
}

func TestDecodeFirst_EmptyManyIsEmptyResponse(t *testing.T) {
	t.Parallel()
	_, err := DecodeFirst[row](Representation{Kind: Many}, "posts")
	assert.True(t, models.HasCode(err, models.CodeEmptyResponse))
}

func TestInsert_SingletonRepresentation(t *testing.T) {
	t.Parallel()
	var gotPrefer string
	var gotBody map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"p1","message":"hello"}`))
	})

	rep, err := c.Insert(context.Background(), "posts", map[string]string{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "return=representation", gotPrefer)
	assert.Equal(t, "hello", gotBody["message"])
	assert.Equal(t, One, rep.Kind)

	first, err := DecodeFirst[row](rep, "posts")
	require.NoError(t, err)
	assert.Equal(t, "p1", first.ID)
}

func TestInsert_UniqueViolation(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint","details":"Key exists"}`))
	})

	_, err := c.Insert(context.Background(), "likes", map[string]string{"post_id": "p"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Key exists", apiErr.Details)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestUpdate_RequiresFilter(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})
	err := c.Update(context.Background(), "profiles", map[string]string{"name": "x"})
	assert.Error(t, err)
}

func TestUpdate_SendsPatchWithMatch(t *testing.T) {
	t.Parallel()
	var gotMethod, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	})
	err := c.Update(context.Background(), "profiles", map[string]string{"name": "x"}, Eq("id", "u1"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "id=eq.u1", gotQuery)
}

func TestCount_ParsesContentRange(t *testing.T) {
	t.Parallel()
	var gotMethod, gotPrefer string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Range", "0-2/3")
	})
	n, err := c.Count(context.Background(), "likes", Eq("post_id", "p1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, "count=exact", gotPrefer)
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()
	n, err := parseContentRange("*/0")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = parseContentRange("0-9/*")
	assert.Error(t, err)
	_, err = parseContentRange("")
	assert.Error(t, err)
}

func TestSelectSingle_NoRowsIsNotFound(t *testing.T) {
	t.Parallel()
	var gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	})
	_, err := c.SelectSingle(context.Background(), "profiles", Select("*").Where(Eq("id", "u")))
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Equal(t, "application/vnd.pgrst.object+json", gotAccept)
}

func TestSignIn_InstallsToken(t *testing.T) {
	t.Parallel()
	var authHeaders []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","user":{"id":"u1","email":"a@b.c"}}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	session, err := c.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.User.ID)
	assert.Equal(t, "tok", c.AccessToken())

	_, err = c.Select(context.Background(), "posts", Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer anon", "Bearer tok"}, authHeaders)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
	})
	_, err := c.SignIn(context.Background(), "a@b.c", "bad")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.Empty(t, c.AccessToken())
}

func TestSignUp_Outcomes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		body        string
		wantPending bool
		wantUserID  string
	}{
		{
			name:       "session issued",
			body:       `{"access_token":"tok","user":{"id":"u1","email":"a@b.c"}}`,
			wantUserID: "u1",
		},
		{
			name:        "confirmation pending bare user",
			body:        `{"id":"u2","email":"a@b.c","confirmation_sent_at":"2025-01-01T00:00:00Z"}`,
			wantPending: true,
			wantUserID:  "u2",
		},
		{
			name:        "confirmation pending nested user",
			body:        `{"user":{"id":"u3","email":"a@b.c"},"session":null}`,
			wantPending: true,
			wantUserID:  "u3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotRedirect string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotRedirect = r.URL.Query().Get("redirect_to")
				_, _ = w.Write([]byte(tt.body))
			})
			res, err := c.SignUp(context.Background(), "a@b.c", "pw", "mvp://login-callback")
			require.NoError(t, err)
			assert.Equal(t, "mvp://login-callback", gotRedirect)
			assert.Equal(t, tt.wantPending, res.Pending())
			if tt.wantPending {
				require.NotNil(t, res.User)
				assert.Equal(t, tt.wantUserID, res.User.ID)
				assert.Empty(t, c.AccessToken())
			} else {
				require.NotNil(t, res.Session)
				assert.Equal(t, tt.wantUserID, res.Session.User.ID)
				assert.Equal(t, "tok", c.AccessToken())
			}
		})
	}
}

func TestSignUp_TransportFailureIsError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters"}`))
	})
	_, err := c.SignUp(context.Background(), "a@b.c", "pw", "")
	require.Error(t, err)
}

func TestSignOut_ClearsToken(t *testing.T) {
	t.Parallel()
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	c.SetAccessToken("tok")
	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Empty(t, c.AccessToken())
}

func TestStorage_PutAndPublicURL(t *testing.T) {
	t.Parallel()
	var gotPath, gotType string
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"post-images/x.jpg"}`))
	})

	err := c.Storage().Put(context.Background(), "post-images", "x.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/post-images/x.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, []byte{0xff, 0xd8}, gotBody)
	assert.Equal(t, c.BaseURL()+"/storage/v1/object/public/post-images/x.jpg", c.Storage().PublicURL("post-images", "x.jpg"))
}

func TestParseError_NonJSONBody(t *testing.T) {
	t.Parallel()
	err := parseError([]byte("upstream down"), http.StatusBadGateway)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.False(t, IsUniqueViolation(err))
	assert.False(t, IsUnauthorized(err))
}
