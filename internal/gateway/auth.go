package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"mvp/internal/models"
)

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is an auth session issued by the backend.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// SignUpResult is the outcome of a registration. Exactly one of Session and
// User is set: Session when the account is usable immediately, User when the
// backend waits for email confirmation.
type SignUpResult struct {
	Session *Session
	User    *User
}

// Pending reports whether registration awaits email confirmation.
func (r SignUpResult) Pending() bool {
	return r.Session == nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn exchanges email and password for a session and installs its token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	resp, err := c.do(ctx, "sign_in", "token", http.MethodPost, c.authURL+"/token?grant_type=password", body, nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(resp.body, &session); err != nil {
		return nil, models.NewDecodeError("session", err)
	}
	if session.AccessToken == "" || session.User.ID == "" {
		return nil, models.NewDecodeError("session", fmt.Errorf("response carried no session"))
	}

	c.SetAccessToken(session.AccessToken)
	return &session, nil
}

// SignUp registers a new account. redirectTo is the link target of the
// confirmation email and may be empty.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (SignUpResult, error) {
	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return SignUpResult{}, fmt.Errorf("marshal credentials: %w", err)
	}

	endpoint := c.authURL + "/signup"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	resp, err := c.do(ctx, "sign_up", "signup", http.MethodPost, endpoint, body, nil)
	if err != nil {
		return SignUpResult{}, err
	}

	return decodeSignUp(resp.body, c)
}

// decodeSignUp distinguishes a session from a bare user by the presence of
// an access token. Without one the account awaits confirmation.
func decodeSignUp(body []byte, c *Client) (SignUpResult, error) {
	if !gjson.ValidBytes(body) {
		return SignUpResult{}, models.NewDecodeError("sign-up response", fmt.Errorf("invalid JSON"))
	}
	parsed := gjson.ParseBytes(body)

	if token := parsed.Get("access_token"); token.Exists() && token.String() != "" {
		var session Session
		if err := json.Unmarshal(body, &session); err != nil {
			return SignUpResult{}, models.NewDecodeError("session", err)
		}
		c.SetAccessToken(session.AccessToken)
		return SignUpResult{Session: &session}, nil
	}

	userJSON := parsed
	if nested := parsed.Get("user"); nested.IsObject() {
		userJSON = nested
	}
	var user User
	if err := json.Unmarshal([]byte(userJSON.Raw), &user); err != nil {
		return SignUpResult{}, models.NewDecodeError("user", err)
	}
	if user.ID == "" {
		return SignUpResult{}, models.NewDecodeError("user", fmt.Errorf("response carried neither session nor user"))
	}
	return SignUpResult{User: &user}, nil
}

// SignOut revokes the current session. The local token is dropped even when
// the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.AccessToken() == "" {
		return nil
	}
	_, err := c.do(ctx, "sign_out", "logout", http.MethodPost, c.authURL+"/logout", nil, nil)
	c.SetAccessToken("")
	return err
}
