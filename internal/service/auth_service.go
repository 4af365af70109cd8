package service

import (
	"context"

	"mvp/internal/models"
)

// AuthSession is the identity of a signed-in user.
type AuthSession struct {
	UserID      string
	Email       string
	AccessToken string
}

// RegisterStatus tells whether a new account can be used right away.
type RegisterStatus int

const (
	// Authenticated means registration returned a session.
	Authenticated RegisterStatus = iota
	// PendingConfirmation means the user must confirm the email first.
	PendingConfirmation
)

func (s RegisterStatus) String() string {
	if s == PendingConfirmation {
		return "pending_confirmation"
	}
	return "authenticated"
}

// RegisterOutcome is the result of Register. Session is set only when
// Status is Authenticated.
type RegisterOutcome struct {
	Status  RegisterStatus
	UserID  string
	Session *AuthSession
}

type AuthService struct {
	auth       AuthGateway
	redirectTo string
}

// NewAuthService creates an AuthService. redirectTo is the link target of
// confirmation emails.
func NewAuthService(auth AuthGateway, redirectTo string) *AuthService {
	return &AuthService{auth: auth, redirectTo: redirectTo}
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, observe(ctx, "AuthService", "SignIn", nil, err)
	}
	out := &AuthSession{UserID: session.User.ID, Email: session.User.Email, AccessToken: session.AccessToken}
	_ = observe(ctx, "AuthService", "SignIn", map[string]interface{}{"user_id": out.UserID}, nil)
	return out, nil
}

// Register creates an account. Pending email confirmation is a successful
// outcome, not an error.
func (s *AuthService) Register(ctx context.Context, email, password string) (RegisterOutcome, error) {
	result, err := s.auth.SignUp(ctx, email, password, s.redirectTo)
	if err != nil {
		return RegisterOutcome{}, observe(ctx, "AuthService", "Register", nil, err)
	}

	var out RegisterOutcome
	switch {
	case result.Session != nil:
		out = RegisterOutcome{
			Status: Authenticated,
			UserID: result.Session.User.ID,
			Session: &AuthSession{
				UserID:      result.Session.User.ID,
				Email:       result.Session.User.Email,
				AccessToken: result.Session.AccessToken,
			},
		}
	case result.User != nil:
		out = RegisterOutcome{Status: PendingConfirmation, UserID: result.User.ID}
	default:
		return RegisterOutcome{}, observe(ctx, "AuthService", "Register", nil, models.NewEmptyResponseError("account"))
	}

	_ = observe(ctx, "AuthService", "Register", map[string]interface{}{
		"user_id": out.UserID,
		"status":  out.Status.String(),
	}, nil)
	return out, nil
}

func (s *AuthService) SignOut(ctx context.Context) error {
	return observe(ctx, "AuthService", "SignOut", nil, s.auth.SignOut(ctx))
}
