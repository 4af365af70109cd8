package viewstate

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"mvp/internal/media"
	"mvp/internal/models"
	"mvp/internal/observability"
	"mvp/internal/service"
	"mvp/internal/session"
	"mvp/internal/validation"
)

// AuthState is the state of the login and registration screens.
type AuthState struct {
	Loading bool
	Error   string
	// PendingConfirmation is set after a registration that awaits email
	// confirmation.
	PendingConfirmation bool
	SignedIn            bool
}

type LoginController struct {
	observable[AuthState]

	auth     AuthAPI
	profiles ProfileAPI
	tokens   TokenStore
	session  *session.Store
	dispatch Dispatcher
}

// NewLoginController creates the login controller. tokens may be nil.
func NewLoginController(auth AuthAPI, profiles ProfileAPI, tokens TokenStore, sess *session.Store, d Dispatcher) *LoginController {
	return &LoginController{auth: auth, profiles: profiles, tokens: tokens, session: sess, dispatch: d}
}

// Login signs in and records the user in the session. The displayed
// username comes from the profile when it exists, else the email.
func (c *LoginController) Login(ctx context.Context, email, password string) {
	email = strings.TrimSpace(email)
	if err := validation.Struct(validation.LoginForm{Email: email, Password: password}); err != nil {
		c.update(func(s *AuthState) { s.Error = message(err) })
		return
	}
	c.update(func(s *AuthState) {
		s.Loading = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		auth, err := c.auth.SignIn(ctx, email, password)
		username := ""
		if err == nil {
			saveToken(ctx, c.tokens, auth.AccessToken)
			username = displayName(ctx, c.profiles, auth)
		}
		c.dispatch.Main(func() {
			if err == nil {
				c.session.Dispatch(ctx, session.SignedIn{UserID: auth.UserID, Username: username})
			}
			c.update(func(s *AuthState) {
				s.Loading = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.SignedIn = true
			})
		})
	})
}

type RegisterController struct {
	observable[AuthState]

	auth     AuthAPI
	tokens   TokenStore
	session  *session.Store
	dispatch Dispatcher
}

// NewRegisterController creates the registration controller. tokens may be nil.
func NewRegisterController(auth AuthAPI, tokens TokenStore, sess *session.Store, d Dispatcher) *RegisterController {
	return &RegisterController{auth: auth, tokens: tokens, session: sess, dispatch: d}
}

// Register creates an account. When the backend issues a session the user
// is signed in; otherwise the screen shows that confirmation is pending.
func (c *RegisterController) Register(ctx context.Context, email, password string) {
	email = strings.TrimSpace(email)
	if err := validation.Struct(validation.RegisterForm{Email: email, Password: password}); err != nil {
		c.update(func(s *AuthState) { s.Error = message(err) })
		return
	}
	c.update(func(s *AuthState) {
		s.Loading = true
		s.Error = ""
		s.PendingConfirmation = false
	})
	c.dispatch.Async(func() {
		out, err := c.auth.Register(ctx, email, password)
		if err == nil && out.Session != nil {
			saveToken(ctx, c.tokens, out.Session.AccessToken)
		}
		c.dispatch.Main(func() {
			if err == nil && out.Status == service.Authenticated {
				c.session.Dispatch(ctx, session.SignedIn{UserID: out.UserID, Username: email})
			}
			c.update(func(s *AuthState) {
				s.Loading = false
				switch {
				case err != nil:
					s.Error = message(err)
				case out.Status == service.PendingConfirmation:
					s.PendingConfirmation = true
				default:
					s.SignedIn = true
				}
			})
		})
	})
}

// OnboardingState is the profile completion screen state.
type OnboardingState struct {
	Interests []string
	Saving    bool
	Error     string
	Done      bool
}

type OnboardingController struct {
	observable[OnboardingState]

	profiles ProfileAPI
	session  *session.Store
	dispatch Dispatcher
}

func NewOnboardingController(profiles ProfileAPI, sess *session.Store, d Dispatcher) *OnboardingController {
	return &OnboardingController{profiles: profiles, session: sess, dispatch: d}
}

// Toggle selects or deselects an interest. Unknown interests are ignored.
func (c *OnboardingController) Toggle(interest string) {
	if !slices.Contains(models.InterestOptions, interest) {
		return
	}
	c.update(func(s *OnboardingState) {
		if i := slices.Index(s.Interests, interest); i >= 0 {
			s.Interests = slices.Delete(slices.Clone(s.Interests), i, i+1)
			return
		}
		s.Interests = append(slices.Clip(s.Interests), interest)
	})
}

// Complete saves the profile and marks the user as onboarded. Without an
// image the default profile image URL is stored.
func (c *OnboardingController) Complete(ctx context.Context, name, username string, image []byte) {
	interests := c.Snapshot().Interests
	form := validation.OnboardingForm{Name: name, Username: strings.TrimSpace(username), Interests: interests}
	if err := validation.Struct(form); err != nil {
		c.update(func(s *OnboardingState) { s.Error = message(err) })
		return
	}
	userID := c.session.State().UserID
	if userID == "" {
		c.update(func(s *OnboardingState) { s.Error = message(ErrNotSignedIn) })
		return
	}

	c.update(func(s *OnboardingState) {
		s.Saving = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		_, err := saveProfile(ctx, c.profiles, userID, models.ProfileUpdate{
			Name:         strings.TrimSpace(name),
			Username:     form.Username,
			ProfileImage: models.DefaultProfileImageURL,
			Interests:    interests,
		}, image)
		c.dispatch.Main(func() {
			if err == nil {
				c.session.Dispatch(ctx, session.UsernameChanged{Username: form.Username})
				c.session.Dispatch(ctx, session.OnboardingCompleted{})
			}
			c.update(func(s *OnboardingState) {
				s.Saving = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Done = true
			})
		})
	})
}

// ProfileState is the profile screen state.
type ProfileState struct {
	Profile *models.Profile
	Loading bool
	Saving  bool
	Error   string
}

type ProfileController struct {
	observable[ProfileState]

	profiles ProfileAPI
	auth     AuthAPI
	tokens   TokenStore
	session  *session.Store
	dispatch Dispatcher
}

// NewProfileController creates the profile controller. tokens may be nil.
func NewProfileController(profiles ProfileAPI, auth AuthAPI, tokens TokenStore, sess *session.Store, d Dispatcher) *ProfileController {
	return &ProfileController{profiles: profiles, auth: auth, tokens: tokens, session: sess, dispatch: d}
}

func (c *ProfileController) Load(ctx context.Context) {
	userID := c.session.State().UserID
	if userID == "" {
		c.update(func(s *ProfileState) { s.Error = message(ErrNotSignedIn) })
		return
	}
	c.update(func(s *ProfileState) {
		s.Loading = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		profile, err := c.profiles.FetchProfile(ctx, userID)
		c.dispatch.Main(func() {
			c.update(func(s *ProfileState) {
				s.Loading = false
				if err != nil {
					s.Error = message(err)
					return
				}
				s.Profile = profile
			})
		})
	})
}

// Save updates name and username, and the image when one is given. The
// stored interests and image are kept; when no profile has been loaded yet
// it is fetched first.
func (c *ProfileController) Save(ctx context.Context, name, username string, image []byte) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		c.update(func(s *ProfileState) { s.Error = message(models.NewValidationError(err.Error())) })
		return
	}
	userID := c.session.State().UserID
	if userID == "" {
		c.update(func(s *ProfileState) { s.Error = message(ErrNotSignedIn) })
		return
	}

	loaded := c.Snapshot().Profile
	c.update(func(s *ProfileState) {
		s.Saving = true
		s.Error = ""
	})
	c.dispatch.Async(func() {
		current := loaded
		var err error
		if current == nil {
			current, err = c.profiles.FetchProfile(ctx, userID)
		}
		var saved models.ProfileUpdate
		if err == nil {
			saved, err = saveProfile(ctx, c.profiles, userID, models.ProfileUpdate{
				Name:         strings.TrimSpace(name),
				Username:     username,
				ProfileImage: models.Deref(current.ProfileImage),
				Interests:    current.Interests,
			}, image)
		}
		c.dispatch.Main(func() {
			if err == nil {
				c.session.Dispatch(ctx, session.UsernameChanged{Username: username})
			}
			c.update(func(s *ProfileState) {
				s.Saving = false
				if err != nil {
					s.Error = message(err)
					return
				}
				p := *current
				p.Name = models.StringPtr(saved.Name)
				p.Username = saved.Username
				p.ProfileImage = models.StringPtr(saved.ProfileImage)
				s.Profile = &p
			})
		})
	})
}

// SignOut ends the session. The local session is cleared even when the
// backend call fails.
func (c *ProfileController) SignOut(ctx context.Context) {
	c.dispatch.Async(func() {
		err := c.auth.SignOut(ctx)
		if c.tokens != nil {
			if clearErr := c.tokens.Clear(ctx); clearErr != nil {
				observability.GlobalLogger.WarnContext(ctx, "clearing access token failed",
					slog.String("error", clearErr.Error()),
				)
			}
		}
		c.dispatch.Main(func() {
			c.session.Dispatch(ctx, session.SignedOut{})
			c.update(func(s *ProfileState) {
				s.Profile = nil
				if err != nil {
					s.Error = message(err)
				}
			})
		})
	})
}

// saveProfile uploads image when present and writes the profile.
func saveProfile(ctx context.Context, profiles ProfileAPI, userID string, update models.ProfileUpdate, image []byte) (models.ProfileUpdate, error) {
	if len(image) > 0 {
		jpeg, err := media.NormalizeJPEG(image)
		if err != nil {
			return update, err
		}
		url, err := profiles.UploadProfileImage(ctx, jpeg)
		if err != nil {
			return update, err
		}
		update.ProfileImage = url
	}
	return update, profiles.UpdateProfile(ctx, userID, update)
}

func saveToken(ctx context.Context, tokens TokenStore, token string) {
	if tokens == nil || token == "" {
		return
	}
	if err := tokens.Save(ctx, token); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "saving access token failed",
			slog.String("error", err.Error()),
		)
	}
}

func displayName(ctx context.Context, profiles ProfileAPI, auth *service.AuthSession) string {
	if profiles != nil {
		if p, err := profiles.FetchProfile(ctx, auth.UserID); err == nil && p.Username != "" {
			return p.Username
		}
	}
	return auth.Email
}
