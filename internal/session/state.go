// Package session holds the process-wide app state: who is signed in,
// whether they finished onboarding, and a few navigation flags.
package session

import "mvp/internal/models"

// State is an immutable snapshot of the app state. LoggedIn, UserID,
// Username and Onboarded survive restarts; the remaining fields are
// transient.
type State struct {
	LoggedIn  bool
	UserID    string
	Username  string
	Onboarded bool

	ShowCreatePost  bool
	ShowCreateEvent bool
	SelectedEvent   *models.Event
}

// Action is a state transition request.
type Action interface {
	Name() string
}

// SignedIn records a successful sign-in.
type SignedIn struct {
	UserID   string
	Username string
}

// SignedOut clears the login. The per-user onboarding flag is kept.
type SignedOut struct{}

// UserChanged switches the current user id.
type UserChanged struct {
	UserID string
}

// UsernameChanged updates the displayed username.
type UsernameChanged struct {
	Username string
}

// OnboardingCompleted marks the current user as onboarded.
type OnboardingCompleted struct{}

// ShowCreatePost toggles the new-post screen.
type ShowCreatePost struct {
	Visible bool
}

// ShowCreateEvent toggles the new-event screen.
type ShowCreateEvent struct {
	Visible bool
}

// SelectEvent selects the event a new post refers to. Nil clears it.
type SelectEvent struct {
	Event *models.Event
}

func (SignedIn) Name() string            { return "signed_in" }
func (SignedOut) Name() string           { return "signed_out" }
func (UserChanged) Name() string         { return "user_changed" }
func (UsernameChanged) Name() string     { return "username_changed" }
func (OnboardingCompleted) Name() string { return "onboarding_completed" }
func (ShowCreatePost) Name() string      { return "show_create_post" }
func (ShowCreateEvent) Name() string     { return "show_create_event" }
func (SelectEvent) Name() string         { return "select_event" }

// OnboardingLookup reports whether userID finished onboarding.
type OnboardingLookup func(userID string) bool

// Reduce applies action to s. A change of user id reloads the onboarding
// flag through onboarded; an empty user id is never onboarded.
func Reduce(s State, action Action, onboarded OnboardingLookup) State {
	switch a := action.(type) {
	case SignedIn:
		s.LoggedIn = true
		s.Username = a.Username
		s = switchUser(s, a.UserID, onboarded)
	case SignedOut:
		s.LoggedIn = false
		s.Username = ""
		s = switchUser(s, "", onboarded)
		s.ShowCreatePost = false
		s.ShowCreateEvent = false
		s.SelectedEvent = nil
	case UserChanged:
		s = switchUser(s, a.UserID, onboarded)
	case UsernameChanged:
		s.Username = a.Username
	case OnboardingCompleted:
		if s.UserID != "" {
			s.Onboarded = true
		}
	case ShowCreatePost:
		s.ShowCreatePost = a.Visible
	case ShowCreateEvent:
		s.ShowCreateEvent = a.Visible
	case SelectEvent:
		s.SelectedEvent = a.Event
	}
	return s
}

func switchUser(s State, userID string, onboarded OnboardingLookup) State {
	s.UserID = userID
	s.Onboarded = userID != "" && onboarded != nil && onboarded(userID)
	return s
}
