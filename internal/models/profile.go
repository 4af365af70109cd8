// Package models contains the domain entities exchanged with the backend.
package models

import "strings"

// Profile is a row of the profiles table.
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	Name         *string    `json:"name,omitempty"`
	ProfileImage *string    `json:"profile_image,omitempty"`
	Interests    []string   `json:"interests,omitempty"`
	Role         *string    `json:"role,omitempty"`
	CreatedAt    *Timestamp `json:"created_at,omitempty"`
}

// Validate checks the invariants of a persisted profile.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return NewValidationError("profile id is required")
	}
	if strings.TrimSpace(p.Username) == "" {
		return NewValidationError("profile username is required")
	}
	return nil
}

// ProfileUpdate is the payload sent when a user edits or completes a profile.
type ProfileUpdate struct {
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	ProfileImage string   `json:"profile_image"`
	Interests    []string `json:"interests"`
}

// InterestOptions are the tags offered during onboarding.
var InterestOptions = []string{
	"Abenteuer", "Kulinarik", "Kultur", "Sport", "Musik", "Party",
	"Outdoor", "Reisen", "Entspannung", "Workshops", "Kreativ",
}

// DefaultProfileImageURL is stored when onboarding completes without a picture.
const DefaultProfileImageURL = "https://example.com/default-profile.jpg"

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
