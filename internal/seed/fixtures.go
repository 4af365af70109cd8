// Package seed fills the dev backend database with demo data. Data is either
// generated with gofakeit or loaded from a YAML fixture file. These helpers
// are intended for development and testing only.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPassword is used for fixture users that do not set one.
const DefaultPassword = "password123"

// Fixtures is the document format of SEED_FIXTURES files.
type Fixtures struct {
	Users  []UserFixture  `yaml:"users"`
	Posts  []PostFixture  `yaml:"posts"`
	Events []EventFixture `yaml:"events"`
}

// UserFixture becomes an account plus its profile.
type UserFixture struct {
	Email        string    `yaml:"email"`
	Password     string    `yaml:"password"`
	Username     string    `yaml:"username"`
	Name         string    `yaml:"name"`
	ProfileImage string    `yaml:"profile_image"`
	Interests    []string  `yaml:"interests"`
	Unconfirmed  bool      `yaml:"unconfirmed"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// PostFixture references its author and likers by email or username.
type PostFixture struct {
	Author    string           `yaml:"author"`
	Message   string           `yaml:"message"`
	MediaURL  string           `yaml:"media_url"`
	CreatedAt time.Time        `yaml:"created_at"`
	LikedBy   []string         `yaml:"liked_by"`
	Comments  []CommentFixture `yaml:"comments"`
}

// CommentFixture is a comment with its replies.
type CommentFixture struct {
	Author  string           `yaml:"author"`
	Text    string           `yaml:"text"`
	LikedBy []string         `yaml:"liked_by"`
	Replies []CommentFixture `yaml:"replies"`
}

type EventFixture struct {
	Creator     string    `yaml:"creator"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Location    string    `yaml:"location"`
	Date        time.Time `yaml:"date"`
	Price       *float64  `yaml:"price"`
	TicketInfo  string    `yaml:"ticket_info"`
	Image       string    `yaml:"image"`
}

// LoadFixtures reads and parses a fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	f, err := ParseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFixtures decodes a fixture document. Unknown keys are rejected.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if u.Email == "" {
			return fmt.Errorf("users[%d]: email is required", i)
		}
		if seen[u.Email] {
			return fmt.Errorf("users[%d]: duplicate email %s", i, u.Email)
		}
		seen[u.Email] = true
	}
	for i, p := range f.Posts {
		if p.Author == "" {
			return fmt.Errorf("posts[%d]: author is required", i)
		}
		if p.Message == "" && p.MediaURL == "" {
			return fmt.Errorf("posts[%d]: message or media_url is required", i)
		}
	}
	for i, e := range f.Events {
		if e.Title == "" {
			return fmt.Errorf("events[%d]: title is required", i)
		}
	}
	return nil
}

var errUnknownUser = errors.New("unknown user")
