package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mvp/internal/database"
	"mvp/internal/models"
	"mvp/internal/observability"
)

// Summary counts the rows written by Apply.
type Summary struct {
	Users        int
	Posts        int
	Events       int
	Comments     int
	Likes        int
	CommentLikes int
}

// Seeder writes fixtures into the dev backend database.
type Seeder struct {
	db       *gorm.DB
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:       db,
		logger:   observability.GlobalLogger.Logger,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// ClearAll deletes every seeded table, dependents first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	rows := database.PersistentModels()
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(rows) - 1; i >= 0; i-- {
		if err := tx.Delete(rows[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", rows[i], err)
		}
	}
	s.logger.InfoContext(ctx, "database cleared")
	return nil
}

// Apply writes f in one transaction. Authors and likers are resolved by
// email or username among the users of f and the accounts already stored.
func (s *Seeder) Apply(ctx context.Context, f *Fixtures) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := &writer{tx: tx, seeder: s, ids: make(map[string]string), hashes: make(map[string]string)}
		if err := w.users(f.Users, &sum); err != nil {
			return err
		}
		if err := w.posts(f.Posts, &sum); err != nil {
			return err
		}
		return w.events(f.Events, &sum)
	})
	if err != nil {
		return Summary{}, err
	}
	s.logger.InfoContext(ctx, "database seeded",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("events", sum.Events),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
	)
	return sum, nil
}

type writer struct {
	tx     *gorm.DB
	seeder *Seeder
	// ids maps lowercased emails and usernames to profile ids.
	ids    map[string]string
	hashes map[string]string
	clock  time.Time
}

func (w *writer) users(users []UserFixture, sum *Summary) error {
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		username := u.Username
		if username == "" {
			username, _, _ = strings.Cut(email, "@")
		}
		hash, err := w.hash(u.Password)
		if err != nil {
			return err
		}
		created := u.CreatedAt
		if created.IsZero() {
			created = w.seeder.now()
		}
		createdAt := database.FormatTime(created)

		account := database.Account{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Role:         "authenticated",
			Confirmed:    !u.Unconfirmed,
			CreatedAt:    createdAt,
		}
		profile := database.Profile{
			ID:           account.ID,
			Email:        email,
			Username:     username,
			Name:         models.StringPtr(u.Name),
			ProfileImage: models.StringPtr(u.ProfileImage),
			CreatedAt:    &createdAt,
		}
		if len(u.Interests) > 0 {
			raw, err := json.Marshal(u.Interests)
			if err != nil {
				return fmt.Errorf("user %s: %w", email, err)
			}
			profile.Interests = models.StringPtr(string(raw))
		}

		if err := w.tx.Create(&account).Error; err != nil {
			return fmt.Errorf("create account %s: %w", email, err)
		}
		if err := w.tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create profile %s: %w", email, err)
		}
		w.ids[email] = account.ID
		w.ids[strings.ToLower(username)] = account.ID
		sum.Users++
	}
	return nil
}

func (w *writer) posts(posts []PostFixture, sum *Summary) error {
	for i, p := range posts {
		authorID, err := w.resolve(p.Author)
		if err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = w.seeder.now().Add(-time.Duration(len(posts)-i) * time.Minute)
		}
		createdAt := database.FormatTime(created)
		post := database.Post{
			ID:        uuid.NewString(),
			UserID:    authorID,
			MediaURL:  models.StringPtr(p.MediaURL),
			Message:   models.StringPtr(p.Message),
			CreatedAt: &createdAt,
		}
		if err := w.tx.Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		for _, liker := range p.LikedBy {
			userID, err := w.resolve(liker)
			if err != nil {
				return fmt.Errorf("posts[%d] liked_by: %w", i, err)
			}
			like := database.Like{ID: uuid.NewString(), PostID: post.ID, UserID: userID, CreatedAt: &createdAt}
			if err := w.tx.Create(&like).Error; err != nil {
				return fmt.Errorf("create like: %w", err)
			}
			sum.Likes++
		}

		w.clock = created
		if err := w.comments(post.ID, nil, p.Comments, sum); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
	}
	return nil
}

// comments writes a thread depth first. Each comment is one second after the
// previous one so threads keep their fixture order.
func (w *writer) comments(postID string, parentID *string, comments []CommentFixture, sum *Summary) error {
	for _, c := range comments {
		userID, err := w.resolve(c.Author)
		if err != nil {
			return err
		}
		w.clock = w.clock.Add(time.Second)
		createdAt := database.FormatTime(w.clock)
		comment := database.Comment{
			ID:              uuid.NewString(),
			PostID:          postID,
			UserID:          userID,
			Comment:         c.Text,
			CreatedAt:       &createdAt,
			ParentCommentID: parentID,
		}
		if err := w.tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		sum.Comments++

		for _, liker := range c.LikedBy {
			likerID, err := w.resolve(liker)
			if err != nil {
				return err
			}
			like := database.CommentLike{ID: uuid.NewString(), CommentID: comment.ID, UserID: likerID, CreatedAt: &createdAt}
			if err := w.tx.Create(&like).Error; err != nil {
				return fmt.Errorf("create comment like: %w", err)
			}
			sum.CommentLikes++
		}

		id := comment.ID
		if err := w.comments(postID, &id, c.Replies, sum); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) events(events []EventFixture, sum *Summary) error {
	now := database.FormatTime(w.seeder.now())
	for i, e := range events {
		event := database.Event{
			ID:          uuid.NewString(),
			Title:       e.Title,
			Description: models.StringPtr(e.Description),
			Location:    models.StringPtr(e.Location),
			Price:       e.Price,
			TicketInfo:  models.StringPtr(e.TicketInfo),
			EventImage:  models.StringPtr(e.Image),
			CreatedAt:   &now,
		}
		if e.Creator != "" {
			creatorID, err := w.resolve(e.Creator)
			if err != nil {
				return fmt.Errorf("events[%d]: %w", i, err)
			}
			event.CreatorID = &creatorID
		}
		if !e.Date.IsZero() {
			event.EventDate = models.StringPtr(database.FormatTime(e.Date))
		}
		if err := w.tx.Create(&event).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		sum.Events++
	}
	return nil
}

// resolve finds a profile id by email or username, looking at stored
// profiles when the reference is not part of the fixture set.
func (w *writer) resolve(ref string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(ref))
	if id, ok := w.ids[key]; ok {
		return id, nil
	}
	var profile database.Profile
	err := w.tx.Where("lower(email) = ? OR lower(username) = ?", key, key).Limit(1).Find(&profile).Error
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	if profile.ID == "" {
		return "", fmt.Errorf("%w %q", errUnknownUser, ref)
	}
	w.ids[key] = profile.ID
	return profile.ID, nil
}

func (w *writer) hash(password string) (string, error) {
	if password == "" {
		password = DefaultPassword
	}
	if h, ok := w.hashes[password]; ok {
		return h, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), w.seeder.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	w.hashes[password] = string(h)
	return string(h), nil
}
