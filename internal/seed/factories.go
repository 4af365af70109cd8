package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"mvp/internal/models"
)

// Options controls the generated demo data set.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumEvents   int
	MaxComments int
	// Seed makes generation reproducible. Zero seeds from the clock.
	Seed        int64
	MaxDays     int
	ShouldClean bool
}

// DefaultOptions is the data set used by the dev backend when seeding
// without a fixture file.
func DefaultOptions() Options {
	return Options{
		NumUsers:    8,
		NumPosts:    30,
		NumEvents:   6,
		MaxComments: 4,
		MaxDays:     30,
	}
}

// Generate builds a fixture set with gofakeit. All users share
// DefaultPassword.
func Generate(opts Options, now time.Time) *Fixtures {
	seed := opts.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	faker := gofakeit.New(seed)
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}

	f := &Fixtures{}
	for i := 0; i < opts.NumUsers; i++ {
		f.Users = append(f.Users, buildUser(faker, i, now, maxDays))
	}
	if len(f.Users) == 0 {
		return f
	}

	for i := 0; i < opts.NumPosts; i++ {
		f.Posts = append(f.Posts, buildPost(faker, f.Users, opts.MaxComments, now, maxDays))
	}
	for i := 0; i < opts.NumEvents; i++ {
		f.Events = append(f.Events, buildEvent(faker, f.Users, now))
	}
	return f
}

func buildUser(faker *gofakeit.Faker, i int, now time.Time, maxDays int) UserFixture {
	first := faker.FirstName()
	last := faker.LastName()
	handle := strings.ToLower(first) + fmt.Sprintf("%d", i+1)

	interests := append([]string(nil), models.InterestOptions...)
	faker.ShuffleStrings(interests)

	return UserFixture{
		Email:        handle + "@example.com",
		Password:     DefaultPassword,
		Username:     handle,
		Name:         first + " " + last,
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
		Interests:    interests[:faker.Number(1, 3)],
		CreatedAt:    pastTime(faker, now, maxDays),
	}
}

func buildPost(faker *gofakeit.Faker, users []UserFixture, maxComments int, now time.Time, maxDays int) PostFixture {
	author := pickUser(faker, users)
	post := PostFixture{
		Author:    author.Username,
		Message:   faker.Sentence(faker.Number(4, 14)),
		CreatedAt: pastTime(faker, now, maxDays),
	}
	if faker.Number(0, 2) > 0 {
		post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", faker.UUID())
	}

	for _, u := range users {
		if u.Username != author.Username && faker.Number(0, 3) == 0 {
			post.LikedBy = append(post.LikedBy, u.Username)
		}
	}

	if maxComments > 0 {
		for i := faker.Number(0, maxComments); i > 0; i-- {
			c := CommentFixture{
				Author: pickUser(faker, users).Username,
				Text:   faker.Sentence(faker.Number(3, 10)),
			}
			if faker.Bool() {
				c.Replies = append(c.Replies, CommentFixture{
					Author: pickUser(faker, users).Username,
					Text:   faker.Sentence(faker.Number(2, 8)),
				})
			}
			post.Comments = append(post.Comments, c)
		}
	}
	return post
}

func buildEvent(faker *gofakeit.Faker, users []UserFixture, now time.Time) EventFixture {
	ev := EventFixture{
		Creator:     pickUser(faker, users).Username,
		Title:       faker.Hobby() + " " + faker.RandomString([]string{"Meetup", "Night", "Workshop", "Festival", "Session"}),
		Description: faker.Paragraph(1, 2, 10, " "),
		Location:    faker.City(),
		Date:        now.Add(time.Duration(faker.Number(1, 60*24)) * time.Hour).Truncate(time.Hour).UTC(),
		Image:       fmt.Sprintf("https://picsum.photos/seed/%s/1200/600", faker.UUID()),
	}
	if faker.Bool() {
		price := float64(faker.Number(5, 80))
		ev.Price = &price
		ev.TicketInfo = "Tickets at the door"
	}
	return ev
}

func pickUser(faker *gofakeit.Faker, users []UserFixture) UserFixture {
	return users[faker.Number(0, len(users)-1)]
}

func pastTime(faker *gofakeit.Faker, now time.Time, maxDays int) time.Time {
	back := time.Duration(faker.Number(0, maxDays*24*60)) * time.Minute
	return now.Add(-back).UTC()
}
