package viewstate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"mvp/internal/models"
)

// SortPostsChronologically returns a copy of posts ordered oldest first.
// Posts without a timestamp sort as the minimum time.
func SortPostsChronologically(posts []models.Post) []models.Post {
	out := slices.Clone(posts)
	slices.SortStableFunc(out, func(a, b models.Post) int {
		return a.CreatedAt.TimeOrMin().Compare(b.CreatedAt.TimeOrMin())
	})
	return out
}

// SortEventsByDate returns a copy of events ordered by event date, earliest
// first. Undated events come first.
func SortEventsByDate(events []models.Event) []models.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b models.Event) int {
		return a.EventDate.TimeOrMin().Compare(b.EventDate.TimeOrMin())
	})
	return out
}

// MonthKey is the calendar month and year of an event date as seen in loc,
// formatted "2006-01". A nil loc means time.Local. Undated events share the
// key of the minimum time.
func MonthKey(date *models.Timestamp, loc *time.Location) string {
	t := inLocation(date.TimeOrMin(), loc)
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ShowsMonthHeader reports whether a month header precedes events[i].
func ShowsMonthHeader(events []models.Event, i int, loc *time.Location) bool {
	if i <= 0 || i >= len(events) {
		return i == 0 && len(events) > 0
	}
	return MonthKey(events[i].EventDate, loc) != MonthKey(events[i-1].EventDate, loc)
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc)
}

// MonthGroup is a run of consecutive events sharing a month.
type MonthGroup struct {
	Key    string
	Month  time.Time
	Events []models.Event
}

// GroupByMonth splits already sorted events into month runs of loc.
func GroupByMonth(events []models.Event, loc *time.Location) []MonthGroup {
	var groups []MonthGroup
	for i, e := range events {
		if ShowsMonthHeader(events, i, loc) {
			t := inLocation(e.EventDate.TimeOrMin(), loc)
			groups = append(groups, MonthGroup{
				Key:   MonthKey(e.EventDate, loc),
				Month: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()),
			})
		}
		last := &groups[len(groups)-1]
		last.Events = append(last.Events, e)
	}
	return groups
}

// FilterPosts keeps posts whose author username or message contains query,
// ignoring case. An empty query keeps everything.
func FilterPosts(posts []models.Post, query string) []models.Post {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(posts)
	}
	out := []models.Post{}
	for _, p := range posts {
		if containsFold(p.Username(), q) || containsFold(models.Deref(p.Message), q) {
			out = append(out, p)
		}
	}
	return out
}

// FilterEvents keeps events whose title contains query, ignoring case.
func FilterEvents(events []models.Event, query string) []models.Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(events)
	}
	out := []models.Event{}
	for _, e := range events {
		if containsFold(e.Title, q) {
			out = append(out, e)
		}
	}
	return out
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
